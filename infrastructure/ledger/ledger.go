// Package ledger keeps the per-day record of accepted composite keys used to
// reject duplicate uploads.
package ledger

import (
	"context"
	"time"
)

// DateLayout is the ledger's day key.
const DateLayout = "2006-01-02"

// Ledger maps an ISO date to the keys accepted that day, in acceptance order.
type Ledger map[string][]string

// Keys returns the keys recorded for day.
func (l Ledger) Keys(day string) []string {
	if l == nil {
		return nil
	}
	return l[day]
}

// Day formats t as a ledger day key in local time.
func Day(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// Store persists a Ledger. Save replaces whatever was stored before.
type Store interface {
	Load(ctx context.Context) (Ledger, error)
	Save(ctx context.Context, l Ledger) error
}
