package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"packdash/models"
)

// Filter partitions a batch into first-seen items and duplicate keys using
// today's ledger entry.
type Filter struct {
	mu     sync.Mutex
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Filter)

func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) { f.logger = l }
}

// WithClock sets the clock that decides which day is "today".
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

func NewFilter(store Store, opts ...Option) *Filter {
	f := &Filter{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Apply keeps, in input order, the first item for every composite key not
// already in today's ledger and returns the keys of everything else.
//
// Ledger entries for other days are discarded. The ledger is saved even when
// nothing was accepted. Load and save failures are logged and never returned:
// a failed load behaves like an empty ledger.
func (f *Filter) Apply(ctx context.Context, items []models.PackagingLineItem) ([]models.PackagingLineItem, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	today := Day(f.now())
	stored, err := f.store.Load(ctx)
	if err != nil {
		f.logger.Warn("ledger load failed; treating as empty", slog.Any("err", err))
		stored = nil
	}

	prior := stored.Keys(today)
	keys := make([]string, 0, len(prior)+len(items))
	seen := make(map[string]struct{}, len(prior)+len(items))
	for _, k := range prior {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	accepted := make([]models.PackagingLineItem, 0, len(items))
	rejected := make([]string, 0)
	for _, item := range items {
		key := item.CompositeKey()
		if _, dup := seen[key]; dup {
			rejected = append(rejected, key)
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
		accepted = append(accepted, item)
	}

	if err := f.store.Save(ctx, Ledger{today: keys}); err != nil {
		f.logger.Error("ledger save failed", slog.Any("err", err))
	}

	f.logger.Info("duplicate filter applied",
		slog.String("day", today),
		slog.Int("accepted", len(accepted)),
		slog.Int("rejected", len(rejected)))
	return accepted, rejected
}

// Today returns the keys accepted so far today.
func (f *Filter) Today(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return l.Keys(Day(f.now())), nil
}
