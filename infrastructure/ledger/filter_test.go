package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"packdash/models"
)

func item(t *testing.T, remessa, loja, codigo string, qtde float64) models.PackagingLineItem {
	t.Helper()
	it, err := models.NewPackagingLineItem(models.LineItemFields{
		Loja:    loja,
		Remessa: remessa,
		Codigo:  codigo,
		QtdeEmb: qtde,
	})
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	return it
}

type memStore struct {
	data    Ledger
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) (Ledger, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := Ledger{}
	for d, keys := range m.data {
		out[d] = append([]string(nil), keys...)
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, l Ledger) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = l
	return nil
}

func newTestFilter(store Store, now *time.Time) *Filter {
	return NewFilter(store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return *now }),
	)
}

func TestApplyFirstOccurrenceWins(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)
	store := &memStore{}
	f := newTestFilter(store, &now)

	items := []models.PackagingLineItem{
		item(t, "R1", "L1", "C1", 5),
		item(t, "R1", "L1", "C1", 5),
		item(t, "R2", "L1", "C1", 5),
	}
	accepted, rejected := f.Apply(context.Background(), items)
	if len(accepted) != 2 || accepted[0].Remessa != "R1" || accepted[1].Remessa != "R2" {
		t.Fatalf("unexpected accepted %+v", accepted)
	}
	if len(rejected) != 1 || rejected[0] != "R1+L1+C1+5" {
		t.Fatalf("unexpected rejected %v", rejected)
	}
	got := store.data["2026-05-04"]
	if len(got) != 2 || got[0] != "R1+L1+C1+5" || got[1] != "R2+L1+C1+5" {
		t.Fatalf("unexpected ledger %v", store.data)
	}
}

func TestApplyRerunRejectsWholeBatch(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)
	store := &memStore{}
	f := newTestFilter(store, &now)
	items := []models.PackagingLineItem{item(t, "R1", "L1", "C1", 5), item(t, "R2", "L2", "C2", 1.5)}

	f.Apply(context.Background(), items)
	accepted, rejected := f.Apply(context.Background(), items)
	if len(accepted) != 0 {
		t.Fatalf("expected nothing accepted on rerun, got %d", len(accepted))
	}
	if len(rejected) != 2 || rejected[1] != "R2+L2+C2+1.5" {
		t.Fatalf("unexpected rejected %v", rejected)
	}
	if store.saves != 2 {
		t.Fatalf("expected a save on every call, got %d", store.saves)
	}
}

func TestApplyForgetsPreviousDays(t *testing.T) {
	now := time.Date(2026, 5, 4, 23, 59, 0, 0, time.Local)
	store := &memStore{}
	f := newTestFilter(store, &now)
	items := []models.PackagingLineItem{item(t, "R1", "L1", "C1", 5)}

	f.Apply(context.Background(), items)
	now = now.Add(2 * time.Minute)
	accepted, rejected := f.Apply(context.Background(), items)
	if len(accepted) != 1 || len(rejected) != 0 {
		t.Fatalf("expected yesterday's key to be accepted today, got %d/%d", len(accepted), len(rejected))
	}
	if _, ok := store.data["2026-05-04"]; ok {
		t.Fatalf("expected previous day to be dropped, got %v", store.data)
	}
	if len(store.data["2026-05-05"]) != 1 {
		t.Fatalf("unexpected ledger %v", store.data)
	}
}

func TestApplyEmptyBatchStillSaves(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)
	store := &memStore{data: Ledger{"2026-05-03": {"old"}}}
	f := newTestFilter(store, &now)

	accepted, rejected := f.Apply(context.Background(), nil)
	if len(accepted) != 0 || rejected == nil || len(rejected) != 0 {
		t.Fatalf("unexpected partition %v %v", accepted, rejected)
	}
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
	if _, ok := store.data["2026-05-03"]; ok {
		t.Fatalf("expected stale day to be pruned, got %v", store.data)
	}
}

func TestApplyLoadFailureActsAsEmpty(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)
	store := &memStore{loadErr: errors.New("corrupt")}
	f := newTestFilter(store, &now)

	accepted, _ := f.Apply(context.Background(), []models.PackagingLineItem{item(t, "R1", "L1", "C1", 5)})
	if len(accepted) != 1 {
		t.Fatalf("expected item accepted despite load failure")
	}
	if store.saves != 1 {
		t.Fatalf("expected save after load failure")
	}
}

func TestApplySaveFailureIsSoft(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)
	store := &memStore{saveErr: errors.New("disk full")}
	f := newTestFilter(store, &now)

	accepted, rejected := f.Apply(context.Background(), []models.PackagingLineItem{item(t, "R1", "L1", "C1", 5)})
	if len(accepted) != 1 || len(rejected) != 0 {
		t.Fatalf("expected partition to be returned despite save failure")
	}
}

func TestApplyPartitionCoversInput(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)
	store := &memStore{data: Ledger{"2026-05-04": {"R9+L1+C1+1"}}}
	f := newTestFilter(store, &now)

	items := []models.PackagingLineItem{
		item(t, "R9", "L1", "C1", 1),
		item(t, "R1", "L1", "C1", 1),
		item(t, "R1", "L1", "C1", 2),
		item(t, "R1", "L1", "C1", 1),
	}
	accepted, rejected := f.Apply(context.Background(), items)
	if len(accepted)+len(rejected) != len(items) {
		t.Fatalf("partition lost items: %d + %d != %d", len(accepted), len(rejected), len(items))
	}
	keys := map[string]bool{}
	for _, a := range accepted {
		k := a.CompositeKey()
		if keys[k] {
			t.Fatalf("duplicate key %s accepted", k)
		}
		keys[k] = true
	}
	if len(store.data["2026-05-04"]) != 3 {
		t.Fatalf("expected ledger to hold prior plus accepted keys, got %v", store.data)
	}
}

func TestFilterWithFileStoreAcrossInstances(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)
	path := filepath.Join(t.TempDir(), "nested", "duplicate_keys.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	items := []models.PackagingLineItem{item(t, "R1", "L1", "C1", 5)}

	newTestFilter(store, &now).Apply(context.Background(), items)

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	accepted, rejected := newTestFilter(reopened, &now).Apply(context.Background(), items)
	if len(accepted) != 0 || len(rejected) != 1 {
		t.Fatalf("expected persisted ledger to reject, got %d/%d", len(accepted), len(rejected))
	}

	keys, err := newTestFilter(reopened, &now).Today(context.Background())
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(keys) != 1 || keys[0] != "R1+L1+C1+5" {
		t.Fatalf("unexpected today keys %v", keys)
	}
}
