package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"caffeine/internal/core"
)

type fakeRepo struct {
	entries map[int64]core.Entry
	owners  map[int64]core.Principal
	nextID  int64
	err     error
	closed  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[int64]core.Entry{}, owners: map[int64]core.Principal{}}
}

func (f *fakeRepo) CreateEntry(_ context.Context, caller core.Principal, name string, mg int64, at time.Time) (core.Entry, error) {
	if f.err != nil {
		return core.Entry{}, f.err
	}
	f.nextID++
	e := core.Entry{ID: f.nextID, DrinkName: name, AmountMg: mg, ConsumptionTime: at}
	f.entries[e.ID] = e
	f.owners[e.ID] = caller
	return e, nil
}

func (f *fakeRepo) DeleteEntry(_ context.Context, caller core.Principal, id int64) (core.Entry, bool, error) {
	if f.err != nil {
		return core.Entry{}, false, f.err
	}
	e, ok := f.entries[id]
	if !ok || f.owners[id] != caller {
		return core.Entry{}, false, nil
	}
	delete(f.entries, id)
	return e, true, nil
}

func (f *fakeRepo) Close() error { f.closed = true; return nil }

type fakePublisher struct {
	synced  []int64
	deleted []core.Entry
	err     error
	closed  bool
}

func (f *fakePublisher) PublishEntrySync(_ context.Context, id int64, _ core.Principal) error {
	f.synced = append(f.synced, id)
	return f.err
}

func (f *fakePublisher) PublishEntryDelete(_ context.Context, _ core.Principal, e core.Entry) error {
	f.deleted = append(f.deleted, e)
	return f.err
}

func (f *fakePublisher) Close() error { f.closed = true; return nil }

func TestEntryService_CreatePublishesSync(t *testing.T) {
	repo, pub := newFakeRepo(), &fakePublisher{}
	svc := NewEntryService(repo, pub)

	e, err := svc.CreateEntry(context.Background(), "ada", "Coffee", 95, time.Now())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if len(pub.synced) != 1 || pub.synced[0] != e.ID {
		t.Fatalf("expected sync message for %d, got %v", e.ID, pub.synced)
	}
}

func TestEntryService_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo, pub := newFakeRepo(), &fakePublisher{err: errors.New("broker down")}
	svc := NewEntryService(repo, pub)

	if _, err := svc.CreateEntry(context.Background(), "ada", "Coffee", 95, time.Now()); err != nil {
		t.Fatalf("publish failure must not fail the write: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("entry should be stored")
	}
}

func TestEntryService_WithoutPublisher(t *testing.T) {
	svc := NewEntryService(newFakeRepo(), nil)
	e, err := svc.CreateEntry(context.Background(), "ada", "Tea", 40, time.Now())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	ok, err := svc.DeleteEntry(context.Background(), "ada", e.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteEntry: ok=%v err=%v", ok, err)
	}
}

func TestEntryService_Delete(t *testing.T) {
	repo, pub := newFakeRepo(), &fakePublisher{}
	svc := NewEntryService(repo, pub)
	ctx := context.Background()
	e, _ := svc.CreateEntry(ctx, "ada", "Tea", 40, time.Now())

	ok, err := svc.DeleteEntry(ctx, "ada", 999)
	if err != nil || ok {
		t.Fatalf("missing entry: ok=%v err=%v", ok, err)
	}
	if len(pub.deleted) != 0 {
		t.Fatalf("no delete message expected for a missing entry")
	}

	ok, err = svc.DeleteEntry(ctx, "ada", e.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteEntry: ok=%v err=%v", ok, err)
	}
	if len(pub.deleted) != 1 || pub.deleted[0].DrinkName != "Tea" {
		t.Fatalf("expected delete message with entry fields, got %+v", pub.deleted)
	}
}

func TestEntryService_StorageErrorIsWrapped(t *testing.T) {
	boom := errors.New("disk full")
	repo := newFakeRepo()
	repo.err = boom
	svc := NewEntryService(repo, &fakePublisher{})

	if _, err := svc.CreateEntry(context.Background(), "ada", "Tea", 40, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestEntryService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		if err := (&EntryService{}).Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})
	t.Run("closes both", func(t *testing.T) {
		repo, pub := newFakeRepo(), &fakePublisher{}
		if err := NewEntryService(repo, pub).Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !repo.closed || !pub.closed {
			t.Fatalf("expected both closed")
		}
	})
}
