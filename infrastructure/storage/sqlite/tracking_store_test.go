package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/sqlite"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/storetest"
)

func testConfig(t *testing.T) sqlite.Config {
	t.Helper()

	cfg := sqlite.DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "tracker.db") + "?mode=rwc"
	return cfg
}

func newTestStore(t *testing.T) *sqlite.TrackingStore {
	t.Helper()

	store, err := sqlite.NewTrackingStore(testConfig(t))
	if err != nil {
		t.Fatalf("NewTrackingStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTrackingStore(t *testing.T) {
	storetest.TrackingStore(t, func(t *testing.T) tracking.Store {
		return newTestStore(t)
	})
}

func TestTrackingStore_PersistsAcrossReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	store, err := sqlite.NewTrackingStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, storetest.NewRecord(t, "q-1", "p-1", 0)); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened, err := sqlite.NewTrackingStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.FindByQueryID(ctx, "q-1")
	if err != nil {
		t.Fatalf("FindByQueryID() error = %v", err)
	}
	if got.ProposalID != "p-1" {
		t.Errorf("ProposalID = %s, want p-1", got.ProposalID)
	}
}

func TestTrackingStore_UpdateCannotMoveQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := storetest.NewRecord(t, "q-1", "p-1", 0)
	if err := store.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.QueryID = "q-2"
	if err := store.Update(ctx, r); !errors.Is(err, tracking.ErrRecordNotFound) {
		t.Errorf("Update() error = %v, want ErrRecordNotFound", err)
	}
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := sqlite.Open(sqlite.Config{DSN: "file:" + filepath.Join(t.TempDir(), "missing", "x.db") + "?mode=ro"})
	if !errors.Is(err, sqlite.ErrConnectionFailed) {
		t.Errorf("Open() error = %v, want ErrConnectionFailed", err)
	}
}

func TestEventLog(t *testing.T) {
	storetest.EventLog(t, func(t *testing.T) workflow.Log {
		log, err := sqlite.NewEventLog(testConfig(t))
		if err != nil {
			t.Fatalf("NewEventLog() error = %v", err)
		}
		t.Cleanup(func() { _ = log.Close() })
		return log
	})
}

func TestEventLog_SharesDatabase(t *testing.T) {
	db, err := sqlite.Open(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store, err := sqlite.NewTrackingStoreFromDB(db)
	if err != nil {
		t.Fatalf("NewTrackingStoreFromDB() error = %v", err)
	}
	log, err := sqlite.NewEventLogFromDB(db)
	if err != nil {
		t.Fatalf("NewEventLogFromDB() error = %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, storetest.NewRecord(t, "q-1", "p-1", 0)); err != nil {
		t.Fatal(err)
	}
	e := workflow.NewStatusChanged("", "q-1", "p-1", tracking.StateDraft, tracking.StateSent,
		tracking.TriggerProposalSent, nil, storetest.Base)
	if err := log.Append(ctx, e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := log.LoadEvents(ctx, "q-1")
	if err != nil || len(events) != 1 || events[0].ID == "" {
		t.Errorf("LoadEvents() = %+v, %v", events, err)
	}

	// Closing stores built on a shared handle leaves it open.
	_ = store.Close()
	if err := db.Ping(); err != nil {
		t.Errorf("shared db closed: %v", err)
	}
}
