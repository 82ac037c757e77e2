package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/storetest"
)

func TestNewTrackingStore(t *testing.T) {
	t.Parallel()

	if s := NewTrackingStore(nil, ""); s.schema != "public" {
		t.Errorf("schema = %s, want public", s.schema)
	}
	if s := NewTrackingStore(nil, "crm"); s.tableName() != "crm.proposal_tracking" {
		t.Errorf("tableName() = %s, want crm.proposal_tracking", s.tableName())
	}
}

func TestTrackingStore_Validation(t *testing.T) {
	t.Parallel()

	store := NewTrackingStore(nil, "public")
	ctx := context.Background()

	if err := store.Save(ctx, &tracking.Record{ProposalID: "p-1"}); !errors.Is(err, tracking.ErrInvalidRecord) {
		t.Errorf("Save() error = %v, want ErrInvalidRecord", err)
	}
	if err := store.Update(ctx, nil); !errors.Is(err, tracking.ErrInvalidRecord) {
		t.Errorf("Update() error = %v, want ErrInvalidRecord", err)
	}
	if _, err := store.Get(ctx, ""); !errors.Is(err, tracking.ErrRecordNotFound) {
		t.Errorf("Get() error = %v, want ErrRecordNotFound", err)
	}
}

func TestTrackingStore_buildListQuery(t *testing.T) {
	t.Parallel()

	store := NewTrackingStore(nil, "public")

	tests := []struct {
		name     string
		filter   tracking.ListFilter
		contains []string
		args     int
	}{
		{
			name:     "no filter",
			filter:   tracking.ListFilter{},
			contains: []string{"FROM public.proposal_tracking", "ORDER BY created_at, proposal_id"},
			args:     0,
		},
		{
			name:     "query and statuses",
			filter:   tracking.ListFilter{QueryID: "q-1", Statuses: []tracking.State{tracking.StateSent}},
			contains: []string{"query_id = $1", "current_status = ANY($2)"},
			args:     2,
		},
		{
			name:     "pagination",
			filter:   tracking.ListFilter{Limit: 10, Offset: 5},
			contains: []string{"LIMIT $1", "OFFSET $2"},
			args:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			query, args := store.buildListQuery(tt.filter)
			for _, want := range tt.contains {
				if !strings.Contains(query, want) {
					t.Errorf("query %q missing %q", query, want)
				}
			}
			if len(args) != tt.args {
				t.Errorf("args = %v, want %d", args, tt.args)
			}
		})
	}
}

func TestTrackingStore_wrapError(t *testing.T) {
	t.Parallel()

	store := NewTrackingStore(nil, "")
	if store.wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
	if err := store.wrapError(context.DeadlineExceeded); !errors.Is(err, ErrOperationTimeout) {
		t.Errorf("wrapError(deadline) = %v, want ErrOperationTimeout", err)
	}
	if err := store.wrapError(errors.New("refused")); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("wrapError() = %v, want ErrConnectionFailed", err)
	}
}

// TestTrackingStore_Integration runs the shared suite against a live
// database named by TRACKER_TEST_POSTGRES_DSN. Each subtest gets its own
// schema.
func TestTrackingStore_Integration(t *testing.T) {
	dsn := os.Getenv("TRACKER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRACKER_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, DefaultConfig(), WithDSN(dsn))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer pool.Close()

	storetest.TrackingStore(t, func(t *testing.T) tracking.Store {
		schema := "tracker_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
		store := NewTrackingStore(pool, schema)
		if err := store.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema() error = %v", err)
		}
		t.Cleanup(func() {
			_, _ = pool.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
		})
		return store
	})
}
