package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// TrackingStore is a Redis-backed implementation of tracking.Store.
//
// Each record is a JSON string. Two sorted sets scored by creation time in
// milliseconds index them: one per query and one over all records. Scores
// only narrow the candidates; results are ordered by the decoded CreatedAt
// and proposal id, so records less than a millisecond apart keep their
// creation order.
type TrackingStore struct {
	client    *redis.Client
	keyPrefix string
}

// saveScript writes a new record and both index entries in one step.
// KEYS: record, query index, all index. ARGV: data, score, proposal id.
var saveScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[3])
return 1
`)

// NewTrackingStore connects to Redis and creates a store.
func NewTrackingStore(cfg Config, opts ...ConfigOption) (*TrackingStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	return &TrackingStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewTrackingStoreFromClient creates a store from an existing Redis client.
func NewTrackingStoreFromClient(client *redis.Client, keyPrefix string) *TrackingStore {
	return &TrackingStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *TrackingStore) recordKey(proposalID string) string {
	return s.keyPrefix + "tracking:" + proposalID
}

func (s *TrackingStore) queryKey(queryID string) string {
	return s.keyPrefix + "query:" + queryID
}

func (s *TrackingStore) allKey() string {
	return s.keyPrefix + "all"
}

// Save persists a new record.
func (s *TrackingStore) Save(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" || r.QueryID == "" {
		return tracking.ErrInvalidRecord
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	keys := []string{s.recordKey(r.ProposalID), s.queryKey(r.QueryID), s.allKey()}
	created, err := saveScript.Run(ctx, s.client, keys, data, formatScore(score(r)), r.ProposalID).Int()
	if err != nil {
		return s.wrapError(err)
	}
	if created == 0 {
		return tracking.ErrRecordExists
	}
	return nil
}

// Get retrieves a record by proposal id.
func (s *TrackingStore) Get(ctx context.Context, proposalID string) (*tracking.Record, error) {
	data, err := s.client.Get(ctx, s.recordKey(proposalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, tracking.ErrRecordNotFound
		}
		return nil, s.wrapError(err)
	}
	return decodeRecord(data)
}

// Update replaces an existing record.
func (s *TrackingStore) Update(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" {
		return tracking.ErrInvalidRecord
	}

	existing, err := s.Get(ctx, r.ProposalID)
	if err != nil {
		return err
	}
	if existing.QueryID != r.QueryID {
		return fmt.Errorf("%w: query id cannot change", tracking.ErrInvalidRecord)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.recordKey(r.ProposalID), data, 0).Result()
	if err != nil {
		return s.wrapError(err)
	}
	if !ok {
		return tracking.ErrRecordNotFound
	}
	return nil
}

// FindByQueryID returns the earliest created record of a query. Only the
// members sharing the lowest millisecond score are decoded.
func (s *TrackingStore) FindByQueryID(ctx context.Context, queryID string) (*tracking.Record, error) {
	key := s.queryKey(queryID)

	first, err := s.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}
	if len(first) == 0 {
		return nil, tracking.ErrRecordNotFound
	}

	lowest := formatScore(first[0].Score)
	ids, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: lowest, Max: lowest}).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}

	records, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, tracking.ErrRecordNotFound
	}
	return records[0], nil
}

// List returns records matching the filter, oldest first.
func (s *TrackingStore) List(ctx context.Context, filter tracking.ListFilter) ([]*tracking.Record, error) {
	index := s.allKey()
	if filter.QueryID != "" {
		index = s.queryKey(filter.QueryID)
	}

	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}

	records, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*tracking.Record, 0, len(records))
	for _, r := range records {
		if filter.Matches(r) {
			results = append(results, r)
		}
	}
	return filter.Paginate(results), nil
}

// load fetches and decodes the records of ids, ordered by creation.
// Index members whose record is gone are skipped.
func (s *TrackingStore) load(ctx context.Context, ids []string) ([]*tracking.Record, error) {
	records := make([]*tracking.Record, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}

	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeRecord([]byte(str))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	tracking.SortByCreation(records)
	return records, nil
}

// Close closes the Redis client.
func (s *TrackingStore) Close() error {
	return s.client.Close()
}

func score(r *tracking.Record) float64 {
	return float64(r.CreatedAt.UnixMilli())
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func decodeRecord(data []byte) (*tracking.Record, error) {
	var r tracking.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &r, nil
}

// wrapError wraps Redis errors with package errors.
func (s *TrackingStore) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrOperationTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ErrOperationTimeout, err)
	}

	return errors.Join(ErrConnectionFailed, err)
}

var _ tracking.Store = (*TrackingStore)(nil)
