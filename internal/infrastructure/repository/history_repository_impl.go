package repository

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YoshitsuguKoike/llmhelper/internal/domain/repository"
	"github.com/YoshitsuguKoike/llmhelper/internal/infra/recordstore"
)

// HistoryCategory is the record store category holding prompt runs
const HistoryCategory = "history"

// HistoryRepositoryImpl implements repository.HistoryRepository on top of the
// segmented JSONL record store
type HistoryRepositoryImpl struct {
	store *recordstore.Store
	now   func() time.Time
}

// NewHistoryRepositoryImpl creates a history repository backed by store
func NewHistoryRepositoryImpl(store *recordstore.Store) *HistoryRepositoryImpl {
	return &HistoryRepositoryImpl{
		store: store,
		now:   time.Now,
	}
}

// Save appends a record to the active history segment
func (r *HistoryRepositoryImpl) Save(ctx context.Context, record *repository.HistoryRecord) error {
	if record == nil {
		return fmt.Errorf("history record is nil")
	}
	if record.ID == "" {
		record.ID = generateID(r.now())
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}
	if record.Config == nil {
		record.Config = map[string]string{}
	}

	if err := r.store.Append(ctx, HistoryCategory, record); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// SaveAll appends records in order, stopping at the first failure
func (r *HistoryRepositoryImpl) SaveAll(ctx context.Context, records []*repository.HistoryRecord) error {
	for _, rec := range records {
		if err := r.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// All returns every record sorted by creation time
func (r *HistoryRepositoryImpl) All(ctx context.Context) ([]*repository.HistoryRecord, error) {
	entries, err := r.store.ReadAll(ctx, HistoryCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]*repository.HistoryRecord, 0, len(entries))
	for _, e := range entries {
		var rec repository.HistoryRecord
		if err := e.Decode(&rec); err != nil {
			return nil, err
		}
		rec.Segment = e.Segment
		records = append(records, &rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// Query returns the newest matches, oldest first
func (r *HistoryRepositoryImpl) Query(ctx context.Context, filter repository.HistoryFilter) ([]*repository.HistoryRecord, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*repository.HistoryRecord
	for _, rec := range all {
		if !filter.IncludeInterrupted && rec.Interrupted {
			continue
		}
		if !matchesType(rec.Type, filter.Types) {
			continue
		}
		matched = append(matched, rec)
	}

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[len(matched)-filter.Limit:]
	}
	return matched, nil
}

// LatestConfig returns the config of the newest record with the given hash
func (r *HistoryRepositoryImpl) LatestConfig(ctx context.Context, hash string) (map[string]string, bool, error) {
	if hash == "" {
		return nil, false, nil
	}
	all, err := r.All(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].ConfigHash == hash && len(all[i].Config) > 0 {
			return all[i].Config, true, nil
		}
	}
	return nil, false, nil
}

func matchesType(t repository.RunType, types []repository.RunType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// generateID returns a ULID so IDs sort by creation time
func generateID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
