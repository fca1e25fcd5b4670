package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RunType identifies which command produced a history record
type RunType string

const (
	RunTypeSinglePrompt RunType = "single_prompt"
	RunTypeChat         RunType = "chat"
)

// HistoryRecord is one completed (or interrupted) prompt run
type HistoryRecord struct {
	ID               string            `json:"id"`
	FileLocation     string            `json:"file_location"`
	Prompt           string            `json:"prompt"`
	RawPrompt        string            `json:"raw_prompt"`
	Config           map[string]string `json:"config"`
	ConfigHash       string            `json:"config_hash"`
	Model            string            `json:"model"`
	Temperature      float64           `json:"temperature"`
	Type             RunType           `json:"type"`
	CreatedAt        time.Time         `json:"created_at"`
	Completion       string            `json:"completion"`
	Interrupted      bool              `json:"interrupted"`
	Cost             float64           `json:"cost"`
	TokensProcessed  int               `json:"tokens_processed"`
	PromptTokens     int               `json:"prompt_tokens"`
	CompletionTokens int               `json:"completion_tokens"`
	ExecutionTime    float64           `json:"execution_time"` // seconds

	// Segment is the history file the record was read from. Not persisted.
	Segment string `json:"-"`
}

// naiveTimeLayout is Python's datetime.isoformat() without a zone. Files
// written by the earlier Python tool store created_at this way, in UTC.
const naiveTimeLayout = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON accepts created_at as RFC 3339 or as a zoneless timestamp
// read as UTC. A missing id stays empty.
func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	type plain HistoryRecord
	aux := struct {
		*plain
		CreatedAt string `json:"created_at"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	createdAt, err := parseCreatedAt(aux.CreatedAt)
	if err != nil {
		return err
	}
	r.CreatedAt = createdAt
	return nil
}

func parseCreatedAt(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(naiveTimeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("created_at %q: want RFC 3339 or %s", v, naiveTimeLayout)
	}
	return t, nil
}

// HistoryFilter selects records for display
type HistoryFilter struct {
	Types              []RunType // empty matches every type
	IncludeInterrupted bool
	Limit              int // newest N matches; 0 means all
}

// HistoryRepository persists prompt runs
type HistoryRepository interface {
	// Save appends a record, assigning ID and CreatedAt when empty
	Save(ctx context.Context, record *HistoryRecord) error

	// SaveAll appends records in order
	SaveAll(ctx context.Context, records []*HistoryRecord) error

	// All returns every record sorted by CreatedAt, oldest first
	All(ctx context.Context) ([]*HistoryRecord, error)

	// Query returns the newest Limit records matching filter, oldest first
	Query(ctx context.Context, filter HistoryFilter) ([]*HistoryRecord, error)

	// LatestConfig returns the most recent variable values saved for hash
	LatestConfig(ctx context.Context, hash string) (map[string]string, bool, error)
}
