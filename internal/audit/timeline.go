// Package audit exposes a read API over the audit_logs written by the
// domain services.
package audit

import (
	"time"
)

// Entry is one audit log row.
type Entry struct {
	ID         int64          `json:"id"`
	ActorID    int64          `json:"actor_id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// TimelineFilters narrows the timeline query.
type TimelineFilters struct {
	Entity   string
	EntityID string
	Action   string
	ActorID  int64
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// PagingInfo describes the returned window.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Entries []Entry    `json:"entries"`
	Paging  PagingInfo `json:"paging"`
}
