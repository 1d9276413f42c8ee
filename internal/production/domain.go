// Package production tracks print jobs created from fully paid invoices.
package production

import "time"

// Status is the production lifecycle of a print job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProgress   Status = "in_progress"
	StatusQualityCheck Status = "quality_check"
	StatusCompleted    Status = "completed"
	StatusOnHold       Status = "on_hold"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusQualityCheck, StatusCompleted, StatusOnHold:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the move to next is allowed. on_hold is
// reachable from any active state and resumes to any active state. completed
// is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.IsValid() || s == next {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusOnHold
	case StatusInProgress:
		return next == StatusQualityCheck || next == StatusOnHold
	case StatusQualityCheck:
		return next == StatusCompleted || next == StatusInProgress || next == StatusOnHold
	case StatusOnHold:
		return next == StatusPending || next == StatusInProgress || next == StatusQualityCheck
	default:
		return false
	}
}

// Priority orders jobs on the production floor.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is valid.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// PrintJob is one production run for an invoice. An invoice has at most one.
type PrintJob struct {
	ID          int64      `json:"id"`
	InvoiceID   int64      `json:"invoice_id"`
	JobNumber   string     `json:"job_number"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Progress    int        `json:"progress_percentage"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Eligibility is the gate result for creating a print job from an invoice.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}
