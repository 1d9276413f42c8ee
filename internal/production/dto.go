package production

// CreateInput groups fields required to open a print job.
type CreateInput struct {
	InvoiceID  int64    `json:"invoice_id" validate:"required,gt=0"`
	Priority   Priority `json:"priority"`
	AssignedTo *int64   `json:"assigned_to"`
	Notes      *string  `json:"notes"`
	CreatedBy  int64    `json:"-"`
	// ActorCanCreate is the gate result resolved by the caller. The service
	// never queries authorization itself.
	ActorCanCreate bool `json:"-"`
}

// UpdateStatusInput moves a job along the production lifecycle.
type UpdateStatusInput struct {
	JobID   int64
	Status  Status
	ActorID int64
}

// UpdateProgressInput advances the completion percentage.
type UpdateProgressInput struct {
	JobID    int64
	Progress int
	ActorID  int64
}

// AssignInput hands the job to an operator.
type AssignInput struct {
	JobID      int64
	AssignedTo *int64
	ActorID    int64
}

// ListRequest filters job listings.
type ListRequest struct {
	Status     Status
	Priority   Priority
	AssignedTo int64
	Page       int
	PerPage    int
}
