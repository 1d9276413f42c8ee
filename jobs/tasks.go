package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeReceiptMail is the task type for payment receipt emails.
	TaskTypeReceiptMail = "mail:receipt"
	// TaskTypeProductionDispatch notifies the production desk about a fully
	// paid invoice.
	TaskTypeProductionDispatch = "production:dispatch"
	// TaskTypeBillingReconcile re-derives invoice payment statuses.
	TaskTypeBillingReconcile = "billing:reconcile"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with SMTP/Mailpit in phase 2.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// ReceiptMailPayload identifies the verified payment to mail a receipt for.
type ReceiptMailPayload struct {
	PaymentID int64 `json:"payment_id"`
}

// NewReceiptMailTask constructs an Asynq task.
func NewReceiptMailTask(payload ReceiptMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceiptMail, data), nil
}

// ProductionDispatchPayload identifies the fully paid invoice to dispatch.
type ProductionDispatchPayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// NewProductionDispatchTask constructs an Asynq task.
func NewProductionDispatchTask(payload ProductionDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeProductionDispatch, data), nil
}

// NewBillingReconcileTask constructs the cron reconcile task.
func NewBillingReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskTypeBillingReconcile, nil)
}
