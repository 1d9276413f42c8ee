package shared

// Billing permissions covering invoices and payments.
const (
	PermInvoicesView = "invoices.view"
	PermInvoicesEdit = "invoices.edit"

	PermPaymentsCreate = "payments.create"
	PermPaymentsVerify = "payments.verify"
)

// BillingScopes lists all billing permissions.
func BillingScopes() []string {
	return []string{
		PermInvoicesView,
		PermInvoicesEdit,
		PermPaymentsCreate,
		PermPaymentsVerify,
	}
}
