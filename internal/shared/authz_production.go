package shared

// Production floor permissions.
const (
	PermProductionView   = "production.view"
	PermProductionCreate = "production.create"
	PermProductionManage = "production.manage"
)

// ProductionScopes lists all production permissions.
func ProductionScopes() []string {
	return []string{
		PermProductionView,
		PermProductionCreate,
		PermProductionManage,
	}
}
