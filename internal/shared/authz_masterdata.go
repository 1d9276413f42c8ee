package shared

// Master data permissions covering customers, branches and products.
const (
	PermMasterDataView = "masterdata.view"
	PermMasterDataEdit = "masterdata.edit"
)

// MasterDataScopes lists all master data permissions.
func MasterDataScopes() []string {
	return []string{
		PermMasterDataView,
		PermMasterDataEdit,
	}
}
