// Constants stored in database columns.
// Gin rejects zero values for fields tagged `binding:"required"`, so numeric
// enums start from iota + 1 and zero is never a valid value.
package model

// Member role in the intranet
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Yes/No flags kept by the ERP ledger
const (
	FlagYes = "Y"
	FlagNo  = "N"
)
