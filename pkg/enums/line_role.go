package enums

import "fmt"

// LineRole classifies a priced line and determines its settlement behavior:
// consumables leave stock when the intervention completes, materials return to
// the available pool, services never touch stock.
type LineRole string

const (
	LineRoleConsumable LineRole = "consumable"
	LineRoleMaterial   LineRole = "material"
	LineRoleService    LineRole = "service"
)

var validLineRoles = []LineRole{
	LineRoleConsumable,
	LineRoleMaterial,
	LineRoleService,
}

// String implements fmt.Stringer.
func (l LineRole) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LineRole.
func (l LineRole) IsValid() bool {
	for _, candidate := range validLineRoles {
		if candidate == l {
			return true
		}
	}
	return false
}

// StockAffecting reports whether lines with this role hold stock at all.
func (l LineRole) StockAffecting() bool {
	return l == LineRoleConsumable || l == LineRoleMaterial
}

// ParseLineRole converts raw input into a LineRole.
func ParseLineRole(value string) (LineRole, error) {
	for _, candidate := range validLineRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line role %q", value)
}
