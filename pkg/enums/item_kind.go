package enums

import "fmt"

// ItemKind distinguishes stock that is destroyed by use from stock that is
// taken to site and brought back.
type ItemKind string

const (
	ItemKindConsumable ItemKind = "consumable"
	ItemKindMaterial   ItemKind = "material"
)

var validItemKinds = []ItemKind{
	ItemKindConsumable,
	ItemKindMaterial,
}

// String implements fmt.Stringer.
func (k ItemKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known ItemKind.
func (k ItemKind) IsValid() bool {
	for _, candidate := range validItemKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// DefaultLineRole maps the catalog kind to the line role prefilled when the
// item is selected on an intervention.
func (k ItemKind) DefaultLineRole() LineRole {
	if k == ItemKindMaterial {
		return LineRoleMaterial
	}
	return LineRoleConsumable
}

// ParseItemKind converts raw input into an ItemKind.
func ParseItemKind(value string) (ItemKind, error) {
	for _, candidate := range validItemKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item kind %q", value)
}
