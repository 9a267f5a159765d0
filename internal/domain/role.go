package domain

// Role enumerates hospital staff roles. This is the single declaration of the
// set: request validation and the storage CHECK constraint derive from Roles().
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
	RoleRadiologist  Role = "radiologist"
	RolePharmacist   Role = "pharmacist"
	RoleAccountant   Role = "accountant"
)

var allRoles = []Role{
	RoleAdmin,
	RoleDoctor,
	RoleNurse,
	RoleReceptionist,
	RoleRadiologist,
	RolePharmacist,
	RoleAccountant,
}

var roleInfo = map[Role]struct {
	label       string
	description string
}{
	RoleAdmin:        {"Administrator", "Full system access"},
	RoleDoctor:       {"Doctor", "Patient care & consultations"},
	RoleNurse:        {"Nurse", "Patient care & vital signs"},
	RoleReceptionist: {"Receptionist", "Patient registration & appointments"},
	RoleRadiologist:  {"Radiologist", "Imaging tests & reports"},
	RolePharmacist:   {"Pharmacist", "Medicine inventory & prescriptions"},
	RoleAccountant:   {"Accountant", "Billing & invoicing"},
}

// Roles returns every valid role in display order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole converts a raw value into a Role, reporting whether it is known.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	if !role.Valid() {
		return "", false
	}
	return role, true
}

// Valid reports whether r belongs to the role enumeration.
func (r Role) Valid() bool {
	_, ok := roleInfo[r]
	return ok
}

// Label is the human readable name shown on the login and signup forms.
func (r Role) Label() string {
	if info, ok := roleInfo[r]; ok {
		return info.label
	}
	return string(r)
}

// Description summarizes what the role does.
func (r Role) Description() string {
	return roleInfo[r].description
}

func (r Role) String() string {
	return string(r)
}
