package operator

// Collection holds one document per console user, keyed by auth uid.
const Collection = "users"

const RoleSuperAdmin = "superadmin"

type User struct {
	UID      string `json:"uid" firestore:"-"`
	Name     string `json:"name,omitempty" firestore:"name,omitempty"`
	Email    string `json:"email,omitempty" firestore:"email,omitempty"`
	Role     string `json:"role" firestore:"role"`
	IsActive bool   `json:"isActive" firestore:"isActive"`
}
