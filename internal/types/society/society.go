package society

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

const Collection = "societies"

// Sub-collections counted on the society detail view.
const (
	ResidentsCollection = "residents"
	GuardsCollection    = "guards"
	StaffCollection     = "staff"
	VisitorsCollection  = "visitors"
	UnitsCollection     = "units"
)

// Features lists the module switches a society can have turned on.
var Features = []string{"visitor", "maintenance", "notices", "staff"}

func KnownFeature(name string) bool {
	for _, f := range Features {
		if f == name {
			return true
		}
	}
	return false
}

type Society struct {
	ID             string          `json:"id" firestore:"-"`
	Name           string          `json:"name" firestore:"name"`
	Address        string          `json:"address" firestore:"address"`
	Plan           string          `json:"plan" firestore:"plan"`
	PlanPrice      float64         `json:"planPrice" firestore:"planPrice"`
	BillingCycle   string          `json:"billingCycle" firestore:"billingCycle"`
	PlanType       string          `json:"planType,omitempty" firestore:"planType,omitempty"`
	PlanExpiryDate *time.Time      `json:"planExpiryDate,omitempty" firestore:"planExpiryDate,omitempty"`
	Status         Status          `json:"status" firestore:"status"`
	TotalUnits     int             `json:"totalUnits" firestore:"totalUnits"`
	UnitsUsed      int             `json:"unitsUsed" firestore:"unitsUsed"`
	Features       map[string]bool `json:"features,omitempty" firestore:"features,omitempty"`
	QRKey          string          `json:"qrKey,omitempty" firestore:"qrKey,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// View is a society as returned to the operator, carrying the status derived
// from the stored status and the plan expiry.
type View struct {
	*Society
	EffectiveStatus Status `json:"effectiveStatus"`
}

type Stats struct {
	Residents int `json:"residents"`
	Guards    int `json:"guards"`
	Staff     int `json:"staff"`
	Visitors  int `json:"visitors"`
}

type Detail struct {
	View
	Stats Stats `json:"stats"`
}

type CreateSocietyRequest struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Plan         string   `json:"plan"`
	PlanPrice    *float64 `json:"planPrice,omitempty"`
	Units        int      `json:"units"`
	PricePerUnit float64  `json:"pricePerUnit"`
	BillingCycle string   `json:"billingCycle"`
	AdminName    string   `json:"adminName"`
	AdminEmail   string   `json:"adminEmail"`
}

type CreateSocietyResponse struct {
	SocietyID string `json:"societyId"`
	AdminUID  string `json:"adminUid,omitempty"`
}

type UpdateSocietyRequest struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Plan         string  `json:"plan"`
	PlanPrice    float64 `json:"planPrice"`
	BillingCycle string  `json:"billingCycle"`
}

type SetFeatureRequest struct {
	Enabled *bool `json:"enabled"`
}

type DashboardStats struct {
	TotalSocieties int     `json:"totalSocieties"`
	TotalRevenue   float64 `json:"totalRevenue"`
	ActivePlans    int     `json:"activePlans"`
	InactivePlans  int     `json:"inactivePlans"`
	ExpiredPlans   int     `json:"expiredPlans"`
	SuspendedPlans int     `json:"suspendedPlans"`
}
