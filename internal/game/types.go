package game

import "github.com/pefman/armorsheet/internal/models"

// HitRecord captures how a single hit was mitigated and apportioned.
type HitRecord struct {
	Roll       int               `json:"roll"`
	Locations  []models.Location `json:"locations"`
	Protection int               `json:"protection"`
	Cover      int               `json:"cover"`
	Leftover   int               `json:"leftover"`
	Adjusted   int               `json:"adjusted"`
	Ablated    int               `json:"ablated,omitempty"`
	Wounds     int               `json:"wounds"`
}

// Resolution captures the outcome of one attack and a step log for display.
type Resolution struct {
	Logs       []string    `json:"logs"`
	DamageType string      `json:"damage_type"`
	Hits       []HitRecord `json:"hits"`
	Wounds     []Wound     `json:"wounds"`
	// DamageIn is the adjusted damage that got past armor; DamageOut is what the wounds carry.
	// They differ only when spread wounds touch the head.
	DamageIn  int `json:"damage_in"`
	DamageOut int `json:"damage_out"`
	Ablated   int `json:"ablated,omitempty"`
	// Seed reproduces the rolls when set by the caller that built the RNG.
	Seed int64 `json:"seed,omitempty"`
}
