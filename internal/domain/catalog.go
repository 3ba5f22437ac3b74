package domain

// VehicleSummary and CompanySummary are read-only display fields owned by the
// catalog and company directory.
type VehicleSummary struct {
	ID    int64   `json:"id"`
	Make  string  `json:"make"`
	Model string  `json:"model"`
	Year  int     `json:"year"`
	VIN   *string `json:"vin,omitempty"`
}

type CompanySummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
