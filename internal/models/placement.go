package models

// Country groups placements for display purposes.
type Country struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Placement is a capacity-bounded assignment target. A nil capacity marks
// the placement as unassignable by the automatic matching.
type Placement struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organizationId" db:"organization_id"`
	CountryID      int64  `json:"countryId" db:"country_id"`
	Name           string `json:"name" db:"name"`
	Capacity       *int   `json:"capacity,omitempty" db:"capacity"`
}

// AutoAssignable reports whether the automatic matching may fill this
// placement at the given occupancy.
func (p *Placement) AutoAssignable(occupancy int) bool {
	return p.Capacity != nil && occupancy < *p.Capacity
}

// RosterEntry is one assigned applicant in a placement roster.
type RosterEntry struct {
	ApplicantID int64    `json:"applicantId"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Tier        Tier     `json:"tier"`
	MeanScore   *float64 `json:"meanScore"`
}

// PlacementRoster is the per-placement read model exposed for display.
type PlacementRoster struct {
	PlacementID int64         `json:"placementId"`
	Name        string        `json:"name"`
	CountryID   int64         `json:"countryId"`
	Capacity    *int          `json:"capacity"`
	Occupancy   int           `json:"occupancy"`
	Applicants  []RosterEntry `json:"applicants"`
}
