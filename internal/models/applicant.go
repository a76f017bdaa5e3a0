package models

import (
	"fmt"
	"time"
)

// Tier is the coarse suitability classification of an applicant. It is
// always assigned manually; the engine never computes it.
type Tier string

const (
	TierGeeignet        Tier = "geeignet"
	TierBedingtGeeignet Tier = "bedingt_geeignet"
	TierNichtGeeignet   Tier = "nicht_geeignet"
	TierUnset           Tier = "unset"
)

// tierRanks defines the total order used as the primary ranking key.
// Lower rank sorts first.
var tierRanks = map[Tier]int{
	TierGeeignet:        0,
	TierBedingtGeeignet: 1,
	TierNichtGeeignet:   2,
	TierUnset:           3,
}

// ParseTier validates a raw value against the closed tier set.
func ParseTier(raw string) (Tier, error) {
	t := Tier(raw)
	if _, ok := tierRanks[t]; !ok {
		return "", fmt.Errorf("unknown suitability tier %q", raw)
	}
	return t, nil
}

// Rank returns the tier's position in the ranking order (0 = first).
// Unknown values sort after every valid tier.
func (t Tier) Rank() int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return len(tierRanks)
}

// Eligible reports whether the tier qualifies for automatic placement
// assignment.
func (t Tier) Eligible() bool {
	return t == TierGeeignet || t == TierBedingtGeeignet
}

// Applicant is a candidate undergoing evaluation during a selection seminar.
type Applicant struct {
	ID             int64      `json:"id" db:"id"`
	OrganizationID int64      `json:"organizationId" db:"organization_id"`
	SeminarID      int64      `json:"seminarId" db:"seminar_id"`
	FirstName      string     `json:"firstName" db:"first_name"`
	LastName       string     `json:"lastName" db:"last_name"`
	Tier           Tier       `json:"tier" db:"tier"`
	MeanScore      *float64   `json:"meanScore,omitempty" db:"mean_score"`
	FirstChoice    *int64     `json:"firstChoice,omitempty" db:"first_choice"`
	SecondChoice   *int64     `json:"secondChoice,omitempty" db:"second_choice"`
	ThirdChoice    *int64     `json:"thirdChoice,omitempty" db:"third_choice"`
	NoWish         *int64     `json:"noWish,omitempty" db:"no_wish"`
	PlacementID    *int64     `json:"placementId,omitempty" db:"placement_id"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// Preferences returns the declared placement wishes in rank order.
// The exclusion wish (NoWish) is not part of this list; it is captured
// for manual review only.
func (a *Applicant) Preferences() []int64 {
	prefs := make([]int64, 0, 3)
	for _, p := range []*int64{a.FirstChoice, a.SecondChoice, a.ThirdChoice} {
		if p != nil {
			prefs = append(prefs, *p)
		}
	}
	return prefs
}

// Assigned reports whether the applicant currently holds a placement.
func (a *Applicant) Assigned() bool {
	return a.PlacementID != nil
}

// Less defines the total ranking order over applicants: tier first, then
// mean score ascending with unrated applicants last within their tier,
// then id as a stable final key.
func (a *Applicant) Less(b *Applicant) bool {
	if ar, br := a.Tier.Rank(), b.Tier.Rank(); ar != br {
		return ar < br
	}
	switch {
	case a.MeanScore == nil && b.MeanScore == nil:
		return a.ID < b.ID
	case a.MeanScore == nil:
		return false
	case b.MeanScore == nil:
		return true
	case *a.MeanScore != *b.MeanScore:
		return *a.MeanScore < *b.MeanScore
	}
	return a.ID < b.ID
}

// Evaluator is a user entitled to rate applicants, scoped to one
// organization.
type Evaluator struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organizationId" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	Email          string `json:"email" db:"email"`
}

// RankedApplicant is one entry of the ranked read model exposed to the
// presentation subsystem.
type RankedApplicant struct {
	Position    int      `json:"position"`
	ApplicantID int64    `json:"applicantId"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Tier        Tier     `json:"tier"`
	MeanScore   *float64 `json:"meanScore"`
	PlacementID *int64   `json:"placementId,omitempty"`
}
