// internal/workers/placement/auto-assign-placements/models.go
package autoassignplacements

type Input struct {
	SeminarID      int64 `json:"seminarId"`
	OrganizationID int64 `json:"organizationId"`
}

type Assignment struct {
	ApplicantID int64 `json:"applicantId"`
	PlacementID int64 `json:"placementId"`
	ChoiceRank  int   `json:"choiceRank"`
}

type PlacementOccupancy struct {
	PlacementID int64  `json:"placementId"`
	Capacity    *int64 `json:"capacity"`
	Assigned    int    `json:"assigned"`
}

type Output struct {
	SeminarID  int64                `json:"seminarId"`
	Assigned   []Assignment         `json:"assigned"`
	Unassigned []int64              `json:"unassigned"`
	Placements []PlacementOccupancy `json:"placements"`
}
