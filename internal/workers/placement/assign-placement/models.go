// internal/workers/placement/assign-placement/models.go
package assignplacement

type Input struct {
	ApplicantID    int64  `json:"applicantId"`
	OrganizationID int64  `json:"organizationId"`
	PlacementID    *int64 `json:"placementId"`
	AssignedBy     int64  `json:"assignedBy,omitempty"`
}

type Output struct {
	ApplicantID         int64  `json:"applicantId"`
	PlacementID         *int64 `json:"placementId"`
	PreviousPlacementID *int64 `json:"previousPlacementId"`
}
