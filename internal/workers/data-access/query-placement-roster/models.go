// internal/workers/data-access/query-placement-roster/models.go
package queryplacementroster

import (
	"seminar-workers/internal/models"
)

type Input struct {
	OrganizationID int64  `json:"organizationId"`
	PlacementID    *int64 `json:"placementId,omitempty"`
}

type Output struct {
	OrganizationID int64                    `json:"organizationId"`
	Rosters        []models.PlacementRoster `json:"rosters"`
	RowCount       int                      `json:"rowCount"`
}
