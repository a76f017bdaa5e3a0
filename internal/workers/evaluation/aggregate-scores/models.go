// internal/workers/evaluation/aggregate-scores/models.go
package aggregatescores

// Input selects the aggregation scope: either a whole seminar or an
// explicit applicant list. ApplicantIDs wins when both are present.
type Input struct {
	SeminarID    int64   `json:"seminarId"`
	ApplicantIDs []int64 `json:"applicantIds,omitempty"`
}

// ApplicantAggregate carries the recomputed means for one applicant. A nil
// Mean reports that no ratings exist; it is distinct from a zero mean.
type ApplicantAggregate struct {
	ApplicantID   int64             `json:"applicantId"`
	Mean          *float64          `json:"mean"`
	CategoryMeans map[int64]float64 `json:"categoryMeans"`
}

type Output struct {
	SeminarID    int64                `json:"seminarId"`
	UpdatedCount int                  `json:"updatedCount"`
	Aggregates   []ApplicantAggregate `json:"aggregates"`
}
