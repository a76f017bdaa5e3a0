// internal/workers/seminar/check-acknowledgment/models.go
package checkacknowledgment

type Input struct {
	SeminarID   int64 `json:"seminarId"`
	EvaluatorID int64 `json:"evaluatorId"`
}

type Output struct {
	SeminarID    int64 `json:"seminarId"`
	EvaluatorID  int64 `json:"evaluatorId"`
	Acknowledged bool  `json:"acknowledged"`
}
