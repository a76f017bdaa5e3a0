// internal/workers/seminar/record-acknowledgment/models.go
package recordacknowledgment

type Input struct {
	SeminarID   int64 `json:"seminarId"`
	EvaluatorID int64 `json:"evaluatorId"`
}

type Output struct {
	SeminarID    int64 `json:"seminarId"`
	EvaluatorID  int64 `json:"evaluatorId"`
	Acknowledged bool  `json:"acknowledged"`
	FirstTime    bool  `json:"firstTime"`
}
