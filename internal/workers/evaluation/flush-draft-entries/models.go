// internal/workers/evaluation/flush-draft-entries/models.go
package flushdraftentries

type Input struct {
	SeminarID      int64        `json:"seminarId"`
	EvaluatorID    int64        `json:"evaluatorId"`
	OrganizationID int64        `json:"organizationId"`
	Tokens         []TokenInput `json:"tokens"`
}

type TokenInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TokenResult reports the outcome of one token. Skipped tokens carry the
// error code; their keys are never echoed in ClearTokens.
type TokenResult struct {
	Key       string `json:"key"`
	Status    string `json:"status"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type Output struct {
	BatchID     string        `json:"batchId"`
	Inserted    int           `json:"inserted"`
	Updated     int           `json:"updated"`
	Skipped     int           `json:"skipped"`
	ClearTokens []string      `json:"clearTokens"`
	Results     []TokenResult `json:"results"`
}
