package models

import "time"

// Seminar is one selection seminar run by an organization.
type Seminar struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organizationId" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Active         bool      `json:"active" db:"active"`
	StartsAt       time.Time `json:"startsAt" db:"starts_at"`
	EndsAt         time.Time `json:"endsAt" db:"ends_at"`
}

// Acknowledgment records the one-time confidentiality confirmation an
// evaluator gives before flushing ratings or viewing rankings.
type Acknowledgment struct {
	SeminarID      int64     `json:"seminarId" db:"seminar_id"`
	EvaluatorID    int64     `json:"evaluatorId" db:"evaluator_id"`
	AcknowledgedAt time.Time `json:"acknowledgedAt" db:"acknowledged_at"`
}
