package models

import "time"

// Unit is a rating station or phase within the seminar. Every rating and
// comment is attributed to exactly one unit.
type Unit struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organizationId" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	Position       int    `json:"position" db:"position"`
}

// Category groups related questions and is used for sub-aggregation and
// for categorizing comments.
type Category struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organizationId" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	Position       int    `json:"position" db:"position"`
}

// Question belongs to one category. The numeric bounds are advisory and
// not enforced by the engine.
type Question struct {
	ID         int64   `json:"id" db:"id"`
	CategoryID int64   `json:"categoryId" db:"category_id"`
	Text       string  `json:"text" db:"text"`
	Min        float64 `json:"min" db:"min_value"`
	Max        float64 `json:"max" db:"max_value"`
}

// Rating is a scalar score keyed by (applicant, evaluator, unit, question).
// Exactly one row exists per key; later writes overwrite earlier ones.
type Rating struct {
	ApplicantID int64     `json:"applicantId" db:"applicant_id"`
	EvaluatorID int64     `json:"evaluatorId" db:"evaluator_id"`
	UnitID      int64     `json:"unitId" db:"unit_id"`
	QuestionID  int64     `json:"questionId" db:"question_id"`
	Score       float64   `json:"score" db:"score"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Comment is free text keyed by (applicant, evaluator, unit,
// category-or-none). One row per key. The two presentation flags control
// visibility during the presentation round.
type Comment struct {
	ApplicantID        int64     `json:"applicantId" db:"applicant_id"`
	EvaluatorID        int64     `json:"evaluatorId" db:"evaluator_id"`
	UnitID             int64     `json:"unitId" db:"unit_id"`
	CategoryID         *int64    `json:"categoryId,omitempty" db:"category_id"`
	Body               string    `json:"body" db:"body"`
	ShowAtPresentation bool      `json:"showAtPresentation" db:"show_at_presentation"`
	ShowEvaluatorName  bool      `json:"showEvaluatorName" db:"show_evaluator_name"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// CategoryMean is a per-category aggregate for one applicant.
type CategoryMean struct {
	ApplicantID int64   `json:"applicantId"`
	CategoryID  int64   `json:"categoryId"`
	Mean        float64 `json:"mean"`
}
