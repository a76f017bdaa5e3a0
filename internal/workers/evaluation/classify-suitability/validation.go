// internal/workers/evaluation/classify-suitability/validation.go
package classifysuitability

import "seminar-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"applicantId", "organizationId", "tier"},
		Properties: map[string]validation.Property{
			"applicantId": {
				Type:        "number",
				Description: "Applicant to classify",
			},
			"organizationId": {
				Type:        "number",
				Description: "Owning organization, used to scope the update",
			},
			"tier": {
				Type:        "string",
				Description: "Suitability tier decided by the evaluator",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(32),
			},
			"decidedBy": {
				Type:        "number",
				Description: "Evaluator who made the decision",
			},
		},
		AdditionalProperties: false,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"applicantId": {
				Type:        "number",
				Description: "Classified applicant",
			},
			"tier": {
				Type:        "string",
				Description: "Tier now stored on the applicant",
			},
			"previousTier": {
				Type:        "string",
				Description: "Tier before this decision",
			},
			"updatedAt": {
				Type:        "string",
				Description: "Timestamp of the update",
			},
		},
		AdditionalProperties: false,
	}
}

func intPtr(i int) *int {
	return &i
}
