// Package drafttoken encodes and decodes the ephemeral rating and comment
// entries an evaluator's client buffers before committing them. The legacy
// key grammar (codec.go) is the wire format the clients speak; Record is
// the structured form everything downstream works with, with a documented
// JSON encoding validated against a schema.
package drafttoken

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Kind discriminates the two draft entry variants.
type Kind string

const (
	KindRating  Kind = "rating"
	KindComment Kind = "comment"
)

// Record is a decoded draft entry. QuestionID is set for ratings only;
// CategoryID and ShowName are used by comments only. Score carries the
// parsed numeric value for ratings; Value the raw text for comments.
type Record struct {
	Kind        Kind    `json:"kind"`
	ApplicantID int64   `json:"applicantId"`
	UnitID      int64   `json:"unitId"`
	EvaluatorID int64   `json:"evaluatorId"`
	QuestionID  *int64  `json:"questionId,omitempty"`
	CategoryID  *int64  `json:"categoryId,omitempty"`
	ShowName    *bool   `json:"showName,omitempty"`
	Score       float64 `json:"score"`
	Value       string  `json:"value"`
}

// recordSchema is the canonical JSON encoding of a draft record. It
// replaces the positional key grammar for any consumer that does not need
// wire compatibility with existing clients.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "DraftRecord",
  "type": "object",
  "required": ["kind", "applicantId", "unitId", "evaluatorId"],
  "properties": {
    "kind": {"type": "string", "enum": ["rating", "comment"]},
    "applicantId": {"type": "integer", "minimum": 1},
    "unitId": {"type": "integer", "minimum": 1},
    "evaluatorId": {"type": "integer", "minimum": 1},
    "questionId": {"type": "integer", "minimum": 1},
    "categoryId": {"type": "integer", "minimum": 1},
    "showName": {"type": "boolean"},
    "score": {"type": "number"},
    "value": {"type": "string"}
  },
  "allOf": [
    {
      "if": {"properties": {"kind": {"const": "rating"}}},
      "then": {"required": ["questionId", "score"]}
    },
    {
      "if": {"properties": {"kind": {"const": "comment"}}},
      "then": {"required": ["showName", "value"]}
    }
  ],
  "additionalProperties": false
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// ValidateJSON checks a JSON-encoded draft record against the canonical
// schema and returns all violations.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("draft record invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// UnmarshalRecord parses and validates a JSON-encoded draft record.
func UnmarshalRecord(data []byte) (Record, error) {
	if err := ValidateJSON(data); err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal draft record: %w", err)
	}
	return rec, nil
}
