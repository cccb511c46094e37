package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SearchRequest is the body of a search call.
type SearchRequest struct {
	Query      string   `json:"query" validate:"required,min=1,max=1000"`
	MaxResults int      `json:"max_results,omitempty" validate:"omitempty,gte=1,lte=20"`
	Threshold  *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Validate checks field constraints and fills defaults from the given values.
// MaxResults defaults to defaultMax when unset; Threshold to defaultThreshold.
func (r *SearchRequest) Validate(defaultMax int, defaultThreshold float64) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid search request: %w", err)
	}
	if r.MaxResults == 0 {
		r.MaxResults = defaultMax
	}
	if r.Threshold == nil {
		t := defaultThreshold
		r.Threshold = &t
	}
	return nil
}

// ProcessRequest is the body of a process call.
type ProcessRequest struct {
	ForceUpdate bool `json:"force_update,omitempty"`
}
