package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Status is the outcome of a single deployment.
type Status string

const (
	StatusBuilding   Status = "building"
	StatusFailed     Status = "failed"
	StatusSuccessful Status = "successful"
)

// Deployment is one app's build result for the current run.
type Deployment struct {
	Name   string `json:"name" validate:"required"`
	Status Status `json:"status" validate:"required,oneof=building failed successful"`
	URL    string `json:"url,omitempty"`
}

// ValidationError describes why a deployments payload was rejected.
// Index is -1 when the problem concerns the payload as a whole.
type ValidationError struct {
	Index  int
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	if e.Value != "" {
		return fmt.Sprintf("deployment at index %d: %s %q: %s", e.Index, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("deployment at index %d: %s: %s", e.Index, e.Field, e.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse decodes a JSON array of deployments and validates every entry.
// Statuses are normalized to lower case.
func Parse(raw string) ([]Deployment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ValidationError{Index: -1, Reason: "deployments input is required"}
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &ValidationError{Index: -1, Reason: fmt.Sprintf("invalid deployments JSON: %v", err)}
	}

	items, ok := payload.([]any)
	if !ok {
		return nil, &ValidationError{Index: -1, Reason: "deployments must be a JSON array"}
	}

	deployments := make([]Deployment, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ValidationError{Index: i, Field: "deployment", Reason: "must be a JSON object"}
		}

		d := Deployment{}
		for _, f := range []struct {
			key string
			dst *string
		}{
			{"name", &d.Name},
			{"url", &d.URL},
		} {
			if err := stringField(obj, i, f.key, f.dst); err != nil {
				return nil, err
			}
		}
		var status string
		if err := stringField(obj, i, "status", &status); err != nil {
			return nil, err
		}
		d.Status = Status(status)

		deployments = append(deployments, d)
	}

	return Normalize(deployments)
}

func stringField(obj map[string]any, index int, key string, dst *string) error {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return &ValidationError{Index: index, Field: key, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	*dst = s
	return nil
}

// Normalize lower-cases statuses, trims names and validates the list. A name
// made only of spaces, control or format characters counts as missing. The input is not
// modified; a new slice is returned.
func Normalize(deployments []Deployment) ([]Deployment, error) {
	if len(deployments) == 0 {
		return nil, &ValidationError{Index: -1, Reason: "deployments must contain at least one entry"}
	}

	out := make([]Deployment, len(deployments))
	for i, d := range deployments {
		raw := string(d.Status)
		d.Status = Status(strings.ToLower(strings.TrimSpace(raw)))
		d.Name = strings.TrimSpace(d.Name)
		if !hasVisibleRune(d.Name) {
			d.Name = ""
		}

		if err := validate.Struct(d); err != nil {
			return nil, toValidationError(i, raw, err)
		}
		out[i] = d
	}
	return out, nil
}

func hasVisibleRune(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.In(r, unicode.Cc, unicode.Cf) {
			return true
		}
	}
	return false
}

func toValidationError(index int, rawStatus string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("deployment at index %d: %w", index, err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Index: index, Field: fe.Field(), Reason: "missing required field"}
	case "oneof":
		return &ValidationError{
			Index:  index,
			Field:  fe.Field(),
			Value:  rawStatus,
			Reason: "must be one of building, failed, successful",
		}
	default:
		return &ValidationError{Index: index, Field: fe.Field(), Reason: fmt.Sprintf("failed %q validation", fe.Tag())}
	}
}
