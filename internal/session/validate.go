package session

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/vismem/internal/model"
)

// MaxDurationSeconds bounds the reveal phase.
const MaxDurationSeconds = 3600

var validate = validator.New()

type bounds struct {
	Duration float64 `validate:"gt=0,lte=3600"`
	Initial  int     `validate:"min=1,ltefield=Max"`
	Final    int     `validate:"gtefield=Initial,ltefield=Max"`
	Max      int
}

var fieldNames = map[string]string{
	"Duration": "duration_seconds",
	"Initial":  "initial_count",
	"Final":    "final_count",
}

// Validate checks cfg against the modality bound max. The first violation is
// returned as a *model.ValidationError.
func Validate(cfg model.SessionConfig, max int) error {
	b := bounds{
		Duration: cfg.DurationSeconds,
		Initial:  cfg.InitialCount,
		Final:    cfg.FinalCount,
		Max:      max,
	}
	err := validate.Struct(b)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate session config: %w", err)
	}
	fe := fieldErrs[0]
	return &model.ValidationError{
		Field:  fieldNames[fe.StructField()],
		Reason: reason(fe, b),
	}
}

func reason(fe validator.FieldError, b bounds) string {
	switch fe.Tag() {
	case "gt":
		return "must be a positive number of seconds"
	case "lte":
		return fmt.Sprintf("must be at most %d seconds", MaxDurationSeconds)
	case "min":
		return fmt.Sprintf("must be between 1 and %d", b.Max)
	case "ltefield":
		if fe.StructField() == "Final" {
			return fmt.Sprintf("must be between initial_count (%d) and %d", b.Initial, b.Max)
		}
		return fmt.Sprintf("must be between 1 and %d", b.Max)
	case "gtefield":
		return fmt.Sprintf("must be between initial_count (%d) and %d", b.Initial, b.Max)
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
