package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
}

// CreateHabitRequest is the body of POST /api/habits.
type CreateHabitRequest struct {
	UserID          string `json:"user_id" validate:"required"`
	Name            string `json:"name" validate:"required,max=128"`
	Description     string `json:"description" validate:"max=1024"`
	Category        string `json:"category" validate:"required"`
	Difficulty      int    `json:"difficulty" validate:"required,min=1,max=5"`
	TargetFrequency string `json:"target_frequency" validate:"omitempty,oneof=daily weekly"`
}

// CompleteHabitRequest is the body of POST /api/habits/{habit_id}/complete.
// A habit_id in the body is accepted for compatibility and ignored; the path wins.
type CompleteHabitRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	HabitID     string `json:"habit_id,omitempty"`
	MoodRating  *int   `json:"mood_rating" validate:"omitempty,min=1,max=5"`
	EnergyLevel *int   `json:"energy_level" validate:"omitempty,min=1,max=5"`
	Notes       string `json:"notes" validate:"max=2048"`
}

// LogMoodRequest is the body of POST /api/mood.
type LogMoodRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	MoodRating  int    `json:"mood_rating" validate:"required,min=1,max=5"`
	EnergyLevel int    `json:"energy_level" validate:"required,min=1,max=5"`
	Notes       string `json:"notes" validate:"max=2048"`
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.WrapError("http", "Decode", shared.ErrValidation, "request body is empty", nil)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return shared.WrapError("http", "Decode", shared.ErrValidation, "request body too large", nil)
		}
		return shared.WrapError("http", "Decode", shared.ErrValidation, "invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.WrapError("http", "Validate", shared.ErrValidation, "invalid request", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return shared.NewDomainError("http", "Validate", shared.ErrValidation, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s length must be %s %s", fe.Field(), boundWord(fe.Tag()), fe.Param())
		}
		return fmt.Sprintf("%s must be %s %s", fe.Field(), boundWord(fe.Tag()), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func boundWord(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}
