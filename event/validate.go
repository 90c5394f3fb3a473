package event

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"axiapac.com/timeclock/geo"
	"axiapac.com/timeclock/model"
	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

type Check string

const (
	CheckAccuracy Check = "gps_accuracy"
	CheckGeofence Check = "geofence"
	CheckWindow   Check = "allowed_window"
	CheckPayload  Check = "payload"
)

// ValidationError is a pre-submission rejection. Reason is meant for the user.
type ValidationError struct {
	Check  Check
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type Validator struct {
	MaxAccuracyM float64
	validate     *validator.Validate
}

func NewValidator(maxAccuracyM float64) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{MaxAccuracyM: maxAccuracyM, validate: v}
}

// Precheck runs the accuracy, geofence and allowed-hours gates in that order and
// returns the first failure. It performs no I/O.
func (v *Validator) Precheck(gps model.GPS, job *model.Job, at time.Time) error {
	if check := geo.ValidateAccuracy(gps, v.MaxAccuracyM); !check.CanProceed {
		return &ValidationError{Check: CheckAccuracy, Reason: check.Reason}
	}

	if job != nil && job.HasGeofence() {
		fence := geo.IsWithinGeofence(gps, job)
		if !fence.IsInside {
			return &ValidationError{
				Check:  CheckGeofence,
				Reason: fmt.Sprintf("You are %.0fm from %s; punches are allowed within %.0fm.", fence.Distance, jobLabel(job), job.GeofenceRadiusM),
			}
		}
	}

	if !geo.IsWithinAllowedWindow(job, at) {
		return &ValidationError{
			Check:  CheckWindow,
			Reason: fmt.Sprintf("Punches for %s are only allowed between %s and %s.", jobLabel(job), job.AllowedHours.Start, job.AllowedHours.End),
		}
	}
	return nil
}

// ValidatePayload checks the structural constraints of a built event.
func (v *Validator) ValidatePayload(e *model.TimeClockEvent) error {
	err := v.validate.Struct(e)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	var out []string
	for _, fe := range ve {
		out = append(out, formatFieldError(fe))
	}
	return &ValidationError{Check: CheckPayload, Reason: strings.Join(out, ", ")}
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fieldPath(fe))
	case "uuid4":
		return fmt.Sprintf("Field '%s' must be a version 4 UUID", fieldPath(fe))
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", fieldPath(fe), fe.Param())
	case "latitude", "longitude":
		return fmt.Sprintf("Field '%s' must be a valid %s", fieldPath(fe), fe.Tag())
	case "gte":
		return fmt.Sprintf("Field '%s' must be at least %s", fieldPath(fe), fe.Param())
	}
	return fmt.Sprintf("Field '%s' failed validation for '%s'", fieldPath(fe), fe.Tag())
}

// fieldPath drops the root struct name, e.g. "gps.lat".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func jobLabel(job *model.Job) string {
	if job.Name != "" {
		return job.Name
	}
	return "job " + job.ID
}
