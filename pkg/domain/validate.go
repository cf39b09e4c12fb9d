package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"experimentdb/pkg/routes"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator configured for domain records.
// Field names in errors follow the JSON names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(f reflect.Value) any {
			return f.Interface().(Ref).ID
		}, Ref{})
		v.RegisterCustomTypeFunc(func(f reflect.Value) any {
			return f.Interface().(ExperimentRef).ID
		}, ExperimentRef{})
		v.RegisterCustomTypeFunc(func(f reflect.Value) any {
			return f.Interface().(Date).String()
		}, Date{})
		if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return routes.ValidSlug(fl.Field().String())
		}); err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}

// Validate checks presence, length and enum constraints of a record and
// translates the first failure into a *ValidationError.
func Validate(entity EntityType, record any) error {
	err := Validator().Struct(record)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Entity: entity, Field: fe.Field(), Reason: reason(fe)}
	}
	return fmt.Errorf("validate %s: %w", entity, err)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "slug":
		return "must contain only letters, digits, underscores and hyphens"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// Validate checks the cloning record.
func (c Cloning) Validate() error { return Validate(EntityCloning, c) }

// Validate checks the mutagenesis record.
func (m Mutagenesis) Validate() error { return Validate(EntityMutagenesis, m) }

// Validate checks the protocol record.
func (p Protocol) Validate() error { return Validate(EntityProtocol, p) }

// Validate checks the experiment record.
func (e Experiment) Validate() error { return Validate(EntityExperiment, e) }

// Validate checks the result record.
func (r Result) Validate() error { return Validate(EntityResult, r) }

// Validate checks the sequencing record.
func (s Sequencing) Validate() error { return Validate(EntitySequencing, s) }

// Validate checks the cohort record.
func (a AnimalCohort) Validate() error { return Validate(EntityCohort, a) }
