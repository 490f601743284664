// Package validation wraps go-playground/validator so request structs report
// failures by their JSON field names as VALIDATION_ERROR.
package validation

import (
	"errors"
	"html"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
)

var (
	once     sync.Once
	validate *validator.Validate
	strict   *bluemonday.Policy
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		strict = bluemonday.StrictPolicy()
	})
	return validate
}

// Struct validates v. Missing required fields are reported together; any
// other rule failure is reported for the first offending field.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Validation("Invalid request")
	}

	var missing []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperrors.Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}

	fe := fieldErrs[0]
	if fe.Param() != "" {
		return apperrors.Validation("Invalid %s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return apperrors.Validation("Invalid %s", fe.Field())
}

// Sanitize strips all markup from user supplied text and returns plain text:
// entities produced by the policy are decoded again, so "&" stays "&".
func Sanitize(s string) string {
	instance()
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// SanitizeAll sanitizes each element and drops the ones left empty.
func SanitizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if clean := Sanitize(v); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
