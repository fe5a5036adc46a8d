package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their wire name so clients see "symbol", not "Symbol".
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "param", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ReadAndValidateRequest binds path, query and body into req, fills defaults
// and validates. A nil return means req is ready to use; otherwise the
// returned slice of ValidationError is the response payload.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return validationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return validationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validationErrors(err)
	}
	return nil
}

func validationErrors(err error) []ValidationError {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		errs := make([]ValidationError, 0, len(ves))
		for _, e := range ves {
			errs = append(errs, ValidationError{
				Code:    "ERR_" + strings.ToUpper(e.Tag()),
				Field:   e.Field(),
				Message: errorMessage(e),
				Params:  errorParams(e),
			})
		}
		return errs
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprintf("%v", he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func errorParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
