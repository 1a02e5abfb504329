// Package inputval validates request DTOs with go-playground/validator.
//
// Struct fields carry `validate` rules and an optional `label` used in
// messages; without a label the json name is used.
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the failed rules of one Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Err returns a validation *apperr.Error carrying All(), or nil.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apperr.Validation(r.All())
}

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if label := fld.Tag.Get("label"); label != "" {
				return label
			}
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("docid", func(fl validator.FieldLevel) bool {
			return IsValidDocID(fl.Field().String())
		})
		_ = v.RegisterValidation("readingstatus", func(fl validator.FieldLevel) bool {
			return IsValidReadingStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("spacetype", func(fl validator.FieldLevel) bool {
			t := fl.Field().String()
			return t == models.SpaceTypeCommunity || t == models.SpaceTypeGroup
		})
	})
	return v
}

// Validate runs the struct rules of s.
func Validate(s any) *Result {
	res := &Result{}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return res
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", f, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", f, fe.Param())
	case "email":
		return "A valid email address is required."
	case "url", "http_url":
		return f + " must be a valid URL."
	case "oneof":
		return f + " must be one of: " + fe.Param() + "."
	case "readingstatus":
		return f + " must be one of: " + strings.Join(models.ReadingStatuses, ", ") + "."
	case "spacetype":
		return f + " must be community or group."
	case "objectid":
		return f + " is not a valid id."
	case "docid":
		return f + " must not contain '.' or start with '$'."
	case "lte":
		return fmt.Sprintf("%s must be at most %s.", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", f, fe.Param())
	default:
		return f + " is invalid."
	}
}

// IsValidObjectID reports whether s is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidDocID reports whether s can be used as a key inside a document:
// non-blank, no '.', no leading '$'.
func IsValidDocID(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return !strings.Contains(s, ".") && !strings.HasPrefix(s, "$")
}

// IsValidReadingStatus reports whether s is a known reading status.
func IsValidReadingStatus(s string) bool {
	for _, st := range models.ReadingStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsValidEmail reports whether s is a bare email address.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return instance().Var(s, "email") == nil
}
