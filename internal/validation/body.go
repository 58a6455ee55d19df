// Package validation decodes request bodies and checks them against
// validator struct tags, reporting failures as VALIDATION_ERROR.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tagwarden/server/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// DecodeOption adjusts how DecodeJSONBody and DecodeJSON treat the payload.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	allowUnknown bool
}

// AllowUnknownFields accepts and ignores JSON keys that dest does not declare.
// Device payloads use it so newer firmware can add fields.
func AllowUnknownFields() DecodeOption {
	return func(c *decodeConfig) { c.allowUnknown = true }
}

// DecodeJSONBody reads at most maxBytes of JSON into dest, then validates
// dest. Unknown fields are rejected unless AllowUnknownFields is passed.
func DecodeJSONBody(r *http.Request, dest any, maxBytes int64, opts ...DecodeOption) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	body := io.Reader(r.Body)
	if maxBytes > 0 {
		body = io.LimitReader(r.Body, maxBytes+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	if maxBytes > 0 && int64(len(raw)) > maxBytes {
		return apperr.New(apperr.CodeValidation, "request body too large")
	}

	return DecodeJSON(raw, dest, opts...)
}

// DecodeJSON is DecodeJSONBody for bytes already in hand.
func DecodeJSON(raw []byte, dest any, opts ...DecodeOption) error {
	var cfg decodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	if !cfg.allowUnknown {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dest); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if decoder.More() {
		return apperr.New(apperr.CodeValidation, "invalid request body").
			WithDetails(map[string]any{"error": "trailing data after JSON value"})
	}
	return Struct(dest)
}

// Struct validates v against its validate tags.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *apperr.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		first := ""
		for _, fieldErr := range errs {
			msg := validationMessage(fieldErr)
			details[fieldErr.Field()] = msg
			if first == "" {
				first = fieldErr.Field() + " " + msg
			}
		}
		return apperr.New(apperr.CodeValidation, first).WithDetails(details)
	}
	return apperr.Wrap(apperr.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "ip":
		return "must be a valid IP address"
	case "hexadecimal":
		return "must be hexadecimal"
	}
	return "is invalid"
}
