package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"order-sync-gateway/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	skuRe      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-\.]{0,63}$`)
	currencyRe = regexp.MustCompile(`^[A-Za-z]{3}$`)
	countryRe  = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register installs the custom rules and JSON field naming on v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("sku", validateSKU)
	_ = v.RegisterValidation("currency", validateCurrency)
	_ = v.RegisterValidation("iso_country", validateCountry)
	_ = v.RegisterValidation("safe_url", validateSafeURL)
}

func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		tag = f.Tag.Get("form")
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateSKU(fl validator.FieldLevel) bool {
	return skuRe.MatchString(fl.Field().String())
}

// validateCurrency accepts a three-letter ISO-4217 style code in any case.
func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRe.MatchString(fl.Field().String())
}

// validateCountry accepts an ISO-3166 alpha-2 code in any case.
func validateCountry(fl validator.FieldLevel) bool {
	return countryRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

// validateSafeURL accepts only absolute http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Violations translates a binding error into one violation per failed field.
// Decoding errors that stop binding early yield a single violation.
func Violations(err error) []apperror.Violation {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verrs):
		out := make([]apperror.Violation, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, apperror.Violation{
				Field:   fieldPath(fe),
				Rule:    fe.Tag(),
				Message: message(fe),
			})
		}
		return out
	case errors.As(err, &typeErr):
		return []apperror.Violation{{
			Field:   typeErr.Field,
			Rule:    "type",
			Message: fmt.Sprintf("must be %s", typeErr.Type),
		}}
	case errors.As(err, &synErr), errors.Is(err, io.ErrUnexpectedEOF):
		return []apperror.Violation{{Field: "body", Rule: "json", Message: "body is not valid JSON"}}
	case errors.As(err, &maxErr):
		return []apperror.Violation{{Field: "body", Rule: "max_bytes", Message: fmt.Sprintf("body exceeds %d bytes", maxErr.Limit)}}
	case errors.Is(err, io.EOF):
		return []apperror.Violation{{Field: "body", Rule: "required", Message: "body is required"}}
	}
	return []apperror.Violation{{Field: "body", Rule: "invalid", Message: err.Error()}}
}

// fieldPath drops the root struct name: "OrderRequest.items[0].sku" becomes
// "items[0].sku".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is absent", fe.Param())
	case "required_with":
		return fmt.Sprintf("is required together with %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "sku":
		return "must be a catalog SKU (letters, digits, '-', '_', '.')"
	case "currency":
		return "must be a three-letter currency code"
	case "iso_country":
		return "must be an ISO-3166 alpha-2 country code"
	case "safe_url":
		return "must be an absolute http(s) URL"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
