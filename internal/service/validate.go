package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// validateStruct 校验结构体标签，失败时返回首个字段错误并归类为 ErrInvalidPayload
func validateStruct(value interface{}) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return payloadError("%s %s", fe.Field(), validationMessage(fe))
	}
	return fmt.Errorf("%s: %w", err.Error(), ErrInvalidPayload)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "iso4217":
		return "must be an ISO-4217 currency code"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "http_url", "url":
		return "must be an http(s) url"
	}
	return "is invalid"
}
