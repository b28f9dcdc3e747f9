// Package schema validates API requests and outgoing events.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

// AutoDetect is the source language value that asks the endpoint to detect
// the language.
const AutoDetect = "auto"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("validation failed")

// TranslateRequest is the body of POST /v1/translate.
type TranslateRequest struct {
	Text       string `json:"text" validate:"required"`
	SourceLang string `json:"sourceLang" validate:"required,langcode"`
	TargetLang string `json:"targetLang" validate:"required,langcode,ne=auto"`
}

// CreateRequest is the body of POST /v1/translations.
type CreateRequest struct {
	SourceText     string `json:"sourceText" validate:"required"`
	TranslatedText string `json:"translatedText"`
	SourceLang     string `json:"sourceLang" validate:"omitempty,langcode"`
	TargetLang     string `json:"targetLang" validate:"omitempty,langcode"`
	Timestamp      string `json:"timestamp"`
}

// PatchRequest is the body of PUT /v1/translations/{id}.
type PatchRequest struct {
	SourceText     *string `json:"sourceText"`
	TranslatedText *string `json:"translatedText"`
	SourceLang     *string `json:"sourceLang" validate:"omitempty,langcode"`
	TargetLang     *string `json:"targetLang" validate:"omitempty,langcode"`
	Timestamp      *string `json:"timestamp"`
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("langcode", validLangCode)
	return &Validator{v: v}
}

// Validate checks a struct against its validate tags.
func (v *Validator) Validate(obj any) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	log.Debug().Strs("errors", msgs).Msg("Validation failed")
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// ValidLanguage reports whether code is a BCP 47 tag or "auto".
func ValidLanguage(code string) bool {
	if code == AutoDetect {
		return true
	}
	_, err := language.Parse(code)
	return err == nil
}

func validLangCode(fl validator.FieldLevel) bool {
	return ValidLanguage(fl.Field().String())
}

func describe(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "langcode":
		return fmt.Sprintf("%s %q is not a language code", field, fe.Value())
	case "ne":
		return fmt.Sprintf("%s cannot be %q", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
