package services

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	apperrors "github.com/vytor/studyflow/internal/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

func structValidator() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		validate = validator.New()
		enLocale := en.New()
		translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, translator)
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate, translator
}

// ValidateStruct checks v's validate tags and reports the first failing field
// as a VALIDATION_ERROR.
func ValidateStruct(v any) error {
	validate, trans := structValidator()
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewBadRequestError(err.Error())
	}
	fe := verrs[0]
	return apperrors.NewValidationError(fe.Field(), fe.Translate(trans))
}
