package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

var (
	// custom validation tags & texts
	codeTag   = "code"
	codeText  = "only letters, digits, dashes and underscores are allowed"
	codeRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// validate wrapper types by their underlying value
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	validate.RegisterCustomTypeFunc(dateValue, Date{})
	validate.RegisterCustomTypeFunc(monthValue, Month{})
	validate.RegisterCustomTypeFunc(nullValue, null.String{}, null.Time{})

	// register custom validators
	_ = validate.RegisterValidation(codeTag, codeValidation)
	RegisterCustomTranslation(validate, translator, codeTag, codeText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Type Funcs

func decimalValue(v reflect.Value) interface{} {
	switch d := v.Interface().(type) {
	case decimal.Decimal:
		f, _ := d.Float64()
		return f
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		f, _ := d.Decimal.Float64()
		return f
	}
	return nil
}

func dateValue(v reflect.Value) interface{} {
	if d, ok := v.Interface().(Date); ok && !d.IsZero() {
		return d.Time
	}
	return nil
}

func monthValue(v reflect.Value) interface{} {
	if m, ok := v.Interface().(Month); ok && !m.IsZero() {
		return m.String()
	}
	return nil
}

func nullValue(v reflect.Value) interface{} {
	switch n := v.Interface().(type) {
	case null.String:
		if n.Valid {
			return n.String
		}
	case null.Time:
		if n.Valid {
			return n.Time
		}
	}
	return nil
}

// Custom Global Validators

// codeValidation only allows letters, digits, dashes and underscores.
func codeValidation(fl validator.FieldLevel) bool {
	return codeRegex.MatchString(fl.Field().String())
}
