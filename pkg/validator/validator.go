package validator

import (
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	uidPattern   = regexp.MustCompile(`^\d{11}$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// ErrPattern is the error key reported for the uid and phone format tags
const ErrPattern = "pattern"

// FieldErrors maps a json field name to the failed rule keys
type FieldErrors map[string][]string

// Has reports whether field carries the rule key.
func (fe FieldErrors) Has(field, key string) bool {
	for _, k := range fe[field] {
		if k == key {
			return true
		}
	}
	return false
}

// Add records key on field once.
func (fe FieldErrors) Add(field, key string) {
	if fe.Has(field, key) {
		return
	}
	fe[field] = append(fe[field], key)
	sort.Strings(fe[field])
}

// Remove drops key from field, deleting the field when nothing is left.
func (fe FieldErrors) Remove(field, key string) {
	keys := fe[field][:0:0]
	for _, k := range fe[field] {
		if k != key {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		delete(fe, field)
		return
	}
	fe[field] = keys
}

// Validator validates structs with go-playground tags
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("uid", func(fl validator.FieldLevel) bool {
		return IsUID(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// IsUID reports whether s is an 11 digit national identifier.
func IsUID(s string) bool {
	return uidPattern.MatchString(s)
}

// Validate returns the failed rules per field; an empty map means valid.
func (v *Validator) Validate(obj interface{}) FieldErrors {
	errs := FieldErrors{}
	err := v.v.Struct(obj)
	if err == nil {
		return errs
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Add("_", err.Error())
		return errs
	}
	for _, e := range verrs {
		errs.Add(e.Field(), ruleKey(e.Tag()))
	}
	return errs
}

// ValidateField returns the failed rules of a single field.
func (v *Validator) ValidateField(obj interface{}, field string) []string {
	return v.Validate(obj)[field]
}

func ruleKey(tag string) string {
	switch tag {
	case "uid", "phone":
		return ErrPattern
	case "gte":
		return "min"
	case "lte":
		return "max"
	default:
		return tag
	}
}
