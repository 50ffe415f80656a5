// Package validation installs the custom rules and field naming used by request
// binding on gin's shared validator engine.
package validation

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var once sync.Once

// Register is idempotent; call it before the first request is bound.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		Install(v)
	})
}

// Install adds the custom rules to v and reports fields by their wire names.
func Install(v *validator.Validate) {
	v.RegisterTagNameFunc(wireName)
	_ = v.RegisterValidation("strongpassword", strongPassword)
}

// wireName prefers the query form tag, then the json tag, then the Go name.
func wireName(f reflect.StructField) string {
	for _, key := range []string{"form", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// StrongPassword reports whether s has an upper-case letter, a lower-case
// letter and a digit. Length is checked separately with min.
func StrongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func strongPassword(fl validator.FieldLevel) bool {
	return StrongPassword(fl.Field().String())
}
