// Package validate runs struct-tag validation and turns failures into the
// per-field messages returned to API clients.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Isaacolagoke/Testai/internal/apierr"
)

// Messages maps a field path (json names, dot separated, no indices) to the
// message reported when any rule on that field fails.
type Messages map[string]string

var (
	v        = newValidator()
	indexRE  = regexp.MustCompile(`\[\d+\]`)
	emptyRaw = [][]byte{[]byte(""), []byte("null"), []byte(`""`), []byte("[]")}
)

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// present: a json.RawMessage carrying a non-empty value.
	_ = val.RegisterValidation("present", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Slice {
			return false
		}
		raw := bytes.TrimSpace(f.Bytes())
		for _, e := range emptyRaw {
			if bytes.Equal(raw, e) {
				return false
			}
		}
		return true
	})
	return val
}

// Struct validates s. It returns nil when s is valid, otherwise a validation
// error listing one message per failing field path.
func Struct(s any, msgs Messages) *apierr.Error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Validation(err.Error())
	}
	out := make([]string, 0, len(verrs))
	seen := map[string]bool{}
	for _, fe := range verrs {
		m := messageFor(fe, msgs)
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return apierr.Validation(out...)
}

// Var validates a single value against tag.
func Var(value any, tag string) bool {
	return v.Var(value, tag) == nil
}

// IsUUID reports whether s is a canonical UUID.
func IsUUID(s string) bool { return Var(s, "required,uuid") }

func messageFor(fe validator.FieldError, msgs Messages) string {
	path := fieldPath(fe.Namespace())
	if m, ok := msgs[path]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid", path)
}

// fieldPath turns "submitRequest.answers[2].question_id" into "answers.question_id".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return indexRE.ReplaceAllString(ns, "")
}
