// Package validate runs struct-tag validation on request payloads.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required        field must not be zero/empty (strings are trimmed)
//	omitempty       if empty, skip the remaining rules for this field
//	email           valid email address
//	min=N           string: min char length | number: min value | slice: min length
//	max=N           string: max char length | number: max value | slice: max length
//	gt=N            number > N
//	gte=N           number >= N
//	in=a|b|c        value must be one of the listed items
//	dive            validate every element of a slice of structs
//
// Example:
//
//	type Input struct {
//	    Email string      `json:"email" validate:"required,email"`
//	    Role  string      `json:"role"  validate:"omitempty,in=admin|manager|staff"`
//	    Items []OrderItem `json:"items" validate:"required,min=1,dive"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Struct validates all exported fields of v that carry a `validate` tag.
// Returns a map of field path → error message; empty map means no errors.
// Nested slice elements are reported as "items[2].quantity".
func Struct(v any) map[string]string {
	errs := make(map[string]string)
	walk(reflect.ValueOf(v), "", errs)
	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// First returns the message for the alphabetically first failing field,
// for endpoints that report a single error string.
func First(errs map[string]string) string {
	var key string
	for k := range errs {
		if key == "" || k < key {
			key = k
		}
	}
	return errs[key]
}

func walk(rv reflect.Value, prefix string, errs map[string]string) {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" || !field.IsExported() {
			continue
		}

		value := rv.Field(i)
		name := prefix + jsonFieldName(field)
		rules := strings.Split(tag, ",")

		if hasRule(rules, "omitempty") && isEmpty(value) {
			continue
		}

		failed := false
		for _, rule := range rules {
			if rule == "omitempty" || rule == "dive" {
				continue
			}
			if msg := applyRule(rule, name, value); msg != "" {
				errs[name] = msg
				failed = true
				break
			}
		}

		if !failed && hasRule(rules, "dive") && value.Kind() == reflect.Slice {
			for j := 0; j < value.Len(); j++ {
				walk(value.Index(j), fmt.Sprintf("%s[%d].", name, j), errs)
			}
		}
	}
}

func applyRule(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("%s is required", field)
		}
	case "email":
		if !emailRE.MatchString(strings.TrimSpace(v.String())) {
			return fmt.Sprintf("%s must be a valid email address", field)
		}
	case "min":
		n := mustParseFloat(param)
		if size(v) < n {
			return fmt.Sprintf("%s must be at least %s%s", field, param, unit(v))
		}
	case "max":
		n := mustParseFloat(param)
		if size(v) > n {
			return fmt.Sprintf("%s must not exceed %s%s", field, param, unit(v))
		}
	case "gt":
		if toFloat(v) <= mustParseFloat(param) {
			return fmt.Sprintf("%s must be greater than %s", field, param)
		}
	case "gte":
		if toFloat(v) < mustParseFloat(param) {
			return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
		}
	case "in":
		raw := fmt.Sprintf("%v", v.Interface())
		for _, a := range strings.Split(param, "|") {
			if raw == a {
				return ""
			}
		}
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, "|", ", "))
	}

	return ""
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

// size is the measured quantity for min/max: value for numbers, length otherwise.
func size(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.String:
		return float64(len([]rune(v.String())))
	case reflect.Slice, reflect.Map, reflect.Array:
		return float64(v.Len())
	}
	return toFloat(v)
}

func unit(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array:
		return " entries"
	}
	return ""
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return f.Name
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}
