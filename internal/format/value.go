package format

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// displayValue renders a single value for table and text output.
// Nil pointers render as "", pointers are followed, times use RFC 3339.
func displayValue(value interface{}) string {
	if value == nil {
		return ""
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		return displayValue(rv.Elem().Interface())
	}

	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprintf("%v", value)
}

// formatHeader converts snake_case and camelCase keys to Title Case
func formatHeader(key string) string {
	var words []string
	for _, part := range strings.Split(key, "_") {
		words = append(words, splitCamel(part)...)
	}
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

func splitCamel(s string) []string {
	if s == "" {
		return nil
	}
	var words []string
	start := 0
	for i := 1; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' && s[i-1] >= 'a' && s[i-1] <= 'z' {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// toRecord flattens a struct, struct pointer or map into a Record.
// Struct fields are named by their yaml tag, falling back to the Go name;
// fields tagged "-" are skipped.
func toRecord(data interface{}) (Record, bool) {
	switch v := data.(type) {
	case Record:
		return v, true
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec := make(Record, 0, len(keys))
		for _, k := range keys {
			rec = rec.Add(k, v[k])
		}
		return rec, true
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	if _, isTime := rv.Interface().(time.Time); isTime {
		return nil, false
	}

	rt := rv.Type()
	rec := make(Record, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("yaml"); tag != "" {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		rec = rec.Add(name, rv.Field(i).Interface())
	}
	return rec, true
}
