package format

import (
	"fmt"
	"io"
	"reflect"
)

// TextFormatter handles simple "Key: value" text output
type TextFormatter struct{}

// NewTextFormatter creates a new text formatter
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format formats data as simple text
func (f *TextFormatter) Format(w io.Writer, data interface{}) error {
	if data == nil {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	if s, ok := data.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	if rows, ok := data.([]Record); ok {
		return f.formatRows(w, rows)
	}
	if rec, ok := toRecord(data); ok {
		return f.formatRecord(w, rec, "")
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			_, err := fmt.Fprintln(w, "No data")
			return err
		}
		rows := make([]Record, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			rec, ok := toRecord(v.Index(i).Interface())
			if !ok {
				return f.formatList(w, v)
			}
			rows = append(rows, rec)
		}
		return f.formatRows(w, rows)
	}

	_, err := fmt.Fprintln(w, f.formatValue(data))
	return err
}

func (f *TextFormatter) formatRecord(w io.Writer, rec Record, indent string) error {
	for _, field := range rec {
		if _, err := fmt.Fprintf(w, "%s%s: %s\n", indent, formatHeader(field.Name), f.formatValue(field.Value)); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatRows(w io.Writer, rows []Record) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}
	for i, row := range rows {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Item %d:\n", i+1)
		if err := f.formatRecord(w, row, "  "); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatList(w io.Writer, v reflect.Value) error {
	for i := 0; i < v.Len(); i++ {
		if _, err := fmt.Fprintln(w, f.formatValue(v.Index(i).Interface())); err != nil {
			return err
		}
	}
	return nil
}

// formatValue formats a value for display
func (f *TextFormatter) formatValue(value interface{}) string {
	if s := displayValue(value); s != "" {
		return s
	}
	return "N/A"
}
