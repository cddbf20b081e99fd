package format

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter handles table output formatting
type TableFormatter struct {
	useColors bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(useColors bool) *TableFormatter {
	return &TableFormatter{
		useColors: useColors,
	}
}

// Format formats data as a table. Single values render as a vertical
// property table, slices as one row per element.
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	if data == nil {
		_, err := fmt.Fprintln(w, "No data to display")
		return err
	}

	if rows, ok := data.([]Record); ok {
		return f.formatRows(w, rows)
	}
	if rec, ok := toRecord(data); ok {
		return f.formatRecord(w, rec)
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice {
		rows := make([]Record, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			rec, ok := toRecord(v.Index(i).Interface())
			if !ok {
				return f.formatSimpleList(w, v)
			}
			rows = append(rows, rec)
		}
		return f.formatRows(w, rows)
	}

	_, err := fmt.Fprintln(w, displayValue(data))
	return err
}

// formatRecord formats a single record as a vertical table
func (f *TableFormatter) formatRecord(w io.Writer, rec Record) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Property", "Value"})
	f.configureTable(table, 2)

	for _, field := range rec {
		table.Append([]string{formatHeader(field.Name), f.cell(field.Value)})
	}

	table.Render()
	return nil
}

// formatRows formats records as a horizontal table; headers come from the
// first record
func (f *TableFormatter) formatRows(w io.Writer, rows []Record) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data to display")
		return err
	}

	headers := make([]string, len(rows[0]))
	for i, field := range rows[0] {
		headers[i] = formatHeader(field.Name)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	f.configureTable(table, len(headers))

	for _, row := range rows {
		values := make([]string, len(headers))
		for i := range headers {
			if i < len(row) {
				values[i] = f.cell(row[i].Value)
			}
		}
		table.Append(values)
	}

	table.Render()
	return nil
}

// formatSimpleList formats a slice of scalars
func (f *TableFormatter) formatSimpleList(w io.Writer, v reflect.Value) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Value"})
	f.configureTable(table, 1)

	for i := 0; i < v.Len(); i++ {
		table.Append([]string{f.cell(v.Index(i).Interface())})
	}

	table.Render()
	return nil
}

// configureTable sets up table appearance for a table with cols columns
func (f *TableFormatter) configureTable(table *tablewriter.Table, cols int) {
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	if f.useColors {
		colors := make([]tablewriter.Colors, cols)
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor}
		}
		table.SetHeaderColor(colors...)
	}
}

// cell renders a value, colouring booleans when enabled
func (f *TableFormatter) cell(value interface{}) string {
	if b, ok := value.(bool); ok && f.useColors {
		if b {
			return color.GreenString("true")
		}
		return color.RedString("false")
	}
	return displayValue(value)
}
