package format

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Supported output formats
const (
	Table       = "table"
	JSON        = "json"
	JSONCompact = "json-compact"
	YAML        = "yaml"
	Text        = "text"
)

// Formats lists every accepted -o value
var Formats = []string{Table, JSON, JSONCompact, YAML, Text}

// Formatter renders data to w
type Formatter interface {
	Format(w io.Writer, data interface{}) error
}

// GetFormatter returns a formatter for the given format name
func GetFormatter(format string, useColors bool) (Formatter, error) {
	switch format {
	case Table:
		return NewTableFormatter(useColors), nil
	case JSON:
		return NewJSONFormatter(true), nil
	case JSONCompact:
		return NewJSONFormatter(false), nil
	case YAML:
		return NewYAMLFormatter(), nil
	case Text:
		return NewTextFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Printer writes command results and status messages.
// Results go to Out in the selected format; messages go to Err so that
// json and yaml output stay machine-readable.
type Printer struct {
	Out    io.Writer
	Err    io.Writer
	Format string
	Colors bool
	Debug  bool
}

// NewPrinter creates a printer
func NewPrinter(out, errOut io.Writer, format string, useColors bool) *Printer {
	return &Printer{Out: out, Err: errOut, Format: format, Colors: useColors}
}

// Print formats data using the printer's output format
func (p *Printer) Print(data interface{}) error {
	f, err := GetFormatter(p.Format, p.Colors)
	if err != nil {
		return err
	}
	return f.Format(p.Out, data)
}

// Structured reports whether the output format is meant for machines
func (p *Printer) Structured() bool {
	return p.Format == JSON || p.Format == JSONCompact || p.Format == YAML
}

// Success prints a success message
func (p *Printer) Success(message string, args ...interface{}) {
	p.message(color.FgGreen, "", message, args...)
}

// Error prints an error message
func (p *Printer) Error(message string, args ...interface{}) {
	p.message(color.FgRed, "Error: ", message, args...)
}

// Warning prints a warning message
func (p *Printer) Warning(message string, args ...interface{}) {
	p.message(color.FgYellow, "Warning: ", message, args...)
}

// Info prints an info message
func (p *Printer) Info(message string, args ...interface{}) {
	p.message(color.FgBlue, "", message, args...)
}

// Debugf prints a debug message if debug mode is enabled
func (p *Printer) Debugf(message string, args ...interface{}) {
	if p.Debug {
		p.message(color.FgCyan, "[DEBUG] ", message, args...)
	}
}

func (p *Printer) message(attr color.Attribute, plainPrefix, message string, args ...interface{}) {
	if p.Colors {
		c := color.New(attr)
		c.EnableColor()
		_, _ = c.Fprintf(p.Err, message+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.Err, plainPrefix+message+"\n", args...)
}
