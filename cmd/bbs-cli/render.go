package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// renderer writes command results in the format chosen on the command
// line. Structured formats serialize the value as-is; the text format
// calls the command's own line-oriented writer.
type renderer struct {
	format string
	out    io.Writer
}

func (r *renderer) render(v any, text func(w io.Writer) error) error {
	switch r.format {
	case "json":
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(r.out)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(r.out)
	}
}

func (r *renderer) printf(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
