package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mesh-intelligence/beanbase/internal/model"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeBean prints one bean as JSON or as "type#id" followed by one
// indented line per attribute. When fields are given only those attributes
// are shown, in the given order.
func writeBean(w io.Writer, b *types.Bean, asJSON bool, fields ...string) error {
	data, names := project(b, fields)
	if asJSON {
		return writeJSON(w, data)
	}
	fmt.Fprintln(w, b.String())
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, formatValue(data[name]))
	}
	return nil
}

// writeBeans prints a list of beans, as a JSON array or as blocks.
func writeBeans(w io.Writer, beans []*types.Bean, asJSON bool, fields ...string) error {
	if asJSON {
		out := make([]map[string]any, 0, len(beans))
		for _, b := range beans {
			data, _ := project(b, fields)
			out = append(out, data)
		}
		return writeJSON(w, out)
	}
	if len(beans) == 0 {
		fmt.Fprintln(w, "(none)")
		return nil
	}
	for _, b := range beans {
		if err := writeBean(w, b, false, fields...); err != nil {
			return err
		}
	}
	return nil
}

// project returns the exported attributes of b limited to fields (id is
// always kept) and the attribute names to print.
func project(b *types.Bean, fields []string) (map[string]any, []string) {
	data := b.Export()
	if len(fields) == 0 {
		return data, b.FieldNames()
	}
	data = model.Keep(data, append([]string{types.IDField}, fields...))
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := data[f]; ok && f != types.IDField {
			names = append(names, f)
		}
	}
	return data, names
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
