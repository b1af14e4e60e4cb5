package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"gopkg.in/yaml.v3"

	"github.com/23skdu/gdsclient/client"
	"github.com/23skdu/gdsclient/internal/loader"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// render writes v in the selected format. Tables are printed as a list of
// rows and, with --arrow-out, also written as an Arrow IPC file.
func (a *app) render(v any) error {
	if t, ok := v.(*client.Table); ok {
		if a.arrowOut != "" {
			if err := writeArrow(a.arrowOut, t); err != nil {
				return err
			}
		}
		v = tableRows(t)
	}

	if a.output == formatJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func tableRows(t *client.Table) []map[string]any {
	rows := make([]map[string]any, 0, t.Len())
	for _, r := range t.Rows() {
		rows = append(rows, r)
	}
	return rows
}

func writeArrow(path string, t *client.Table) error {
	rec, err := t.ToArrow(memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := loader.WriteIPC(f, rec); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// parseValue reads a command line argument as YAML, so 10, true, [a, b] and
// {k: v} arrive typed. Anything else stays a string.
func parseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	return v
}

// parseConfig reads a --config flag. An empty flag yields nil.
func parseConfig(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := yaml.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("invalid --config: %w", err)
	}
	return m, nil
}
