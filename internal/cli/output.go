package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"sigs.k8s.io/yaml"

	"wkfmanager/internal/api"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON formats output as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// Printer writes workflows in the selected output format.
type Printer struct {
	Format    OutputFormat
	NoHeaders bool
	Out       io.Writer
}

// PrintWorkflow prints a single workflow.
func (p *Printer) PrintWorkflow(storeID string, spec api.WorkflowSpec) error {
	switch p.Format {
	case OutputFormatJSON:
		return p.printJSON(spec)
	case OutputFormatYAML:
		return p.printYAML(spec)
	default:
		return p.printTable(map[string]api.WorkflowSpec{storeID: spec})
	}
}

// PrintWorkflows prints every workflow, sorted by storeId in table output.
func (p *Printer) PrintWorkflows(all map[string]api.WorkflowSpec) error {
	switch p.Format {
	case OutputFormatJSON:
		return p.printJSON(all)
	case OutputFormatYAML:
		return p.printYAML(all)
	default:
		if len(all) == 0 {
			fmt.Fprintf(p.Out, "%s\n", text.FgYellow.Sprint("No workflows found"))
			return nil
		}
		return p.printTable(all)
	}
}

func (p *Printer) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(p.Out, string(data))
	return err
}

func (p *Printer) printYAML(v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	_, err = p.Out.Write(data)
	return err
}

func (p *Printer) printTable(all map[string]api.WorkflowSpec) error {
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(p.Out)
	t.SetStyle(table.StyleLight)
	if !p.NoHeaders {
		t.AppendHeader(table.Row{"STORE ID", "METHOD", "OFFSET", "COMPONENTS", "ORIGIN"})
	}
	for _, id := range ids {
		spec := all[id]
		offset := "-"
		if spec.Method == api.MethodEdge {
			offset = strconv.Itoa(spec.WorkflowOffset)
		}
		t.AppendRow(table.Row{id, string(spec.Method), offset, strings.Join(spec.ComponentList, ", "), spec.Origin})
	}
	t.Render()
	return nil
}
