// Package batch runs many directives from a YAML batch file and can re-run
// them whenever the file changes.
package batch

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"doccalc/internal/logging"
	"doccalc/internal/params"
)

// Directive is one invocation in a batch file.
type Directive struct {
	ID     string
	Name   string
	Target string
	Params params.Set
}

// File is a parsed batch file.
type File struct {
	// Document is the ambient document layer, or nil when the file
	// declares none.
	Document   params.Set
	Directives []Directive
}

type rawDirective struct {
	ID     string    `yaml:"id"`
	Name   string    `yaml:"name"`
	Target string    `yaml:"target"`
	Params yaml.Node `yaml:"params"`
}

type rawFile struct {
	Document   yaml.Node      `yaml:"document"`
	Directives []rawDirective `yaml:"directives"`
}

// Load reads and parses a batch file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses batch file content. Parameter values keep the text they were
// written with; null values (null, ~ or nothing) become explicit nulls.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}

	f := &File{Directives: make([]Directive, 0, len(raw.Directives))}
	if raw.Document.Kind != 0 && !isNull(&raw.Document) {
		doc, err := paramSet(&raw.Document)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		f.Document = doc
	}

	for i, rd := range raw.Directives {
		if rd.Name == "" {
			return nil, fmt.Errorf("directive %d: missing name", i)
		}
		id := rd.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		local, err := paramSet(&rd.Params)
		if err != nil {
			return nil, fmt.Errorf("directive %s: %w", id, err)
		}
		f.Directives = append(f.Directives, Directive{
			ID:     id,
			Name:   rd.Name,
			Target: rd.Target,
			Params: local,
		})
	}
	logging.BatchDebug("parsed %d directives (document layer: %t)", len(f.Directives), f.Document != nil)
	return f, nil
}

// paramSet converts a YAML mapping of scalars into a parameter set. An
// absent or null node is an empty set.
func paramSet(n *yaml.Node) (params.Set, error) {
	s := params.Set{}
	if n.Kind == 0 || isNull(n) {
		return s, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: parameter names must be scalars", k.Line)
		}
		switch {
		case isNull(v):
			s[k.Value] = params.Null()
		case v.Kind == yaml.ScalarNode:
			s[k.Value] = params.Text(v.Value)
		default:
			return nil, fmt.Errorf("line %d: parameter %q must be a scalar", v.Line, k.Value)
		}
	}
	return s, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// Result is the outcome of one directive.
type Result struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
	Result string `yaml:"result"`
}

// Report is the outcome of one batch run, in directive order.
type Report struct {
	RunID   string   `yaml:"run_id"`
	Results []Result `yaml:"results"`
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
