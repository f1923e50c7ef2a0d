package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/flowc/pkg/wf"
)

// Manifest is the YAML catalog format: a table of named file types and
// a list of tool descriptors using them.
//
//	types:
//	  FastaWithIndexes:
//	    secondaries: [".fai", "^.dict"]
//	tools:
//	  - name: bwa_align
//	    version: "0.7.17"
//	    container: quay.io/biocontainers/bwa:0.7.17
//	    baseCommand: [bwa, mem]
//	    inputs:
//	      - {name: reference, type: FastaWithIndexes}
//	      - {name: fastq, type: "File[]"}
//	    outputs:
//	      - {name: bam, type: File}
type Manifest struct {
	Types map[string]TypeSpec `yaml:"types"`
	Tools []ToolSpec          `yaml:"tools"`
}

// TypeSpec declares a named file type.
type TypeSpec struct {
	Secondaries []string `yaml:"secondaries"`
}

// ToolSpec declares one tool.
type ToolSpec struct {
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	Doc         string     `yaml:"doc"`
	Container   string     `yaml:"container"`
	BaseCommand []string   `yaml:"baseCommand"`
	Inputs      []PortSpec `yaml:"inputs"`
	Outputs     []PortSpec `yaml:"outputs"`
}

// PortSpec declares one port. A port is required unless its type is
// optional or optional is set explicitly.
type PortSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Doc      string `yaml:"doc"`
	Optional bool   `yaml:"optional"`
}

// LoadManifest reads and parses a manifest file, registering every
// tool it declares into a fresh registry.
func LoadManifest(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML into a registry.
func ParseManifest(data []byte) (*Registry, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	named := make(map[string]wf.Type, len(m.Types))
	for name, spec := range m.Types {
		named[name] = wf.NamedFile(name, spec.Secondaries...)
	}
	resolve := func(name string) (wf.Type, bool) {
		t, ok := named[name]
		return t, ok
	}

	reg := NewRegistry()
	for _, spec := range m.Tools {
		tool, err := spec.build(resolve)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(tool); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (spec ToolSpec) build(resolve func(string) (wf.Type, bool)) (*wf.Tool, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("manifest: tool with no name")
	}
	tool := &wf.Tool{
		Name:        spec.Name,
		Ver:         spec.Version,
		Doc:         spec.Doc,
		Container:   spec.Container,
		BaseCommand: spec.BaseCommand,
	}
	for _, ps := range spec.Inputs {
		p, err := ps.build(resolve)
		if err != nil {
			return nil, fmt.Errorf("manifest: tool %q input %q: %w", spec.Name, ps.Name, err)
		}
		tool.In = append(tool.In, p)
	}
	for _, ps := range spec.Outputs {
		p, err := ps.build(resolve)
		if err != nil {
			return nil, fmt.Errorf("manifest: tool %q output %q: %w", spec.Name, ps.Name, err)
		}
		p.Required = false
		tool.Out = append(tool.Out, p)
	}
	return tool, nil
}

func (spec PortSpec) build(resolve func(string) (wf.Type, bool)) (wf.Port, error) {
	t, err := ParseType(spec.Type, resolve)
	if err != nil {
		return wf.Port{}, err
	}
	return wf.Port{
		Name:     spec.Name,
		Type:     t,
		Doc:      spec.Doc,
		Required: !spec.Optional && !t.IsOptional(),
	}, nil
}

// ParseType parses the manifest type spelling: a base name followed by
// any run of "[]" (array) and "?" (optional) suffixes, applied inside
// out ("File[]?" is an optional array of files). Base names are the
// built-in types or a name known to resolve.
func ParseType(s string, resolve func(string) (wf.Type, bool)) (wf.Type, error) {
	base := s
	var suffixes []string
	for {
		switch {
		case strings.HasSuffix(base, "[]"):
			base = strings.TrimSuffix(base, "[]")
			suffixes = append(suffixes, "[]")
		case strings.HasSuffix(base, "?"):
			base = strings.TrimSuffix(base, "?")
			suffixes = append(suffixes, "?")
		default:
			t, err := parseBase(base, resolve)
			if err != nil {
				return wf.Type{}, err
			}
			// Suffixes were collected outside in; apply in reverse.
			for i := len(suffixes) - 1; i >= 0; i-- {
				if suffixes[i] == "[]" {
					t = wf.ArrayOf(t)
				} else {
					t = wf.OptionalOf(t)
				}
			}
			return t, nil
		}
	}
}

func parseBase(base string, resolve func(string) (wf.Type, bool)) (wf.Type, error) {
	switch base {
	case "Boolean":
		return wf.Boolean(), nil
	case "Int":
		return wf.Int(), nil
	case "Float":
		return wf.Float(), nil
	case "String":
		return wf.String(), nil
	case "File":
		return wf.File(), nil
	case "Directory":
		return wf.Directory(), nil
	}
	if resolve != nil {
		if t, ok := resolve(base); ok {
			return t, nil
		}
	}
	return wf.Type{}, fmt.Errorf("unknown type %q", base)
}
