// Package cwl compiles a finalized workflow graph into a packed CWL
// v1.2 document: a single $graph holding the main Workflow, one
// Workflow entry per distinct nested workflow, and one CommandLineTool
// entry per distinct tool.
package cwl

import (
	"fmt"
	"log/slog"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/me/flowc/pkg/emit"
	"github.com/me/flowc/pkg/wf"
)

const cwlVersion = "v1.2"

// namespace prefix for export-path hints carried on workflow outputs.
const hintNamespace = "flowc"
const hintNamespaceURI = "https://github.com/me/flowc/schema#"

// Emitter renders packed CWL documents.
type Emitter struct {
	logger *slog.Logger
}

// New creates a CWL emitter. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger.With("component", "cwl-emitter")}
}

// Emit compiles w into a single packed document named "<name>.cwl".
func (e *Emitter) Emit(w *wf.Workflow) ([]emit.Document, error) {
	workflows, tools, err := collect(w)
	if err != nil {
		return nil, err
	}

	var entries []any
	mainEntry, hasHints, err := e.workflowEntry(w)
	if err != nil {
		return nil, err
	}
	entries = append(entries, mainEntry)

	for _, id := range sortedKeys(workflows) {
		if workflows[id] == w {
			continue
		}
		entry, nestedHints, err := e.workflowEntry(workflows[id])
		if err != nil {
			return nil, err
		}
		hasHints = hasHints || nestedHints
		entries = append(entries, entry)
	}
	for _, id := range sortedKeys(tools) {
		entries = append(entries, toolEntry(tools[id]))
	}

	doc := newMapping()
	doc.set("cwlVersion", cwlVersion)
	if hasHints {
		ns := newMapping()
		ns.set(hintNamespace, hintNamespaceURI)
		doc.set("$namespaces", ns)
	}
	doc.set("$graph", entries)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal CWL document: %w", err)
	}

	e.logger.Debug("emitted CWL document",
		"workflow", w.Name(), "graph_entries", len(entries))

	return []emit.Document{{Name: w.Name() + ".cwl", Data: data}}, nil
}

// collect walks the main workflow and every nested workflow, indexing
// the distinct workflows and tools the document must contain.
func collect(w *wf.Workflow) (map[string]*wf.Workflow, map[string]*wf.Tool, error) {
	workflows := map[string]*wf.Workflow{w.Name(): w}
	tools := make(map[string]*wf.Tool)

	var visit func(w *wf.Workflow) error
	visit = func(w *wf.Workflow) error {
		for _, step := range w.Steps() {
			switch d := step.Descriptor().(type) {
			case *wf.Tool:
				if prev, ok := tools[d.ID()]; ok {
					if prev != d {
						return &emit.EmitError{Format: emit.FormatCWL,
							Construct: fmt.Sprintf("tool %q", d.ID()),
							Reason:    "two distinct tool descriptors share one id"}
					}
					continue
				}
				tools[d.ID()] = d
			case *wf.Workflow:
				if prev, ok := workflows[d.Name()]; ok {
					if prev != d {
						return &emit.EmitError{Format: emit.FormatCWL,
							Construct: fmt.Sprintf("workflow %q", d.Name()),
							Reason:    "two distinct workflows share one id"}
					}
					continue
				}
				workflows[d.Name()] = d
				if err := visit(d); err != nil {
					return err
				}
			default:
				return &emit.EmitError{Format: emit.FormatCWL,
					Construct: fmt.Sprintf("step %q", step.Name()),
					Reason:    fmt.Sprintf("unsupported descriptor variant %T", d)}
			}
		}
		return nil
	}

	if err := visit(w); err != nil {
		return nil, nil, err
	}
	return workflows, tools, nil
}

// workflowEntry renders one Workflow $graph entry. The second result
// reports whether any output carried export-path hints, which require
// the flowc namespace on the enclosing document.
func (e *Emitter) workflowEntry(w *wf.Workflow) (*mapping, bool, error) {
	entry := newMapping()
	entry.set("class", "Workflow")
	entry.set("id", w.Name())
	if doc := w.Doc(); doc != "" {
		entry.set("doc", doc)
	}

	if reqs := requirements(w); len(reqs) > 0 {
		entry.set("requirements", reqs)
	}

	inputs := newMapping()
	for _, p := range w.Inputs() {
		inputs.set(p.Name, paramEntry(p.Type, p.Doc))
	}
	entry.set("inputs", inputs)

	steps := newMapping()
	for _, step := range w.Steps() {
		steps.set(step.Name(), stepEntry(step))
	}
	entry.set("steps", steps)

	hasHints := false
	outputs := newMapping()
	for _, o := range w.Outputs() {
		out := newMapping()
		out.set("type", cwlType(o.Type))
		out.set("outputSource", o.Source.Ref())
		if o.Doc != "" {
			out.set("doc", o.Doc)
		}
		if len(o.Folder) > 0 {
			out.set(hintNamespace+":outputFolder", o.Folder)
			hasHints = true
		}
		if o.OutputName != "" {
			out.set(hintNamespace+":outputName", o.OutputName)
			hasHints = true
		}
		outputs.set(o.Name, out)
	}
	entry.set("outputs", outputs)

	return entry, hasHints, nil
}

// requirements lists the CWL feature requirements the workflow needs.
func requirements(w *wf.Workflow) []any {
	var reqs []any
	scattered, nested := false, false
	for _, step := range w.Steps() {
		if step.Scatter() != nil {
			scattered = true
		}
		if _, ok := step.Descriptor().(*wf.Workflow); ok {
			nested = true
		}
	}
	if scattered {
		reqs = append(reqs, classEntry("ScatterFeatureRequirement"))
	}
	if nested {
		reqs = append(reqs, classEntry("SubworkflowFeatureRequirement"))
	}
	return reqs
}

func classEntry(class string) *mapping {
	m := newMapping()
	m.set("class", class)
	return m
}

// stepEntry renders one workflow step call block.
func stepEntry(step *wf.Step) *mapping {
	entry := newMapping()
	entry.set("run", "#"+step.Descriptor().ID())

	bindings := step.Bindings()
	ports := make([]string, 0, len(bindings))
	for p := range bindings {
		ports = append(ports, p)
	}
	sort.Strings(ports)

	in := newMapping()
	for _, p := range ports {
		src := bindings[p]
		if src.Kind() == wf.SourceLiteral {
			lit := newMapping()
			lit.set("default", src.Value())
			in.set(p, lit)
			continue
		}
		in.set(p, src.Ref())
	}
	entry.set("in", in)

	var outs []string
	for _, p := range step.Descriptor().OutputPorts() {
		outs = append(outs, p.Name)
	}
	entry.set("out", outs)

	if sc := step.Scatter(); sc != nil {
		entry.set("scatter", sc.Ports)
		if len(sc.Ports) > 1 {
			method := "dotproduct"
			if sc.Method == wf.ScatterCross {
				method = "nested_crossproduct"
			}
			entry.set("scatterMethod", method)
		}
	}

	return entry
}

// toolEntry renders one CommandLineTool $graph entry from an opaque
// tool descriptor. BaseCommand and Container are passed through
// unchanged as baseCommand and a DockerRequirement hint.
func toolEntry(t *wf.Tool) *mapping {
	entry := newMapping()
	entry.set("class", "CommandLineTool")
	entry.set("id", t.ID())
	if t.Doc != "" {
		entry.set("doc", t.Doc)
	}
	if len(t.BaseCommand) > 0 {
		entry.set("baseCommand", t.BaseCommand)
	}
	if t.Container != "" {
		docker := newMapping()
		docker.set("dockerPull", t.Container)
		hints := newMapping()
		hints.set("DockerRequirement", docker)
		entry.set("hints", hints)
	}

	inputs := newMapping()
	for _, p := range t.InputPorts() {
		typ := p.Type
		if !p.Required {
			typ = wf.OptionalOf(typ)
		}
		inputs.set(p.Name, paramEntry(typ, p.Doc))
	}
	entry.set("inputs", inputs)

	outputs := newMapping()
	for _, p := range t.OutputPorts() {
		outputs.set(p.Name, paramEntry(p.Type, p.Doc))
	}
	entry.set("outputs", outputs)

	return entry
}

// paramEntry renders an input or output parameter: its CWL type, doc
// string, and the secondary files of a named file type.
func paramEntry(t wf.Type, doc string) *mapping {
	entry := newMapping()
	entry.set("type", cwlType(t))
	if doc != "" {
		entry.set("doc", doc)
	}
	if base, ok := wf.BaseFile(t); ok {
		if secs := base.Secondaries(); len(secs) > 0 {
			var patterns []any
			for _, s := range secs {
				p := newMapping()
				p.set("pattern", s)
				patterns = append(patterns, p)
			}
			entry.set("secondaryFiles", patterns)
		}
	}
	return entry
}

// cwlType renders a Type in CWL spelling: shorthand suffixes when the
// element is simple ("File[]", "string?"), structured forms otherwise.
// Named file types emit as plain File; their name survives in the
// parameter's secondaryFiles and doc.
func cwlType(t wf.Type) any {
	switch t.Kind() {
	case wf.KindBoolean:
		return "boolean"
	case wf.KindInt:
		return "int"
	case wf.KindFloat:
		return "float"
	case wf.KindString:
		return "string"
	case wf.KindFile:
		return "File"
	case wf.KindDirectory:
		return "Directory"
	case wf.KindArray:
		inner := cwlType(t.Elem())
		if s, ok := inner.(string); ok {
			return s + "[]"
		}
		m := newMapping()
		m.set("type", "array")
		m.set("items", inner)
		return m
	case wf.KindOptional:
		inner := cwlType(t.Elem())
		if s, ok := inner.(string); ok {
			return s + "?"
		}
		return []any{"null", inner}
	}
	return "Any"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
