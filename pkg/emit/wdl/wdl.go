// Package wdl compiles a finalized workflow graph into WDL 1.0
// documents: one per workflow, with nested workflows imported and the
// tools a workflow calls rendered as tasks in the same document.
package wdl

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/me/flowc/pkg/emit"
	"github.com/me/flowc/pkg/wf"
)

// Emitter renders WDL 1.0 documents.
type Emitter struct {
	logger *slog.Logger
}

// New creates a WDL emitter. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger.With("component", "wdl-emitter")}
}

// Emit compiles w and every workflow nested under it, one document
// each. The main workflow's document comes first.
func (e *Emitter) Emit(w *wf.Workflow) ([]emit.Document, error) {
	seen := map[string]*wf.Workflow{}
	order := []*wf.Workflow{}

	var gather func(w *wf.Workflow) error
	gather = func(w *wf.Workflow) error {
		if prev, ok := seen[w.Name()]; ok {
			if prev != w {
				return &emit.EmitError{Format: emit.FormatWDL,
					Construct: fmt.Sprintf("workflow %q", w.Name()),
					Reason:    "two distinct workflows share one name"}
			}
			return nil
		}
		seen[w.Name()] = w
		order = append(order, w)
		for _, step := range w.Steps() {
			if sub, ok := step.Descriptor().(*wf.Workflow); ok {
				if err := gather(sub); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := gather(w); err != nil {
		return nil, err
	}

	var docs []emit.Document
	for _, flow := range order {
		data, err := renderDocument(flow)
		if err != nil {
			return nil, err
		}
		docs = append(docs, emit.Document{Name: flow.Name() + ".wdl", Data: data})
	}

	e.logger.Debug("emitted WDL documents",
		"workflow", w.Name(), "documents", len(docs))
	return docs, nil
}

// renderDocument renders one workflow plus the tasks it calls.
func renderDocument(w *wf.Workflow) ([]byte, error) {
	var imports []string
	tools := map[string]*wf.Tool{}
	importSeen := map[string]bool{}
	for _, step := range w.Steps() {
		switch d := step.Descriptor().(type) {
		case *wf.Tool:
			if prev, ok := tools[d.ID()]; ok && prev != d {
				return nil, &emit.EmitError{Format: emit.FormatWDL,
					Construct: fmt.Sprintf("tool %q", d.ID()),
					Reason:    "two distinct tool descriptors share one id"}
			}
			tools[d.ID()] = d
		case *wf.Workflow:
			if !importSeen[d.Name()] {
				importSeen[d.Name()] = true
				imports = append(imports,
					fmt.Sprintf("import %q as %s_wdl", d.Name()+".wdl", d.Name()))
			}
		default:
			return nil, &emit.EmitError{Format: emit.FormatWDL,
				Construct: fmt.Sprintf("step %q", step.Name()),
				Reason:    fmt.Sprintf("unsupported descriptor variant %T", d)}
		}
	}
	sort.Strings(imports)

	var b strings.Builder
	b.WriteString("version 1.0\n")
	if len(imports) > 0 {
		b.WriteString("\n")
		for _, imp := range imports {
			b.WriteString(imp + "\n")
		}
	}
	b.WriteString("\n")
	if err := renderWorkflow(&b, w); err != nil {
		return nil, err
	}
	for _, id := range sortedToolIDs(tools) {
		b.WriteString("\n")
		renderTask(&b, tools[id])
	}
	return []byte(b.String()), nil
}

func renderWorkflow(b *strings.Builder, w *wf.Workflow) error {
	fmt.Fprintf(b, "workflow %s {\n", w.Name())

	b.WriteString("  input {\n")
	for _, p := range w.Inputs() {
		fmt.Fprintf(b, "    %s %s\n", wdlType(p.Type), p.Name)
	}
	b.WriteString("  }\n")

	for _, step := range w.Steps() {
		b.WriteString("\n")
		if err := renderStep(b, step); err != nil {
			return err
		}
	}

	b.WriteString("\n  output {\n")
	for _, o := range w.Outputs() {
		fmt.Fprintf(b, "    %s %s = %s\n", wdlType(o.Type), o.Name, outputSourceExpr(o.Source))
	}
	b.WriteString("  }\n")

	renderMeta(b, w)
	b.WriteString("}\n")
	return nil
}

// renderStep renders a call block, wrapped in a scatter block when the
// step carries a directive. WDL's scatter pairs at most two lock-step
// inputs (through zip); the nested cross-product merge policy has no
// WDL construct and is rejected.
func renderStep(b *strings.Builder, step *wf.Step) error {
	sc := step.Scatter()
	if sc == nil {
		return renderCall(b, step, "  ", nil)
	}

	if sc.Method == wf.ScatterCross {
		return &emit.EmitError{Format: emit.FormatWDL,
			Construct: fmt.Sprintf("step %q", step.Name()),
			Reason:    "cross-product scatter has no WDL equivalent"}
	}

	switch len(sc.Ports) {
	case 1:
		port := sc.Ports[0]
		src, _ := step.Binding(port)
		item := port + "_item"
		fmt.Fprintf(b, "  scatter (%s in %s) {\n", item, sourceExpr(src))
		if err := renderCall(b, step, "    ", map[string]string{port: item}); err != nil {
			return err
		}
		b.WriteString("  }\n")
		return nil
	case 2:
		left, right := sc.Ports[0], sc.Ports[1]
		lsrc, _ := step.Binding(left)
		rsrc, _ := step.Binding(right)
		fmt.Fprintf(b, "  scatter (pair in zip(%s, %s)) {\n", sourceExpr(lsrc), sourceExpr(rsrc))
		err := renderCall(b, step, "    ", map[string]string{
			left:  "pair.left",
			right: "pair.right",
		})
		if err != nil {
			return err
		}
		b.WriteString("  }\n")
		return nil
	default:
		return &emit.EmitError{Format: emit.FormatWDL,
			Construct: fmt.Sprintf("step %q", step.Name()),
			Reason: fmt.Sprintf("lock-step scatter over %d ports exceeds WDL's zip pairing",
				len(sc.Ports))}
	}
}

// renderCall renders the call line. scatterVars maps scattered port
// names to the loop-variable expression that replaces their source.
func renderCall(b *strings.Builder, step *wf.Step, indent string, scatterVars map[string]string) error {
	target := callTarget(step.Descriptor())
	fmt.Fprintf(b, "%scall %s", indent, target)
	if base := target[strings.LastIndex(target, ".")+1:]; base != step.Name() {
		fmt.Fprintf(b, " as %s", step.Name())
	}

	bindings := step.Bindings()
	ports := make([]string, 0, len(bindings))
	for p := range bindings {
		ports = append(ports, p)
	}
	sort.Strings(ports)

	var lines []string
	for _, p := range ports {
		src := bindings[p]
		var expr string
		if v, ok := scatterVars[p]; ok {
			expr = v
		} else if src.Kind() == wf.SourceLiteral {
			lit, ok := literalExpr(src.Value())
			if !ok {
				// A null literal means "leave unset": WDL has no
				// assignable null, omitting the input is equivalent.
				continue
			}
			expr = lit
		} else {
			expr = sourceExpr(src)
		}
		lines = append(lines, fmt.Sprintf("%s  %s = %s", indent, p, expr))
	}

	if len(lines) == 0 {
		b.WriteString("\n")
		return nil
	}
	b.WriteString(" {\n")
	fmt.Fprintf(b, "%s  input:\n", indent)
	for i, line := range lines {
		b.WriteString("  " + line)
		if i < len(lines)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "%s}\n", indent)
	return nil
}

// callTarget names the task or imported workflow a step invokes.
func callTarget(d wf.Descriptor) string {
	if sub, ok := d.(*wf.Workflow); ok {
		return sub.Name() + "_wdl." + sub.Name()
	}
	return d.ID()
}

// sourceExpr renders a workflow-input or step-output reference.
func sourceExpr(src wf.Source) string {
	switch src.Kind() {
	case wf.SourceWorkflowInput:
		return src.Input()
	case wf.SourceStepOutput:
		return src.Step() + "." + src.Port()
	}
	return ""
}

// outputSourceExpr renders a workflow output binding. Referencing a
// scattered call from outside its scatter block is already
// array-typed in WDL, matching the wrapped output type.
func outputSourceExpr(src wf.Source) string {
	return sourceExpr(src)
}

// literalExpr renders a literal value as a WDL expression. A nil value
// reports ok=false: the binding is omitted.
func literalExpr(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return fmt.Sprintf("%q", val), true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := literalExpr(item)
			if !ok {
				continue
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// renderMeta renders meta and parameter_meta blocks. Named file types
// keep their secondary-file patterns here, since WDL's type system has
// no structural spelling for them.
func renderMeta(b *strings.Builder, w *wf.Workflow) {
	if doc := w.Doc(); doc != "" {
		b.WriteString("\n  meta {\n")
		fmt.Fprintf(b, "    description: %q\n", doc)
		b.WriteString("  }\n")
	}

	var lines []string
	for _, p := range w.Inputs() {
		lines = append(lines, paramMetaLine(p.Name, p.Type, p.Doc)...)
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("\n  parameter_meta {\n")
	for _, line := range lines {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("  }\n")
}

func paramMetaLine(name string, t wf.Type, doc string) []string {
	var secs []string
	if base, ok := wf.BaseFile(t); ok {
		secs = base.Secondaries()
	}
	switch {
	case doc == "" && len(secs) == 0:
		return nil
	case len(secs) == 0:
		return []string{fmt.Sprintf("%s: %q", name, doc)}
	default:
		quoted := make([]string, len(secs))
		for i, s := range secs {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		entry := fmt.Sprintf("%s: {description: %q, secondaryFiles: [%s]}",
			name, doc, strings.Join(quoted, ", "))
		return []string{entry}
	}
}

// renderTask renders a task for an opaque tool descriptor. The command
// is the tool's base command; outputs use placeholder collection
// expressions, since the engine never inspects tool behavior.
func renderTask(b *strings.Builder, t *wf.Tool) {
	fmt.Fprintf(b, "task %s {\n", t.ID())

	b.WriteString("  input {\n")
	for _, p := range t.In {
		typ := p.Type
		if !p.Required {
			typ = wf.OptionalOf(typ)
		}
		fmt.Fprintf(b, "    %s %s\n", wdlType(typ), p.Name)
	}
	b.WriteString("  }\n")

	b.WriteString("  command <<<\n")
	if len(t.BaseCommand) > 0 {
		fmt.Fprintf(b, "    %s\n", strings.Join(t.BaseCommand, " "))
	}
	b.WriteString("  >>>\n")

	b.WriteString("  output {\n")
	for _, p := range t.Out {
		fmt.Fprintf(b, "    %s %s = %s\n", wdlType(p.Type), p.Name, outputExpr(p))
	}
	b.WriteString("  }\n")

	if t.Container != "" {
		b.WriteString("  runtime {\n")
		fmt.Fprintf(b, "    docker: %q\n", t.Container)
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
}

// outputExpr is the placeholder collection expression for a task
// output: a plain file is collected by name, everything else from a
// JSON sidecar.
func outputExpr(p wf.Port) string {
	if p.Type.Kind() == wf.KindFile {
		return fmt.Sprintf("%q", p.Name)
	}
	return fmt.Sprintf("read_json(%q)", p.Name+".json")
}

// wdlType renders a Type in WDL spelling. Named file types flatten to
// File; their secondaries are preserved in parameter_meta.
func wdlType(t wf.Type) string {
	switch t.Kind() {
	case wf.KindBoolean:
		return "Boolean"
	case wf.KindInt:
		return "Int"
	case wf.KindFloat:
		return "Float"
	case wf.KindString:
		return "String"
	case wf.KindFile:
		return "File"
	case wf.KindDirectory:
		return "Directory"
	case wf.KindArray:
		return "Array[" + wdlType(t.Elem()) + "]"
	case wf.KindOptional:
		return wdlType(t.Elem()) + "?"
	}
	return "Object"
}

func sortedToolIDs(tools map[string]*wf.Tool) []string {
	ids := make([]string, 0, len(tools))
	for id := range tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
