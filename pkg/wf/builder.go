package wf

import "fmt"

// Builder accumulates a workflow under construction: inputs, then
// steps, then outputs. Construction-time errors (duplicate names,
// unknown ports, incompatible connections) are returned by the call
// that caused them and leave the builder unchanged; whole-graph checks
// run in Finalize, which reports every violation at once.
//
// A Builder is not safe for concurrent use; independent builders share
// no state and may run on separate goroutines.
type Builder struct {
	name      string
	version   string
	doc       string
	inputs    []Port
	steps     map[string]*Step
	stepOrder []string
	outputs   []Output
	finalized bool
}

// NewBuilder starts a workflow with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:  name,
		steps: make(map[string]*Step),
	}
}

// SetVersion records the workflow version carried into emitted
// documents and into the workflow's descriptor identity.
func (b *Builder) SetVersion(v string) { b.version = v }

// SetDoc records the workflow documentation string.
func (b *Builder) SetDoc(doc string) { b.doc = doc }

// InputOption configures a declared input.
type InputOption func(*Port)

// InputDoc attaches a documentation string to the input.
func InputDoc(doc string) InputOption {
	return func(p *Port) { p.Doc = doc }
}

// Input declares a workflow-level input port and returns a Source
// referencing it. An input is required unless its type is optional.
func (b *Builder) Input(name string, typ Type, opts ...InputOption) (Source, error) {
	if b.finalized {
		return Source{}, errFinalized(b.name)
	}
	if _, ok := findPort(b.inputs, name); ok {
		return Source{}, &DuplicateNameError{Scope: "input", Name: name}
	}
	if typ.IsZero() {
		return Source{}, fmt.Errorf("input %q: invalid type", name)
	}

	p := Port{Name: name, Type: typ, Required: !typ.IsOptional()}
	for _, opt := range opts {
		opt(&p)
	}
	b.inputs = append(b.inputs, p)
	return InputSource(name), nil
}

// StepHandle references a declared step and resolves its output ports
// into Sources for downstream bindings.
type StepHandle struct {
	step *Step
}

// Name returns the step name.
func (h *StepHandle) Name() string { return h.step.name }

// Out returns a Source referencing the named output port of the step.
// The reference is validated by the declaration call that consumes it.
func (h *StepHandle) Out(port string) Source {
	return StepSource(h.step.name, port)
}

// Step declares a step running the given descriptor, with each entry
// of in binding a descriptor input port to a Source. A nil scatter
// runs the step once; otherwise the step fans out over the named
// array-typed inputs.
//
// Sources referencing steps declared later are permitted and resolved
// during Finalize; everything resolvable now is checked now. On error
// no step is registered.
func (b *Builder) Step(name string, desc Descriptor, in map[string]Source, scatter *Scatter) (*StepHandle, error) {
	if b.finalized {
		return nil, errFinalized(b.name)
	}
	if _, ok := b.steps[name]; ok {
		return nil, &DuplicateNameError{Scope: "step", Name: name}
	}
	if desc == nil {
		return nil, fmt.Errorf("step %q: nil descriptor", name)
	}

	inputs := desc.InputPorts()
	for portName := range in {
		if _, ok := findPort(inputs, portName); !ok {
			return nil, &UnknownPortError{Step: name, Port: portName}
		}
	}

	if scatter != nil {
		for _, sp := range scatter.Ports {
			if _, ok := findPort(inputs, sp); !ok {
				return nil, &ScatterError{Step: name, Port: sp,
					Reason: "not an input port of the descriptor"}
			}
			if _, ok := in[sp]; !ok {
				return nil, &ScatterError{Step: name, Port: sp,
					Reason: "no source bound"}
			}
		}
	}

	// Type-check every binding whose source is already resolvable.
	for portName, src := range in {
		if err := b.checkBinding(name, portName, src, desc, scatter, false); err != nil {
			return nil, err
		}
	}

	step := &Step{
		name:    name,
		desc:    desc,
		in:      make(map[string]Source, len(in)),
		scatter: scatter.clone(),
	}
	for k, v := range in {
		step.in[k] = v
	}
	b.steps[name] = step
	b.stepOrder = append(b.stepOrder, name)
	return &StepHandle{step: step}, nil
}

// OutputOption configures a declared output.
type OutputOption func(*Output)

// OutputFolder attaches logical folder segments for the staging layer.
func OutputFolder(parts ...string) OutputOption {
	return func(o *Output) { o.Folder = append([]string(nil), parts...) }
}

// OutputName attaches a logical file-name hint for the staging layer.
func OutputName(name string) OutputOption {
	return func(o *Output) { o.OutputName = name }
}

// OutputDoc attaches a documentation string to the output.
func OutputDoc(doc string) OutputOption {
	return func(o *Output) { o.Doc = doc }
}

// Output declares a workflow-level output bound to src. The output's
// type is the resolved type of its source, including any array layers
// added by scatter. Export-path hints are recorded and passed through
// unchanged.
func (b *Builder) Output(name string, src Source, opts ...OutputOption) error {
	if b.finalized {
		return errFinalized(b.name)
	}
	for _, o := range b.outputs {
		if o.Name == name {
			return &DuplicateNameError{Scope: "output", Name: name}
		}
	}
	if src.Kind() == SourceLiteral || src.IsZero() {
		// Outputs carry data out of the graph; a literal has nowhere
		// to come from.
		return &UnknownSourceError{Source: src.Ref()}
	}

	typ, resolved, err := b.resolveType(src)
	if err != nil {
		return err
	}
	if !resolved {
		return &UnknownSourceError{Source: src.Ref()}
	}

	out := Output{Name: name, Type: typ, Source: src}
	for _, opt := range opts {
		opt(&out)
	}
	b.outputs = append(b.outputs, out)
	return nil
}

// Finalize validates the whole graph and freezes it into an immutable
// Workflow. Every violation found is reported in a single
// *ValidationError; no partial workflow is produced.
func (b *Builder) Finalize() (*Workflow, error) {
	if b.finalized {
		return nil, errFinalized(b.name)
	}

	issues := validate(b)
	if len(issues) > 0 {
		return nil, &ValidationError{Workflow: b.name, Issues: issues}
	}

	order, err := topoOrder(b.steps)
	if err != nil {
		// Unreachable: validate already ran cycle detection.
		return nil, err
	}

	b.finalized = true
	return &Workflow{
		name:    b.name,
		version: b.version,
		doc:     b.doc,
		inputs:  b.inputs,
		steps:   b.steps,
		order:   order,
		outputs: b.outputs,
	}, nil
}

// errFinalized is returned by declaration calls after Finalize.
func errFinalized(name string) error {
	return fmt.Errorf("workflow %q is already finalized", name)
}

// resolveType resolves a Source to the type it produces. Literal
// sources resolve with the zero Type (their shape is opaque to the
// engine). A step-output reference to a not-yet-declared step reports
// resolved=false with no error, so declaration calls can defer the
// check to Finalize.
func (b *Builder) resolveType(src Source) (typ Type, resolved bool, err error) {
	switch src.Kind() {
	case SourceWorkflowInput:
		p, ok := findPort(b.inputs, src.Input())
		if !ok {
			return Type{}, false, &UnknownSourceError{Source: src.Ref()}
		}
		return p.Type, true, nil
	case SourceStepOutput:
		step, ok := b.steps[src.Step()]
		if !ok {
			return Type{}, false, nil
		}
		t, ok := step.OutputType(src.Port())
		if !ok {
			return Type{}, false, &UnknownSourceError{Source: src.Ref()}
		}
		return t, true, nil
	case SourceLiteral:
		return Type{}, true, nil
	}
	return Type{}, false, &UnknownSourceError{Source: src.Ref()}
}

// checkBinding verifies one connection: the source must resolve (when
// strict) and its type, after scatter unwrapping, must be compatible
// with the consuming port. Literal sources are accepted unchecked,
// except on scattered ports, which need a connection to iterate over.
func (b *Builder) checkBinding(stepName, portName string, src Source, desc Descriptor, scatter *Scatter, strict bool) error {
	srcType, resolved, err := b.resolveType(src)
	if err != nil {
		return err
	}
	if !resolved {
		if strict {
			return &UnknownSourceError{Source: src.Ref()}
		}
		return nil
	}
	if src.Kind() == SourceLiteral {
		if scatter.Has(portName) {
			return &ScatterError{Step: stepName, Port: portName,
				Reason: "literal source is not an array"}
		}
		return nil
	}

	port, _ := findPort(desc.InputPorts(), portName)
	if scatter.Has(portName) {
		elem, err := UnwrapArray(srcType)
		if err != nil {
			return &ScatterError{Step: stepName, Port: portName,
				Reason: fmt.Sprintf("source type %s is not an array", srcType)}
		}
		if !Compatible(elem, port.Type) {
			return &TypeError{Op: "bind", Port: stepName + "." + portName,
				Got: elem, Want: port.Type}
		}
		return nil
	}
	if !Compatible(srcType, port.Type) {
		return &TypeError{Op: "bind", Port: stepName + "." + portName,
			Got: srcType, Want: port.Type}
	}
	return nil
}
