package wf

// Step is a node in the workflow graph: an invocation of a descriptor
// (tool or nested workflow) with each input port bound to a Source,
// optionally fanned out by a scatter directive. Steps are frozen once
// the enclosing workflow is finalized.
type Step struct {
	name    string
	desc    Descriptor
	in      map[string]Source
	scatter *Scatter
}

// Name returns the step's unique name within its workflow.
func (s *Step) Name() string { return s.name }

// Descriptor returns the tool or nested workflow the step runs.
func (s *Step) Descriptor() Descriptor { return s.desc }

// Bindings returns a copy of the input-port-name to Source mapping.
func (s *Step) Bindings() map[string]Source {
	out := make(map[string]Source, len(s.in))
	for k, v := range s.in {
		out[k] = v
	}
	return out
}

// Binding returns the Source bound to the named input port.
func (s *Step) Binding(port string) (Source, bool) {
	src, ok := s.in[port]
	return src, ok
}

// Scatter returns a copy of the step's scatter directive, or nil.
func (s *Step) Scatter() *Scatter { return s.scatter.clone() }

// InputType returns the effective type consumed at the named input
// port: the descriptor's declared port type, which a scattered source
// feeds element-wise.
func (s *Step) InputType(port string) (Type, bool) {
	p, ok := findPort(s.desc.InputPorts(), port)
	if !ok {
		return Type{}, false
	}
	return p.Type, true
}

// OutputType returns the effective type produced at the named output
// port: the descriptor's declared type wrapped in one array layer per
// scattered dimension.
func (s *Step) OutputType(port string) (Type, bool) {
	p, ok := findPort(s.desc.OutputPorts(), port)
	if !ok {
		return Type{}, false
	}
	return wrapArrayN(p.Type, s.scatter.WrapDepth()), true
}

// Output is a declared workflow output: a named, typed boundary port
// bound to a Source, with optional export-path hints passed through
// unchanged to the staging layer of the external execution engine.
type Output struct {
	Name       string
	Type       Type
	Source     Source
	Doc        string
	Folder     []string
	OutputName string
}

// Workflow is a finalized, immutable workflow graph. It is produced by
// Builder.Finalize after validation and can itself serve as a
// Descriptor for nested use in a parent graph. Independent workflows
// share no mutable state and may be built concurrently.
type Workflow struct {
	name    string
	version string
	doc     string
	inputs  []Port
	steps   map[string]*Step
	order   []string
	outputs []Output
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Doc returns the workflow documentation string.
func (w *Workflow) Doc() string { return w.doc }

// Inputs returns the declared input ports in declaration order.
func (w *Workflow) Inputs() []Port {
	return append([]Port(nil), w.inputs...)
}

// Input returns the declared input port with the given name.
func (w *Workflow) Input(name string) (Port, bool) {
	return findPort(w.inputs, name)
}

// Outputs returns the declared outputs in declaration order.
func (w *Workflow) Outputs() []Output {
	return append([]Output(nil), w.outputs...)
}

// Steps returns the steps in topological dependency order: every
// producer precedes its consumers.
func (w *Workflow) Steps() []*Step {
	out := make([]*Step, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.steps[name])
	}
	return out
}

// Step returns the named step.
func (w *Workflow) Step(name string) (*Step, bool) {
	s, ok := w.steps[name]
	return s, ok
}

// --- Descriptor: a finalized workflow is usable as a step schema. ---

// ID returns the workflow name, identifying it as a descriptor.
func (w *Workflow) ID() string { return w.name }

// Version returns the workflow version, or "".
func (w *Workflow) Version() string { return w.version }

// InputPorts exposes the declared inputs as a descriptor port schema.
func (w *Workflow) InputPorts() []Port {
	return w.Inputs()
}

// OutputPorts exposes the declared outputs as a descriptor port schema.
func (w *Workflow) OutputPorts() []Port {
	ports := make([]Port, len(w.outputs))
	for i, o := range w.outputs {
		ports[i] = Port{Name: o.Name, Type: o.Type, Required: !o.Type.IsOptional(), Doc: o.Doc}
	}
	return ports
}
