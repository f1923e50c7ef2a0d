package wf

import "fmt"

// Port is a named, typed endpoint on a step descriptor or on the
// workflow boundary. Ports are value types created when their owner is
// declared and never mutated after.
type Port struct {
	Name     string
	Type     Type
	Required bool
	Doc      string
}

// SourceKind tags the variant of a Source.
type SourceKind uint8

const (
	SourceInvalid SourceKind = iota
	SourceWorkflowInput
	SourceStepOutput
	SourceLiteral
)

// Source is the binding of a consuming input port: a reference to a
// workflow-level input, to an output port of another step, or a
// literal value. An output port may feed any number of Sources.
type Source struct {
	kind  SourceKind
	step  string
	port  string
	input string
	value any
}

// InputSource references the workflow input with the given name.
func InputSource(name string) Source {
	return Source{kind: SourceWorkflowInput, input: name}
}

// StepSource references the named output port of a step.
func StepSource(step, port string) Source {
	return Source{kind: SourceStepOutput, step: step, port: port}
}

// LiteralSource binds a literal value. A nil value binds an explicit
// null (the port falls back to its default at execution time).
func LiteralSource(v any) Source {
	return Source{kind: SourceLiteral, value: v}
}

// Kind returns the Source variant.
func (s Source) Kind() SourceKind { return s.kind }

// IsZero reports whether s is the zero (unbound) Source.
func (s Source) IsZero() bool { return s.kind == SourceInvalid }

// Input returns the referenced workflow input name for a
// SourceWorkflowInput.
func (s Source) Input() string { return s.input }

// Step returns the producing step name for a SourceStepOutput.
func (s Source) Step() string { return s.step }

// Port returns the producing port name for a SourceStepOutput.
func (s Source) Port() string { return s.port }

// Value returns the literal value for a SourceLiteral.
func (s Source) Value() any { return s.value }

// Ref renders the source reference in "step/port" notation for step
// outputs and the bare input name for workflow inputs.
func (s Source) Ref() string {
	switch s.kind {
	case SourceWorkflowInput:
		return s.input
	case SourceStepOutput:
		return s.step + "/" + s.port
	case SourceLiteral:
		return fmt.Sprintf("literal(%v)", s.value)
	}
	return ""
}
