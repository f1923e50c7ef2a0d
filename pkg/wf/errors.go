package wf

import (
	"fmt"
	"strings"
)

// DuplicateNameError reports a name reused within a scope (workflow
// inputs, steps, outputs, or a descriptor's ports).
type DuplicateNameError struct {
	Scope string // "input", "step", "output", "port"
	Name  string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q", e.Scope, e.Name)
}

// UnknownPortError reports a binding that names an input port absent
// from the step's descriptor.
type UnknownPortError struct {
	Step string
	Port string
}

func (e *UnknownPortError) Error() string {
	return fmt.Sprintf("step %q: descriptor has no input port %q", e.Step, e.Port)
}

// UnknownSourceError reports a Source that does not resolve to any
// workflow input or step output port.
type UnknownSourceError struct {
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("source %q does not resolve to a workflow input or step output", e.Source)
}

// TypeError reports an incompatible connection or an invalid type
// operation. Want is the zero Type for unary operations like unwrap.
type TypeError struct {
	Op   string // "bind", "unwrap"
	Port string // consuming port, as "step.port", when applicable
	Got  Type
	Want Type
}

func (e *TypeError) Error() string {
	if e.Op == "unwrap" {
		return fmt.Sprintf("cannot unwrap non-array type %s", e.Got)
	}
	return fmt.Sprintf("source type %s is not compatible with port %q of type %s", e.Got, e.Port, e.Want)
}

// ScatterError reports an invalid scatter directive: a scattered name
// that is not an input port of the step's descriptor, a scattered port
// with no binding, or a scattered source that is not array-typed.
type ScatterError struct {
	Step   string
	Port   string
	Reason string
}

func (e *ScatterError) Error() string {
	return fmt.Sprintf("step %q: scatter over %q: %s", e.Step, e.Port, e.Reason)
}

// CycleError reports a dependency cycle and names its member steps.
type CycleError struct {
	Steps []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow contains a cycle involving steps: %s", strings.Join(e.Steps, ", "))
}

// Issue is a single validation violation, scoped to the part of the
// workflow it concerns ("steps.align.in.fastq", "outputs.variants").
type Issue struct {
	Field string
	Err   error
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Err.Error()
	}
	return i.Field + ": " + i.Err.Error()
}

// ValidationError aggregates every violation found while finalizing a
// workflow, so a single construction attempt surfaces all problems
// instead of the first one. It unwraps to the individual errors, so
// errors.As reaches the underlying kinds.
type ValidationError struct {
	Workflow string
	Issues   []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("workflow %q is not valid (%d problems): %s",
		e.Workflow, len(e.Issues), strings.Join(parts, "; "))
}

// Unwrap exposes the individual violations to errors.Is / errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, is := range e.Issues {
		errs[i] = is.Err
	}
	return errs
}
