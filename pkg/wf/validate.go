package wf

import (
	"fmt"
	"sort"
)

// validate runs the whole-graph checks over a builder's accumulated
// state: cycle detection, required-input coverage, a full
// type-compatibility re-check across every connection (accounting for
// scatter unwrapping), and name uniqueness within each scope. All
// violations are collected so Finalize can report them together.
func validate(b *Builder) []Issue {
	var issues []Issue
	issues = append(issues, validateCycles(b)...)
	issues = append(issues, validateRequired(b)...)
	issues = append(issues, validateConnections(b)...)
	issues = append(issues, validateNames(b)...)
	issues = append(issues, validateNesting(b)...)
	return issues
}

func validateCycles(b *Builder) []Issue {
	if _, err := topoOrder(b.steps); err != nil {
		return []Issue{{Field: "steps", Err: err}}
	}
	return nil
}

// validateRequired checks that every required input port of every step
// has a bound Source. Declared workflow outputs are always bound: the
// Output call rejects unresolvable sources.
func validateRequired(b *Builder) []Issue {
	var issues []Issue
	for _, name := range b.stepOrder {
		step := b.steps[name]
		for _, p := range step.desc.InputPorts() {
			if !p.Required {
				continue
			}
			if _, ok := step.in[p.Name]; !ok {
				issues = append(issues, Issue{
					Field: fmt.Sprintf("steps.%s.in.%s", name, p.Name),
					Err:   fmt.Errorf("required input %q has no source", p.Name),
				})
			}
		}
	}
	return issues
}

// validateConnections re-resolves and re-checks every connection. This
// is where bindings that referenced not-yet-declared steps at
// declaration time are finally resolved and type-checked.
func validateConnections(b *Builder) []Issue {
	var issues []Issue
	for _, name := range b.stepOrder {
		step := b.steps[name]
		ports := sortedBindingPorts(step)
		for _, portName := range ports {
			src := step.in[portName]
			if err := b.checkBinding(name, portName, src, step.desc, step.scatter, true); err != nil {
				issues = append(issues, Issue{
					Field: fmt.Sprintf("steps.%s.in.%s", name, portName),
					Err:   err,
				})
			}
		}
	}
	for _, out := range b.outputs {
		typ, resolved, err := b.resolveType(out.Source)
		if err == nil && !resolved {
			err = &UnknownSourceError{Source: out.Source.Ref()}
		}
		if err == nil && !typ.Equal(out.Type) {
			// A source whose producing step was declared after the
			// output cannot occur (outputs resolve eagerly), so the
			// recorded type must still match.
			err = &TypeError{Op: "bind", Port: out.Name, Got: typ, Want: out.Type}
		}
		if err != nil {
			issues = append(issues, Issue{
				Field: fmt.Sprintf("outputs.%s", out.Name),
				Err:   err,
			})
		}
	}
	return issues
}

// validateNames re-checks uniqueness within each scope. The builder
// rejects duplicate input, step, and output names as they are
// declared; descriptors are externally supplied, so their port schemas
// are verified here.
func validateNames(b *Builder) []Issue {
	var issues []Issue
	for _, name := range b.stepOrder {
		step := b.steps[name]
		for _, sc := range []struct {
			scope string
			ports []Port
		}{
			{"inputs", step.desc.InputPorts()},
			{"outputs", step.desc.OutputPorts()},
		} {
			scope, ports := sc.scope, sc.ports
			seen := make(map[string]bool, len(ports))
			for _, p := range ports {
				if seen[p.Name] {
					issues = append(issues, Issue{
						Field: fmt.Sprintf("steps.%s.descriptor.%s", name, scope),
						Err:   &DuplicateNameError{Scope: "port", Name: p.Name},
					})
				}
				seen[p.Name] = true
			}
		}
	}
	return issues
}

// validateNesting rejects a workflow that (directly or through nested
// workflows) depends on an instance of itself. The public API cannot
// construct such a graph (a workflow is frozen before it is usable as
// a descriptor), but Descriptor is an interface and a custom
// implementation could close the loop.
func validateNesting(b *Builder) []Issue {
	path := make(map[Descriptor]bool)
	var chain []string
	var walk func(name string, d Descriptor) []Issue

	walk = func(name string, d Descriptor) []Issue {
		w, ok := d.(*Workflow)
		if !ok {
			return nil
		}
		if path[d] {
			return []Issue{{
				Field: "steps." + name,
				Err:   &CycleError{Steps: append(append([]string(nil), chain...), w.Name())},
			}}
		}
		path[d] = true
		chain = append(chain, w.Name())
		var issues []Issue
		for _, sub := range w.Steps() {
			issues = append(issues, walk(name+"."+sub.Name(), sub.Descriptor())...)
		}
		chain = chain[:len(chain)-1]
		delete(path, d)
		return issues
	}

	var issues []Issue
	for _, name := range b.stepOrder {
		issues = append(issues, walk(name, b.steps[name].desc)...)
	}
	return issues
}

// sortedBindingPorts returns a step's bound port names in a stable
// order so aggregated reports are deterministic.
func sortedBindingPorts(s *Step) []string {
	ports := make([]string, 0, len(s.in))
	for p := range s.in {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return ports
}
