package wf

import "sort"

// topoOrder computes a topological order over the steps using Kahn's
// algorithm. A step-output Source creates an edge from the producing
// step to the consuming step; workflow-input and literal sources
// create no edges. Queue and successor lists are sorted so the order
// is deterministic. Returns a *CycleError naming the member steps
// when the graph has a back-edge.
func topoOrder(steps map[string]*Step) ([]string, error) {
	forward := make(map[string][]string, len(steps))
	inDegree := make(map[string]int, len(steps))
	for name := range steps {
		inDegree[name] = 0
	}

	for name, step := range steps {
		seen := make(map[string]bool)
		for _, src := range step.in {
			if src.Kind() != SourceStepOutput {
				continue
			}
			dep := src.Step()
			if dep == name {
				return nil, &CycleError{Steps: []string{name}}
			}
			if _, ok := steps[dep]; !ok || seen[dep] {
				continue
			}
			seen[dep] = true
			forward[dep] = append(forward[dep], name)
			inDegree[name]++
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(steps))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		successors := forward[node]
		sort.Strings(successors)
		for _, succ := range successors {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(steps) {
		var members []string
		for name, deg := range inDegree {
			if deg > 0 {
				members = append(members, name)
			}
		}
		sort.Strings(members)
		return nil, &CycleError{Steps: members}
	}

	return order, nil
}
