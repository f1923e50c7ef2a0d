package wf

// ScatterMethod is the merge policy applied when more than one port is
// scattered.
type ScatterMethod uint8

const (
	// ScatterDot pairs the scattered inputs lock-step: the step runs
	// once per index, consuming element i of each scattered input.
	// Equal array lengths are a runtime contract of the execution
	// engine and are intentionally not checked at compile time.
	ScatterDot ScatterMethod = iota
	// ScatterCross runs the step once per combination of elements
	// across all scattered inputs.
	ScatterCross
)

func (m ScatterMethod) String() string {
	if m == ScatterCross {
		return "cross"
	}
	return "dot"
}

// Scatter fans a step out over one or more array-typed inputs. Each
// scattered input port consumes the element type of its source; every
// output is re-wrapped in array layers at emission time.
type Scatter struct {
	Ports  []string
	Method ScatterMethod
}

// Dot returns a lock-step scatter directive over the given ports.
func Dot(ports ...string) *Scatter {
	return &Scatter{Ports: append([]string(nil), ports...), Method: ScatterDot}
}

// Cross returns a cross-product scatter directive over the given ports.
func Cross(ports ...string) *Scatter {
	return &Scatter{Ports: append([]string(nil), ports...), Method: ScatterCross}
}

// Has reports whether the directive scatters the named port.
func (s *Scatter) Has(port string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Ports {
		if p == port {
			return true
		}
	}
	return false
}

// WrapDepth is the number of array layers a scattered step adds to
// each of its outputs: one for lock-step, one per scattered port for
// cross-product.
func (s *Scatter) WrapDepth() int {
	if s == nil || len(s.Ports) == 0 {
		return 0
	}
	if s.Method == ScatterCross {
		return len(s.Ports)
	}
	return 1
}

// clone returns a deep copy so frozen workflows never alias
// caller-held directives.
func (s *Scatter) clone() *Scatter {
	if s == nil {
		return nil
	}
	return &Scatter{Ports: append([]string(nil), s.Ports...), Method: s.Method}
}
