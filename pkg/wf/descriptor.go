package wf

// Descriptor is the fixed input/output port schema of something a step
// can run: a leaf tool, or a finalized Workflow used as a nested
// subworkflow. The graph engine treats descriptors as opaque,
// read-only catalog data shared by reference across steps; only the
// emitters dispatch on the concrete variant.
type Descriptor interface {
	// ID identifies the descriptor within a catalog or document.
	ID() string
	// Version is the descriptor's version, or "" when unversioned.
	Version() string
	// InputPorts is the fixed input port schema.
	InputPorts() []Port
	// OutputPorts is the fixed output port schema.
	OutputPorts() []Port
}

// Tool is the leaf-tool Descriptor variant: an externally supplied
// schema for a command-line tool. BaseCommand and Container are
// opaque execution hints passed through to the emitted descriptor;
// the graph engine never interprets them.
type Tool struct {
	Name        string
	Ver         string
	Doc         string
	In          []Port
	Out         []Port
	BaseCommand []string
	Container   string
}

func (t *Tool) ID() string      { return t.Name }
func (t *Tool) Version() string { return t.Ver }

func (t *Tool) InputPorts() []Port {
	return append([]Port(nil), t.In...)
}

func (t *Tool) OutputPorts() []Port {
	return append([]Port(nil), t.Out...)
}

// findPort returns the port with the given name from ports.
func findPort(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
