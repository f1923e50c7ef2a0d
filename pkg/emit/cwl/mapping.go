package cwl

import "gopkg.in/yaml.v3"

// mapping is an insertion-ordered map. yaml.v3 marshals plain Go maps
// in unspecified key order; emitted documents must be deterministic so
// diffs between compilations are meaningful.
type mapping struct {
	keys []string
	vals map[string]any
}

func newMapping() *mapping {
	return &mapping{vals: make(map[string]any)}
}

// set records the key on first use and overwrites the value after.
func (m *mapping) set(key string, v any) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// MarshalYAML renders the mapping with keys in insertion order.
func (m *mapping) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(m.vals[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}
