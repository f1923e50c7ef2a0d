// Package emit defines the shared surface of the descriptor emitters:
// the target-format tag, the emitted document type, and EmitError.
// The format-specific emitters live in the cwl and wdl subpackages;
// nothing upstream of them dispatches on the target format.
package emit

import (
	"fmt"

	"github.com/me/flowc/pkg/wf"
)

// Format selects a portable descriptor format.
type Format string

const (
	FormatCWL Format = "cwl"
	FormatWDL Format = "wdl"
)

// Formats lists the supported target formats.
func Formats() []Format {
	return []Format{FormatCWL, FormatWDL}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCWL, FormatWDL:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q (supported: cwl, wdl)", s)
}

// Document is one emitted file of a compiled workflow descriptor.
// CWL packs everything into a single document; WDL produces one per
// workflow plus imports.
type Document struct {
	Name string // file name, e.g. "wgs_somatic.cwl"
	Data []byte
}

// Emitter compiles a finalized workflow into one or more documents.
// Emitters are pure functions of the frozen graph: a failure in one
// target format never affects emission to another.
type Emitter interface {
	Emit(w *wf.Workflow) ([]Document, error)
}

// EmitError reports a construct present in the graph that the target
// format cannot represent.
type EmitError struct {
	Format    Format
	Construct string
	Reason    string
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("%s: cannot emit %s: %s", e.Format, e.Construct, e.Reason)
}
