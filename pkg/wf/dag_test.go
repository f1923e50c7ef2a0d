package wf

import "testing"

// mkStep builds a step for white-box DAG tests, bypassing the builder.
func mkStep(name string, in map[string]Source) *Step {
	return &Step{name: name, desc: &Tool{Name: "t"}, in: in}
}

func TestTopoOrder_LinearPipeline(t *testing.T) {
	steps := map[string]*Step{
		"assemble": mkStep("assemble", map[string]Source{"reads": InputSource("reads")}),
		"annotate": mkStep("annotate", map[string]Source{"contigs": StepSource("assemble", "contigs")}),
	}

	order, err := topoOrder(steps)
	if err != nil {
		t.Fatalf("topoOrder: %v", err)
	}
	if len(order) != 2 || order[0] != "assemble" || order[1] != "annotate" {
		t.Errorf("order = %v, want [assemble annotate]", order)
	}
}

func TestTopoOrder_ParallelSteps(t *testing.T) {
	steps := map[string]*Step{
		"qc_a": mkStep("qc_a", map[string]Source{"in": InputSource("reads")}),
		"qc_b": mkStep("qc_b", map[string]Source{"in": InputSource("reads")}),
	}

	order, err := topoOrder(steps)
	if err != nil {
		t.Fatalf("topoOrder: %v", err)
	}
	// Independent steps come out in name order (deterministic).
	if len(order) != 2 || order[0] != "qc_a" || order[1] != "qc_b" {
		t.Errorf("order = %v, want [qc_a qc_b]", order)
	}
}

func TestTopoOrder_DiamondShape(t *testing.T) {
	steps := map[string]*Step{
		"a": mkStep("a", map[string]Source{"x": InputSource("in")}),
		"b": mkStep("b", map[string]Source{"x": StepSource("a", "out")}),
		"c": mkStep("c", map[string]Source{"x": StepSource("a", "out")}),
		"d": mkStep("d", map[string]Source{
			"x": StepSource("b", "out"),
			"y": StepSource("c", "out"),
		}),
	}

	order, err := topoOrder(steps)
	if err != nil {
		t.Fatalf("topoOrder: %v", err)
	}
	if len(order) != 4 || order[0] != "a" || order[3] != "d" {
		t.Errorf("order = %v, want a first and d last", order)
	}
}

func TestTopoOrder_CycleDetected(t *testing.T) {
	steps := map[string]*Step{
		"a": mkStep("a", map[string]Source{"x": StepSource("b", "out")}),
		"b": mkStep("b", map[string]Source{"x": StepSource("a", "out")}),
	}

	_, err := topoOrder(steps)
	ce, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("error = %v, want *CycleError", err)
	}
	if len(ce.Steps) != 2 || ce.Steps[0] != "a" || ce.Steps[1] != "b" {
		t.Errorf("members = %v, want [a b]", ce.Steps)
	}
}

func TestTopoOrder_SelfLoop(t *testing.T) {
	steps := map[string]*Step{
		"a": mkStep("a", map[string]Source{"x": StepSource("a", "out")}),
	}

	_, err := topoOrder(steps)
	ce, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("error = %v, want *CycleError", err)
	}
	if len(ce.Steps) != 1 || ce.Steps[0] != "a" {
		t.Errorf("members = %v, want [a]", ce.Steps)
	}
}

func TestTopoOrder_LiteralAndInputSourcesCreateNoEdges(t *testing.T) {
	steps := map[string]*Step{
		"only": mkStep("only", map[string]Source{
			"x": InputSource("in"),
			"y": LiteralSource(42),
		}),
	}

	order, err := topoOrder(steps)
	if err != nil {
		t.Fatalf("topoOrder: %v", err)
	}
	if len(order) != 1 || order[0] != "only" {
		t.Errorf("order = %v, want [only]", order)
	}
}
