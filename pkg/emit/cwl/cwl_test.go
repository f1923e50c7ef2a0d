package cwl

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/me/flowc/pkg/emit"
	"github.com/me/flowc/pkg/wf"
)

func alignTool() *wf.Tool {
	return &wf.Tool{
		Name:        "bwa_align",
		Ver:         "0.7.17",
		In:          []wf.Port{{Name: "fastq", Type: wf.NamedFile("FastqGzPair"), Required: true}},
		Out:         []wf.Port{{Name: "bam", Type: wf.File()}},
		BaseCommand: []string{"bwa", "mem"},
		Container:   "quay.io/biocontainers/bwa:0.7.17",
	}
}

// buildScattered assembles the canonical scattered pipeline: an array
// of read pairs fanned out over an aligner, outputs collected as an
// array of BAMs.
func buildScattered(t *testing.T) *wf.Workflow {
	t.Helper()
	b := wf.NewBuilder("somatic")
	b.SetDoc("somatic variant pipeline")
	reads, err := b.Input("reads", wf.ArrayOf(wf.NamedFile("FastqGzPair")),
		wf.InputDoc("paired-end reads, one pair per lane"))
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	align, err := b.Step("align", alignTool(),
		map[string]wf.Source{"fastq": reads}, wf.Dot("fastq"))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	err = b.Output("bams", align.Out("bam"),
		wf.OutputFolder("bams"), wf.OutputName("aligned"))
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return w
}

// unmarshalDoc parses an emitted document back into generic YAML.
func unmarshalDoc(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal emitted document: %v", err)
	}
	return doc
}

// graphEntry finds the $graph entry with the given id.
func graphEntry(t *testing.T, doc map[string]any, id string) map[string]any {
	t.Helper()
	graph, ok := doc["$graph"].([]any)
	if !ok {
		t.Fatalf("$graph missing or not a sequence: %T", doc["$graph"])
	}
	for _, raw := range graph {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if entry["id"] == id {
			return entry
		}
	}
	t.Fatalf("no $graph entry with id %q", id)
	return nil
}

func TestEmit_ScatteredPipeline(t *testing.T) {
	w := buildScattered(t)

	docs, err := New(nil).Emit(w)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	if docs[0].Name != "somatic.cwl" {
		t.Errorf("document name = %q, want somatic.cwl", docs[0].Name)
	}

	doc := unmarshalDoc(t, docs[0].Data)
	if v := doc["cwlVersion"]; v != "v1.2" {
		t.Errorf("cwlVersion = %v, want v1.2", v)
	}

	flow := graphEntry(t, doc, "somatic")
	if flow["class"] != "Workflow" {
		t.Errorf("class = %v, want Workflow", flow["class"])
	}
	reqs := fmt.Sprintf("%v", flow["requirements"])
	if !strings.Contains(reqs, "ScatterFeatureRequirement") {
		t.Errorf("requirements %v lack ScatterFeatureRequirement", flow["requirements"])
	}

	steps := flow["steps"].(map[string]any)
	step := steps["align"].(map[string]any)
	if step["run"] != "#bwa_align" {
		t.Errorf("run = %v, want #bwa_align", step["run"])
	}
	in := step["in"].(map[string]any)
	if in["fastq"] != "reads" {
		t.Errorf("in.fastq = %v, want reads", in["fastq"])
	}
	scatter := fmt.Sprintf("%v", step["scatter"])
	if !strings.Contains(scatter, "fastq") {
		t.Errorf("scatter = %v, want fastq", step["scatter"])
	}
	if _, ok := step["scatterMethod"]; ok {
		t.Errorf("single-port scatter must not carry scatterMethod, got %v",
			step["scatterMethod"])
	}

	outs := flow["outputs"].(map[string]any)
	bams := outs["bams"].(map[string]any)
	if bams["type"] != "File[]" {
		t.Errorf("output type = %v, want File[]", bams["type"])
	}
	if bams["outputSource"] != "align/bam" {
		t.Errorf("outputSource = %v, want align/bam", bams["outputSource"])
	}

	tool := graphEntry(t, doc, "bwa_align")
	if tool["class"] != "CommandLineTool" {
		t.Errorf("tool class = %v, want CommandLineTool", tool["class"])
	}
	hints := fmt.Sprintf("%v", tool["hints"])
	if !strings.Contains(hints, "quay.io/biocontainers/bwa") {
		t.Errorf("hints = %v, want DockerRequirement pull", tool["hints"])
	}
}

func TestEmit_OutputHintsDeclareNamespace(t *testing.T) {
	w := buildScattered(t)

	docs, err := New(nil).Emit(w)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	doc := unmarshalDoc(t, docs[0].Data)

	ns, ok := doc["$namespaces"].(map[string]any)
	if !ok {
		t.Fatalf("$namespaces missing, outputs carry export hints")
	}
	if ns["flowc"] != hintNamespaceURI {
		t.Errorf("$namespaces.flowc = %v, want %v", ns["flowc"], hintNamespaceURI)
	}

	bams := graphEntry(t, doc, "somatic")["outputs"].(map[string]any)["bams"].(map[string]any)
	folder := fmt.Sprintf("%v", bams["flowc:outputFolder"])
	if !strings.Contains(folder, "bams") {
		t.Errorf("flowc:outputFolder = %v, want [bams]", bams["flowc:outputFolder"])
	}
	if bams["flowc:outputName"] != "aligned" {
		t.Errorf("flowc:outputName = %v, want aligned", bams["flowc:outputName"])
	}
}

func TestEmit_NestedWorkflowPacked(t *testing.T) {
	inner := wf.NewBuilder("preprocess")
	fq, err := inner.Input("fastq", wf.NamedFile("FastqGzPair"))
	if err != nil {
		t.Fatalf("inner Input: %v", err)
	}
	align, err := inner.Step("align", alignTool(),
		map[string]wf.Source{"fastq": fq}, nil)
	if err != nil {
		t.Fatalf("inner Step: %v", err)
	}
	if err := inner.Output("bam", align.Out("bam")); err != nil {
		t.Fatalf("inner Output: %v", err)
	}
	sub, err := inner.Finalize()
	if err != nil {
		t.Fatalf("inner Finalize: %v", err)
	}

	outer := wf.NewBuilder("somatic")
	reads, err := outer.Input("reads", wf.ArrayOf(wf.NamedFile("FastqGzPair")))
	if err != nil {
		t.Fatalf("outer Input: %v", err)
	}
	prep, err := outer.Step("prep", sub,
		map[string]wf.Source{"fastq": reads}, wf.Dot("fastq"))
	if err != nil {
		t.Fatalf("outer Step: %v", err)
	}
	if err := outer.Output("bams", prep.Out("bam")); err != nil {
		t.Fatalf("outer Output: %v", err)
	}
	w, err := outer.Finalize()
	if err != nil {
		t.Fatalf("outer Finalize: %v", err)
	}

	docs, err := New(nil).Emit(w)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	doc := unmarshalDoc(t, docs[0].Data)

	if graph := doc["$graph"].([]any); len(graph) != 3 {
		t.Fatalf("$graph entries = %d, want main + nested + tool", len(graph))
	}
	main := graphEntry(t, doc, "somatic")
	reqs := fmt.Sprintf("%v", main["requirements"])
	if !strings.Contains(reqs, "SubworkflowFeatureRequirement") {
		t.Errorf("requirements %v lack SubworkflowFeatureRequirement", main["requirements"])
	}
	step := main["steps"].(map[string]any)["prep"].(map[string]any)
	if step["run"] != "#preprocess" {
		t.Errorf("run = %v, want #preprocess", step["run"])
	}
	nested := graphEntry(t, doc, "preprocess")
	if nested["class"] != "Workflow" {
		t.Errorf("nested class = %v, want Workflow", nested["class"])
	}
}

func TestEmit_LiteralBindingBecomesDefault(t *testing.T) {
	tool := &wf.Tool{
		Name: "trim",
		Ver:  "1.0",
		In: []wf.Port{
			{Name: "fastq", Type: wf.File(), Required: true},
			{Name: "adapter", Type: wf.OptionalOf(wf.String())},
		},
		Out: []wf.Port{{Name: "trimmed", Type: wf.File()}},
	}

	b := wf.NewBuilder("trimflow")
	fq, err := b.Input("fastq", wf.File())
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	trim, err := b.Step("trim", tool, map[string]wf.Source{
		"fastq":   fq,
		"adapter": wf.LiteralSource("AGATCGGAAGAG"),
	}, nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := b.Output("trimmed", trim.Out("trimmed")); err != nil {
		t.Fatalf("Output: %v", err)
	}
	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	docs, err := New(nil).Emit(w)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	doc := unmarshalDoc(t, docs[0].Data)
	step := graphEntry(t, doc, "trimflow")["steps"].(map[string]any)["trim"].(map[string]any)
	adapter, ok := step["in"].(map[string]any)["adapter"].(map[string]any)
	if !ok {
		t.Fatalf("literal binding not rendered as a block: %v", step["in"])
	}
	if adapter["default"] != "AGATCGGAAGAG" {
		t.Errorf("default = %v, want adapter sequence", adapter["default"])
	}
}

func TestEmit_CrossScatterMethod(t *testing.T) {
	tool := &wf.Tool{
		Name: "call_variants",
		Ver:  "1.0",
		In: []wf.Port{
			{Name: "bam", Type: wf.File(), Required: true},
			{Name: "interval", Type: wf.String(), Required: true},
		},
		Out: []wf.Port{{Name: "vcf", Type: wf.File()}},
	}

	b := wf.NewBuilder("calls")
	bams, err := b.Input("bams", wf.ArrayOf(wf.File()))
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	intervals, err := b.Input("intervals", wf.ArrayOf(wf.String()))
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	call, err := b.Step("call", tool, map[string]wf.Source{
		"bam":      bams,
		"interval": intervals,
	}, wf.Cross("bam", "interval"))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := b.Output("vcfs", call.Out("vcf")); err != nil {
		t.Fatalf("Output: %v", err)
	}
	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	docs, err := New(nil).Emit(w)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	doc := unmarshalDoc(t, docs[0].Data)
	flow := graphEntry(t, doc, "calls")
	step := flow["steps"].(map[string]any)["call"].(map[string]any)
	if step["scatterMethod"] != "nested_crossproduct" {
		t.Errorf("scatterMethod = %v, want nested_crossproduct", step["scatterMethod"])
	}
	vcfs := flow["outputs"].(map[string]any)["vcfs"].(map[string]any)
	if vcfs["type"] != "File[][]" {
		t.Errorf("cross output type = %v, want File[][]", vcfs["type"])
	}
}

func TestEmit_DistinctToolsSharingID(t *testing.T) {
	mk := func() *wf.Tool {
		return &wf.Tool{
			Name: "dup",
			Ver:  "1.0",
			In:   []wf.Port{{Name: "in", Type: wf.File(), Required: true}},
			Out:  []wf.Port{{Name: "out", Type: wf.File()}},
		}
	}

	b := wf.NewBuilder("broken")
	f, err := b.Input("f", wf.File())
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	a, err := b.Step("a", mk(), map[string]wf.Source{"in": f}, nil)
	if err != nil {
		t.Fatalf("Step a: %v", err)
	}
	if _, err := b.Step("b", mk(), map[string]wf.Source{"in": f}, nil); err != nil {
		t.Fatalf("Step b: %v", err)
	}
	if err := b.Output("out", a.Out("out")); err != nil {
		t.Fatalf("Output: %v", err)
	}
	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	_, err = New(nil).Emit(w)
	var emitErr *emit.EmitError
	if !errors.As(err, &emitErr) {
		t.Fatalf("error = %v, want *emit.EmitError", err)
	}
	if emitErr.Format != emit.FormatCWL {
		t.Errorf("format = %v, want cwl", emitErr.Format)
	}
}
