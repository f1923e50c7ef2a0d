package wdl

import (
	"errors"
	"strings"
	"testing"

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

func emitOne(t *testing.T, w *wf.Workflow) string {
	t.Helper()
	docs, err := New(nil).Emit(w)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	return string(docs[0].Data)
}

func wantContains(t *testing.T, text string, fragments ...string) {
	t.Helper()
	for _, frag := range fragments {
		if !strings.Contains(text, frag) {
			t.Errorf("document lacks %q:\n%s", frag, text)
		}
	}
}

func TestEmit_ScatteredPipeline(t *testing.T) {
	b := wf.NewBuilder("somatic")
	reads, err := b.Input("reads", wf.ArrayOf(wf.NamedFile("FastqGzPair")))
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	align, err := b.Step("align", alignTool(),
		map[string]wf.Source{"fastq": reads}, wf.Dot("fastq"))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := b.Output("bams", align.Out("bam")); err != nil {
		t.Fatalf("Output: %v", err)
	}
	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	text := emitOne(t, w)
	wantContains(t, text,
		"version 1.0",
		"workflow somatic {",
		"Array[File] reads",
		"scatter (fastq_item in reads) {",
		"call bwa_align as align",
		"fastq = fastq_item",
		"Array[File] bams = align.bam",
		"task bwa_align {",
		"bwa mem",
		`docker: "quay.io/biocontainers/bwa:0.7.17"`,
	)
	if strings.Contains(text, "import ") {
		t.Errorf("flat workflow must not import:\n%s", text)
	}
}

func TestEmit_TwoPortDotUsesZip(t *testing.T) {
	tool := &wf.Tool{
		Name: "pair_up",
		Ver:  "1.0",
		In: []wf.Port{
			{Name: "r1", Type: wf.File(), Required: true},
			{Name: "r2", Type: wf.File(), Required: true},
		},
		Out: []wf.Port{{Name: "merged", Type: wf.File()}},
	}

	b := wf.NewBuilder("pairing")
	r1s, err := b.Input("r1s", wf.ArrayOf(wf.File()))
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	r2s, err := b.Input("r2s", wf.ArrayOf(wf.File()))
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	pair, err := b.Step("pair", tool, map[string]wf.Source{
		"r1": r1s,
		"r2": r2s,
	}, wf.Dot("r1", "r2"))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := b.Output("merged", pair.Out("merged")); err != nil {
		t.Fatalf("Output: %v", err)
	}
	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	text := emitOne(t, w)
	wantContains(t, text,
		"scatter (pair in zip(r1s, r2s)) {",
		"r1 = pair.left",
		"r2 = pair.right",
	)
}

func TestEmit_CrossScatterRejected(t *testing.T) {
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

	_, err = New(nil).Emit(w)
	var emitErr *emit.EmitError
	if !errors.As(err, &emitErr) {
		t.Fatalf("error = %v, want *emit.EmitError", err)
	}
	if emitErr.Format != emit.FormatWDL {
		t.Errorf("format = %v, want wdl", emitErr.Format)
	}
	if !strings.Contains(emitErr.Reason, "cross-product") {
		t.Errorf("reason = %q, want cross-product mention", emitErr.Reason)
	}
}

func TestEmit_ThreePortDotRejected(t *testing.T) {
	tool := &wf.Tool{
		Name: "triple",
		Ver:  "1.0",
		In: []wf.Port{
			{Name: "a", Type: wf.File(), Required: true},
			{Name: "b", Type: wf.File(), Required: true},
			{Name: "c", Type: wf.File(), Required: true},
		},
		Out: []wf.Port{{Name: "out", Type: wf.File()}},
	}

	b := wf.NewBuilder("triples")
	src := map[string]wf.Source{}
	for _, name := range []string{"a", "b", "c"} {
		in, err := b.Input(name+"s", wf.ArrayOf(wf.File()))
		if err != nil {
			t.Fatalf("Input: %v", err)
		}
		src[name] = in
	}
	step, err := b.Step("t3", tool, src, wf.Dot("a", "b", "c"))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := b.Output("outs", step.Out("out")); err != nil {
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
}

func TestEmit_NestedWorkflowImported(t *testing.T) {
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
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want main + nested", len(docs))
	}
	if docs[0].Name != "somatic.wdl" || docs[1].Name != "preprocess.wdl" {
		t.Fatalf("document names = %s, %s", docs[0].Name, docs[1].Name)
	}

	main := string(docs[0].Data)
	wantContains(t, main,
		`import "preprocess.wdl" as preprocess_wdl`,
		"call preprocess_wdl.preprocess as prep",
		"scatter (fastq_item in reads) {",
	)
	if strings.Contains(main, "task bwa_align") {
		t.Errorf("main document must not inline the nested workflow's task:\n%s", main)
	}

	nested := string(docs[1].Data)
	wantContains(t, nested,
		"workflow preprocess {",
		"task bwa_align {",
	)
}

func TestEmit_LiteralBindings(t *testing.T) {
	tool := &wf.Tool{
		Name: "trim",
		Ver:  "1.0",
		In: []wf.Port{
			{Name: "fastq", Type: wf.File(), Required: true},
			{Name: "adapter", Type: wf.OptionalOf(wf.String())},
			{Name: "quality", Type: wf.OptionalOf(wf.Int())},
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
		"quality": wf.LiteralSource(nil),
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

	text := emitOne(t, w)
	wantContains(t, text, `adapter = "AGATCGGAAGAG"`)
	if strings.Contains(text, "quality =") {
		t.Errorf("null literal must leave the input unset:\n%s", text)
	}
}

func TestEmit_SecondariesInParameterMeta(t *testing.T) {
	tool := &wf.Tool{
		Name: "index_stats",
		Ver:  "1.0",
		In:   []wf.Port{{Name: "reference", Type: wf.NamedFile("FastaWithIndexes", ".fai", "^.dict"), Required: true}},
		Out:  []wf.Port{{Name: "stats", Type: wf.File()}},
	}

	b := wf.NewBuilder("stats")
	ref, err := b.Input("reference", wf.NamedFile("FastaWithIndexes", ".fai", "^.dict"),
		wf.InputDoc("indexed reference genome"))
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	st, err := b.Step("stats", tool, map[string]wf.Source{"reference": ref}, nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := b.Output("stats", st.Out("stats")); err != nil {
		t.Fatalf("Output: %v", err)
	}
	w, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	text := emitOne(t, w)
	wantContains(t, text,
		"parameter_meta {",
		`secondaryFiles: [".fai", "^.dict"]`,
		"File reference",
	)
}
