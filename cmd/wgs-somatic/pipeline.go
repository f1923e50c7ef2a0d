package main

import (
	"fmt"

	"github.com/me/flowc/pkg/wf"
)

// Tool descriptors for the somatic pipeline. The engine treats them as
// opaque schemas; commands and containers pass through to the emitted
// documents.

func fastaWithIndexes() wf.Type {
	return wf.NamedFile("FastaWithIndexes",
		".fai", ".amb", ".ann", ".bwt", ".pac", ".sa", "^.dict")
}

func fastqGzPair() wf.Type { return wf.NamedFile("FastqGzPair") }

func indexedBam() wf.Type { return wf.NamedFile("IndexedBam", ".bai") }

func alignAndSortTool() *wf.Tool {
	return &wf.Tool{
		Name:        "align_and_sort",
		Ver:         "0.7.17",
		Doc:         "BWA-MEM alignment piped into a coordinate sort",
		Container:   "quay.io/biocontainers/bwa:0.7.17",
		BaseCommand: []string{"bwa", "mem"},
		In: []wf.Port{
			{Name: "sample_name", Type: wf.String(), Required: true},
			{Name: "reference", Type: fastaWithIndexes(), Required: true},
			{Name: "fastq", Type: fastqGzPair(), Required: true},
		},
		Out: []wf.Port{{Name: "bam", Type: wf.File()}},
	}
}

func mergeAndMarkTool() *wf.Tool {
	return &wf.Tool{
		Name:        "merge_and_mark",
		Ver:         "2.20.2",
		Doc:         "merge lane BAMs and mark duplicates",
		Container:   "quay.io/biocontainers/picard:2.20.2",
		BaseCommand: []string{"picard", "MarkDuplicates"},
		In: []wf.Port{
			{Name: "bams", Type: wf.ArrayOf(wf.File()), Required: true},
		},
		Out: []wf.Port{{Name: "bam", Type: indexedBam()}},
	}
}

func gatkVariantCallerTool() *wf.Tool {
	return &wf.Tool{
		Name:        "vc_gatk",
		Ver:         "4.1.3",
		Doc:         "GATK Mutect2 somatic variant calling over one interval",
		Container:   "broadinstitute/gatk:4.1.3.0",
		BaseCommand: []string{"gatk", "Mutect2"},
		In: []wf.Port{
			{Name: "normal_bam", Type: indexedBam(), Required: true},
			{Name: "tumor_bam", Type: indexedBam(), Required: true},
			{Name: "normal_name", Type: wf.String(), Required: true},
			{Name: "reference", Type: fastaWithIndexes(), Required: true},
			{Name: "intervals", Type: wf.NamedFile("Bed"), Required: true},
		},
		Out: []wf.Port{{Name: "vcf", Type: wf.File()}},
	}
}

func gatherVcfsTool() *wf.Tool {
	return &wf.Tool{
		Name:        "vc_gatk_merge",
		Ver:         "4.1.3",
		Doc:         "gather per-interval VCFs into one call set",
		Container:   "broadinstitute/gatk:4.1.3.0",
		BaseCommand: []string{"gatk", "GatherVcfs"},
		In: []wf.Port{
			{Name: "vcfs", Type: wf.ArrayOf(wf.File()), Required: true},
		},
		Out: []wf.Port{{Name: "vcf", Type: wf.File()}},
	}
}

// buildPreprocess assembles the per-sample subworkflow: align each
// lane pair, then merge and mark duplicates into one indexed BAM.
func buildPreprocess() (*wf.Workflow, error) {
	b := wf.NewBuilder("somatic_subpipeline")
	b.SetVersion("1.4.0")
	b.SetDoc("Per-sample preprocessing: alignment, merge, duplicate marking")

	sample, err := b.Input("sample_name", wf.String())
	if err != nil {
		return nil, err
	}
	reference, err := b.Input("reference", fastaWithIndexes())
	if err != nil {
		return nil, err
	}
	reads, err := b.Input("reads", wf.ArrayOf(fastqGzPair()),
		wf.InputDoc("paired-end reads, one pair per lane"))
	if err != nil {
		return nil, err
	}

	align, err := b.Step("align_and_sort", alignAndSortTool(), map[string]wf.Source{
		"sample_name": sample,
		"reference":   reference,
		"fastq":       reads,
	}, wf.Dot("fastq"))
	if err != nil {
		return nil, err
	}

	merge, err := b.Step("merge_and_mark", mergeAndMarkTool(), map[string]wf.Source{
		"bams": align.Out("bam"),
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := b.Output("bam", merge.Out("bam")); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// buildPipeline assembles the whole-genome somatic pipeline: the
// preprocessing subworkflow instantiated for tumor and normal, then
// Mutect2 fanned out over the calling intervals.
func buildPipeline() (*wf.Workflow, error) {
	preprocess, err := buildPreprocess()
	if err != nil {
		return nil, fmt.Errorf("build subworkflow: %w", err)
	}

	b := wf.NewBuilder("wgs_somatic")
	b.SetVersion("1.4.0")
	b.SetDoc("Whole-genome somatic variant calling (BWA + GATK Mutect2)")

	normalName, err := b.Input("normal_name", wf.String())
	if err != nil {
		return nil, err
	}
	tumorName, err := b.Input("tumor_name", wf.String())
	if err != nil {
		return nil, err
	}
	reference, err := b.Input("reference", fastaWithIndexes(),
		wf.InputDoc("indexed reference genome"))
	if err != nil {
		return nil, err
	}
	normalReads, err := b.Input("normal_inputs", wf.ArrayOf(fastqGzPair()))
	if err != nil {
		return nil, err
	}
	tumorReads, err := b.Input("tumor_inputs", wf.ArrayOf(fastqGzPair()))
	if err != nil {
		return nil, err
	}
	intervals, err := b.Input("gatk_intervals", wf.ArrayOf(wf.NamedFile("Bed")),
		wf.InputDoc("calling intervals for the scattered variant caller"))
	if err != nil {
		return nil, err
	}

	normal, err := b.Step("normal", preprocess, map[string]wf.Source{
		"sample_name": normalName,
		"reference":   reference,
		"reads":       normalReads,
	}, nil)
	if err != nil {
		return nil, err
	}
	tumor, err := b.Step("tumor", preprocess, map[string]wf.Source{
		"sample_name": tumorName,
		"reference":   reference,
		"reads":       tumorReads,
	}, nil)
	if err != nil {
		return nil, err
	}

	vc, err := b.Step("vc_gatk", gatkVariantCallerTool(), map[string]wf.Source{
		"normal_bam":  normal.Out("bam"),
		"tumor_bam":   tumor.Out("bam"),
		"normal_name": normalName,
		"reference":   reference,
		"intervals":   intervals,
	}, wf.Dot("intervals"))
	if err != nil {
		return nil, err
	}

	merge, err := b.Step("vc_gatk_merge", gatherVcfsTool(), map[string]wf.Source{
		"vcfs": vc.Out("vcf"),
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := b.Output("normal_bam", normal.Out("bam"),
		wf.OutputFolder("bams", "normal")); err != nil {
		return nil, err
	}
	if err := b.Output("tumor_bam", tumor.Out("bam"),
		wf.OutputFolder("bams", "tumor")); err != nil {
		return nil, err
	}
	if err := b.Output("variants", merge.Out("vcf"),
		wf.OutputFolder("variants"), wf.OutputName("somatic_calls")); err != nil {
		return nil, err
	}

	return b.Finalize()
}
