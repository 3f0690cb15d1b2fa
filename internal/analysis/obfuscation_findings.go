package analysis

import (
	"context"
	"fmt"

	"github.com/nao1215/apkscan/internal/model"
)

// readableClassRatio is the obfuscated class share below which a tree
// without mapping artifacts is reported as not minified.
const readableClassRatio = 0.1

// ObfuscationFindingAnalyzer turns an obfuscation report into findings.
type ObfuscationFindingAnalyzer struct{}

// NewObfuscationFindingAnalyzer creates an ObfuscationFindingAnalyzer.
func NewObfuscationFindingAnalyzer() *ObfuscationFindingAnalyzer {
	return &ObfuscationFindingAnalyzer{}
}

// Name returns the analyzer name.
func (a *ObfuscationFindingAnalyzer) Name() string {
	return "obfuscation"
}

// Category returns the analyzer category.
func (a *ObfuscationFindingAnalyzer) Category() string {
	return CategoryCode
}

// Analyze reports every shipped mapping artifact, and a readable code base
// when no class names look minified.
func (a *ObfuscationFindingAnalyzer) Analyze(_ context.Context, data *AnalysisData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	if data == nil || data.Obfuscation == nil {
		return findings, nil
	}
	report := data.Obfuscation

	for _, artifact := range report.MappingArtifacts {
		findings = append(findings, model.NewFinding(
			"mapping_artifact",
			"Mapping Artifact Shipped",
			"A minifier mapping or configuration file is present in the decompiled package.",
			artifact, artifact,
		))
	}

	if len(report.MappingArtifacts) == 0 && report.TotalClassCount > 0 && report.ClassRatio() < readableClassRatio {
		findings = append(findings, model.NewFinding(
			"no_obfuscation",
			"Code Is Not Obfuscated",
			"Almost no class names have the short shape minifiers produce.",
			fmt.Sprintf("%d/%d classes obfuscated", report.ObfuscatedClassCount, report.TotalClassCount),
			"",
		))
	}
	return findings, nil
}

// Ensure ObfuscationFindingAnalyzer implements CheckAnalyzer.
var _ CheckAnalyzer = (*ObfuscationFindingAnalyzer)(nil)
