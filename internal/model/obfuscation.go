package model

// ObfuscationReport summarizes name-shape statistics of a decompiled tree.
// Counts are over distinct names, so each obfuscated count never exceeds
// its total.
type ObfuscationReport struct {
	ObfuscatedClassCount  int      `json:"obfuscated_class_count"`
	TotalClassCount       int      `json:"total_class_count"`
	ObfuscatedMethodCount int      `json:"obfuscated_method_count"`
	TotalMethodCount      int      `json:"total_method_count"`
	MappingArtifacts      []string `json:"mapping_artifacts"`
	FilesScanned          int      `json:"files_scanned"`
	FilesSkipped          int      `json:"files_skipped"`
}

// ClassRatio returns the share of obfuscated class names, or 0 when no
// classes were seen.
func (r *ObfuscationReport) ClassRatio() float64 {
	if r.TotalClassCount == 0 {
		return 0
	}
	return float64(r.ObfuscatedClassCount) / float64(r.TotalClassCount)
}

// MethodRatio returns the share of obfuscated method names, or 0 when no
// methods were seen.
func (r *ObfuscationReport) MethodRatio() float64 {
	if r.TotalMethodCount == 0 {
		return 0
	}
	return float64(r.ObfuscatedMethodCount) / float64(r.TotalMethodCount)
}

// Obfuscated reports whether the tree looks minified: a mapping artifact is
// present or more than half of the class names are short.
func (r *ObfuscationReport) Obfuscated() bool {
	return len(r.MappingArtifacts) > 0 || r.ClassRatio() > 0.5
}
