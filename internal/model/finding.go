package model

// Finding is a categorized issue produced by the manifest risk and asset
// analyzers.
type Finding struct {
	// Type is the finding type identifier and the key into the severity table.
	Type string `json:"type"`

	Severity     Severity `json:"severity"`
	SeverityText string   `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	Description    string `json:"description,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the offending value (attribute, permission, EXIF tag).
	Value string `json:"value,omitempty"`

	// Location is the component name or file path the finding refers to.
	Location string `json:"location,omitempty"`
}

// NewFinding builds a Finding whose severity, impact and recommendation come
// from the severity table.
func NewFinding(findingType, title, description, value, location string) Finding {
	info := GetFindingInfo(findingType)
	return Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Description:    description,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	}
}
