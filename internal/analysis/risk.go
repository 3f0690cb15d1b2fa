package analysis

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/apkscan/internal/manifest"
	"github.com/nao1215/apkscan/internal/model"
)

// dangerousPermissions are the runtime permissions of the "dangerous"
// protection level.
var dangerousPermissions = map[string]bool{
	"android.permission.READ_CALENDAR":              true,
	"android.permission.WRITE_CALENDAR":             true,
	"android.permission.CAMERA":                     true,
	"android.permission.READ_CONTACTS":              true,
	"android.permission.WRITE_CONTACTS":             true,
	"android.permission.GET_ACCOUNTS":               true,
	"android.permission.ACCESS_FINE_LOCATION":       true,
	"android.permission.ACCESS_COARSE_LOCATION":     true,
	"android.permission.ACCESS_BACKGROUND_LOCATION": true,
	"android.permission.RECORD_AUDIO":               true,
	"android.permission.READ_PHONE_STATE":           true,
	"android.permission.READ_PHONE_NUMBERS":         true,
	"android.permission.CALL_PHONE":                 true,
	"android.permission.READ_CALL_LOG":              true,
	"android.permission.WRITE_CALL_LOG":             true,
	"android.permission.ADD_VOICEMAIL":              true,
	"android.permission.USE_SIP":                    true,
	"android.permission.PROCESS_OUTGOING_CALLS":     true,
	"android.permission.BODY_SENSORS":               true,
	"android.permission.ACTIVITY_RECOGNITION":       true,
	"android.permission.SEND_SMS":                   true,
	"android.permission.RECEIVE_SMS":                true,
	"android.permission.READ_SMS":                   true,
	"android.permission.RECEIVE_WAP_PUSH":           true,
	"android.permission.RECEIVE_MMS":                true,
	"android.permission.READ_EXTERNAL_STORAGE":      true,
	"android.permission.WRITE_EXTERNAL_STORAGE":     true,
	"android.permission.READ_MEDIA_IMAGES":          true,
	"android.permission.READ_MEDIA_VIDEO":           true,
	"android.permission.READ_MEDIA_AUDIO":           true,
	"android.permission.POST_NOTIFICATIONS":         true,
	"android.permission.NEARBY_WIFI_DEVICES":        true,
	"android.permission.BLUETOOTH_SCAN":             true,
	"android.permission.BLUETOOTH_CONNECT":          true,
	"android.permission.UWB_RANGING":                true,
}

// exportedFindingTypes maps component kinds to the finding raised when they
// are exported without a permission.
var exportedFindingTypes = map[model.ComponentKind]string{
	model.KindActivity: "exported_activity",
	model.KindService:  "exported_service",
	model.KindReceiver: "exported_receiver",
	model.KindProvider: "exported_provider",
}

// ManifestRiskAnalyzer flags risky manifest declarations: debug and backup
// flags, cleartext traffic, unprotected exported components and dangerous
// permissions.
type ManifestRiskAnalyzer struct{}

// NewManifestRiskAnalyzer creates a ManifestRiskAnalyzer.
func NewManifestRiskAnalyzer() *ManifestRiskAnalyzer {
	return &ManifestRiskAnalyzer{}
}

// Name returns the analyzer name.
func (a *ManifestRiskAnalyzer) Name() string {
	return "manifest_risk"
}

// Category returns the analyzer category.
func (a *ManifestRiskAnalyzer) Category() string {
	return CategoryManifest
}

// Analyze inspects data.Manifest. It returns no findings when the manifest
// was not extracted.
func (a *ManifestRiskAnalyzer) Analyze(_ context.Context, data *AnalysisData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	if data == nil || data.Manifest == nil {
		return findings, nil
	}

	for _, entry := range data.Manifest.Entries {
		comp := entry.Component
		if comp.Kind == model.KindApplication {
			findings = append(findings, a.applicationFindings(comp)...)
			continue
		}
		if f, ok := a.exportedFinding(comp); ok {
			findings = append(findings, f)
		}
	}

	for _, perm := range data.Manifest.Permissions {
		if dangerousPermissions[perm] {
			findings = append(findings, model.NewFinding(
				"dangerous_permission",
				"Dangerous Permission Requested",
				"The manifest requests a runtime permission of the dangerous protection level.",
				perm,
				"uses-permission",
			))
		}
	}
	return findings, nil
}

func (a *ManifestRiskAnalyzer) applicationFindings(app *model.Component) []model.Finding {
	var findings []model.Finding
	location := locationOf(app)

	if isTrue(app.Get("debuggable")) {
		findings = append(findings, model.NewFinding(
			"debuggable_application",
			"Debuggable Application",
			"The application element sets android:debuggable.",
			"debuggable=true", location,
		))
	}
	if isTrue(app.Get("allowBackup")) {
		findings = append(findings, model.NewFinding(
			"backup_allowed",
			"Application Backup Allowed",
			"The application element sets android:allowBackup.",
			"allowBackup=true", location,
		))
	}
	if isTrue(app.Get("usesCleartextTraffic")) {
		findings = append(findings, model.NewFinding(
			"cleartext_traffic",
			"Cleartext Traffic Permitted",
			"The application element sets android:usesCleartextTraffic.",
			"usesCleartextTraffic=true", location,
		))
	}
	if manifest.CoerceBool(app.Get("testOnly")) {
		findings = append(findings, model.NewFinding(
			"test_only_application",
			"Test-Only Build",
			"The application element sets android:testOnly.",
			"testOnly=true", location,
		))
	}
	if manifest.CoerceBool(app.Get("requestLegacyExternalStorage")) {
		findings = append(findings, model.NewFinding(
			"legacy_external_storage",
			"Legacy External Storage Requested",
			"The application element sets android:requestLegacyExternalStorage.",
			"requestLegacyExternalStorage=true", location,
		))
	}
	return findings
}

func (a *ManifestRiskAnalyzer) exportedFinding(comp *model.Component) (model.Finding, bool) {
	findingType, ok := exportedFindingTypes[comp.Kind]
	if !ok || !isTrue(comp.Get("exported")) {
		return model.Finding{}, false
	}
	if comp.Get("permission").Present() {
		return model.Finding{}, false
	}
	if comp.Kind == model.KindProvider &&
		comp.Get("readPermission").Present() && comp.Get("writePermission").Present() {
		return model.Finding{}, false
	}
	return model.NewFinding(
		findingType,
		fmt.Sprintf("Exported %s Without Permission", titleOf(comp.Kind)),
		fmt.Sprintf("The %s is exported and declares no android:permission.", comp.Kind),
		"exported=true",
		locationOf(comp),
	), true
}

// titleOf returns the kind name in title case, e.g. "Provider".
func titleOf(kind model.ComponentKind) string {
	return cases.Title(language.English).String(kind.String())
}

func isTrue(v model.AttrValue) bool {
	b, ok := v.AsBool()
	return ok && b
}

func locationOf(c *model.Component) string {
	if name := c.Name(); name != "" {
		return c.Kind.String() + " " + name
	}
	return c.Kind.String()
}

// Ensure ManifestRiskAnalyzer implements CheckAnalyzer.
var _ CheckAnalyzer = (*ManifestRiskAnalyzer)(nil)
