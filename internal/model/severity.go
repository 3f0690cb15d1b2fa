package model

import (
	"fmt"
	"strings"
)

// Severity represents the risk level of a finding.
type Severity int

const (
	// SeverityInfo is informational only.
	SeverityInfo Severity = iota

	// SeverityLow marks minor issues, such as camera model EXIF tags or
	// exported activities that are expected to be launchable.
	SeverityLow

	// SeverityMedium marks issues worth reviewing: backups enabled, dangerous
	// permissions, exported services and receivers.
	SeverityMedium

	// SeverityHigh marks issues that usually need fixing before release:
	// debuggable builds, cleartext traffic, unprotected providers.
	SeverityHigh

	// SeverityCritical marks credentials that grant direct access to a
	// backend, such as cloud or payment secret keys.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity parses a case-insensitive severity name. An empty string
// yields SeverityMedium.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return SeverityMedium, nil
	case "INFO":
		return SeverityInfo, nil
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
var findingInfoMapping = map[string]FindingInfo{
	// HIGH
	"debuggable_application": {
		Severity:       SeverityHigh,
		Impact:         "A debuggable build lets anyone with USB or ADB access attach a debugger, read app memory and run code as the app.",
		Recommendation: "Remove android:debuggable=\"true\" and let the build type control it.",
	},
	"cleartext_traffic": {
		Severity:       SeverityHigh,
		Impact:         "Plain HTTP traffic can be read and modified by anyone on the network path.",
		Recommendation: "Set android:usesCleartextTraffic=\"false\" or restrict cleartext domains with a network security config.",
	},
	"exported_provider": {
		Severity:       SeverityHigh,
		Impact:         "An exported content provider without a permission exposes its data to every installed app.",
		Recommendation: "Set android:exported=\"false\" or protect the provider with read and write permissions.",
	},
	"exif_gps": {
		Severity:       SeverityHigh,
		Impact:         "A bundled image carries GPS coordinates of where it was taken.",
		Recommendation: "Strip EXIF metadata from assets before packaging.",
	},
	"exif_serial": {
		Severity:       SeverityHigh,
		Impact:         "A bundled image carries a device serial number that identifies the camera used.",
		Recommendation: "Strip EXIF metadata from assets before packaging.",
	},

	// MEDIUM
	"backup_allowed": {
		Severity:       SeverityMedium,
		Impact:         "Application data can be extracted with adb backup or cloud backup.",
		Recommendation: "Set android:allowBackup=\"false\" or define backup rules that exclude sensitive files.",
	},
	"test_only_application": {
		Severity:       SeverityMedium,
		Impact:         "A test-only build was packaged; such builds are not meant for distribution.",
		Recommendation: "Build release artifacts without android:testOnly.",
	},
	"exported_service": {
		Severity:       SeverityMedium,
		Impact:         "Any app can bind to or start an exported service that has no permission.",
		Recommendation: "Set android:exported=\"false\" or require a signature-level permission.",
	},
	"exported_receiver": {
		Severity:       SeverityMedium,
		Impact:         "Any app can send broadcasts to an exported receiver that has no permission.",
		Recommendation: "Set android:exported=\"false\" or require a permission on the receiver.",
	},
	"dangerous_permission": {
		Severity:       SeverityMedium,
		Impact:         "The app requests a permission that grants access to private user data or device sensors.",
		Recommendation: "Confirm the permission is required and requested at runtime only when needed.",
	},
	"mapping_artifact": {
		Severity:       SeverityMedium,
		Impact:         "A de-obfuscation mapping file shipped with the package reveals original class and method names.",
		Recommendation: "Keep mapping files out of the release artifact.",
	},
	"exif_author": {
		Severity:       SeverityMedium,
		Impact:         "A bundled image names its author or copyright holder.",
		Recommendation: "Strip EXIF metadata from assets before packaging.",
	},
	"exif_computer": {
		Severity:       SeverityMedium,
		Impact:         "A bundled image records the name of the computer that processed it.",
		Recommendation: "Strip EXIF metadata from assets before packaging.",
	},

	// LOW
	"exported_activity": {
		Severity:       SeverityLow,
		Impact:         "An exported activity without a permission can be launched by any app.",
		Recommendation: "Export only activities that must be reachable from other apps.",
	},
	"legacy_external_storage": {
		Severity:       SeverityLow,
		Impact:         "The app opts out of scoped storage and can access shared external storage broadly.",
		Recommendation: "Migrate to scoped storage and drop requestLegacyExternalStorage.",
	},
	"exif_camera": {
		Severity:       SeverityLow,
		Impact:         "A bundled image records the camera make or model.",
		Recommendation: "Strip EXIF metadata from assets before packaging.",
	},
	"no_obfuscation": {
		Severity:       SeverityLow,
		Impact:         "Class and method names are readable, which makes reverse engineering easier.",
		Recommendation: "Enable R8 or ProGuard minification for release builds.",
	},

	// INFO
	"exif_software": {
		Severity:       SeverityInfo,
		Impact:         "A bundled image names the software used to edit it.",
		Recommendation: "Strip EXIF metadata from assets before packaging.",
	},
	"exif_datetime": {
		Severity:       SeverityInfo,
		Impact:         "A bundled image carries capture timestamps.",
		Recommendation: "Strip EXIF metadata from assets before packaging.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess risk.",
	}
}
