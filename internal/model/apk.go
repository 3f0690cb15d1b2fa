package model

import "time"

// APK is a package registered with the repository by "load".
type APK struct {
	ID              int64      `json:"id"`
	Hash            string     `json:"sha256"`
	FileName        string     `json:"file_name"`
	FilePath        string     `json:"file_path"`
	PackageName     string     `json:"package_name,omitempty"`
	CertFingerprint string     `json:"cert_fingerprint,omitempty"`
	LoadedAt        time.Time  `json:"loaded_at"`
	LastScanned     *time.Time `json:"last_scanned,omitempty"`
}

// LastScannedText formats LastScanned for tables, or "Never".
func (a *APK) LastScannedText() string {
	if a.LastScanned == nil || a.LastScanned.IsZero() {
		return "Never"
	}
	return a.LastScanned.Format("2006-01-02 15:04:05")
}
