package analysis

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/apkscan/internal/model"
)

// Signature is one credential pattern of the secret scanner.
type Signature struct {
	// ID is the stable identifier stored with each finding.
	ID string

	// Label is a human-readable name.
	Label string

	Severity model.Severity

	Pattern *regexp.Regexp
}

// SignatureDef is the uncompiled form of a Signature, used both for the
// built-in table and for YAML signature files.
type SignatureDef struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Severity string `yaml:"severity"`
	Pattern  string `yaml:"pattern"`
}

// builtinSignatures is the default credential table. Adding a pattern means
// adding a row.
var builtinSignatures = []SignatureDef{
	// Cloud platforms
	{"google_api_key", "Google API key", "high", `AIza[0-9A-Za-z_\-]{31,35}`},
	{"google_oauth_client_id", "Google OAuth client ID", "low", `[0-9]{6,}-[0-9a-z]{32}\.apps\.googleusercontent\.com`},
	{"gcp_service_account", "Google Cloud service account key", "critical", `"type"\s*:\s*"service_account"`},
	{"firebase_database_url", "Firebase Realtime Database URL", "info", `https://[a-z0-9][a-z0-9\-]*\.firebaseio\.com`},
	{"aws_access_key_id", "AWS access key ID", "critical", `\b(?:A3T[A-Z0-9]|AKIA|ASIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA)[A-Z0-9]{16}\b`},
	{"aws_secret_access_key", "AWS secret access key", "critical", `(?i)aws_?secret_?(?:access_?)?key["']?\s*[:=>]\s*["']?[A-Za-z0-9/+=]{40}`},
	{"azure_storage_connection_string", "Azure storage connection string", "critical", `DefaultEndpointsProtocol=https?;AccountName=[^;"'\s]+;AccountKey=[A-Za-z0-9+/=]{40,}`},

	// Push messaging
	{"fcm_server_key", "Firebase Cloud Messaging server key", "critical", `AAAA[A-Za-z0-9_\-]{7}:[A-Za-z0-9_\-]{140}`},

	// Payment processors
	{"stripe_secret_key", "Stripe secret key", "critical", `\b(?:sk|rk)_live_[0-9a-zA-Z]{24,99}`},
	{"stripe_publishable_key", "Stripe publishable key", "low", `\bpk_live_[0-9a-zA-Z]{24,99}`},
	{"braintree_access_token", "Braintree access token", "critical", `access_token\$production\$[0-9a-z]{16}\$[0-9a-f]{32}`},
	{"square_access_token", "Square access token", "critical", `sq0atp-[0-9A-Za-z_\-]{22}`},
	{"square_oauth_secret", "Square OAuth secret", "critical", `sq0csp-[0-9A-Za-z_\-]{43}`},

	// Messaging and collaboration
	{"slack_token", "Slack token", "high", `xox[abposr]-[0-9A-Za-z\-]{10,72}`},
	{"slack_webhook", "Slack incoming webhook", "high", `https://hooks\.slack\.com/services/T[A-Za-z0-9_]{8,}/B[A-Za-z0-9_]{8,}/[A-Za-z0-9_]{24}`},
	{"discord_webhook", "Discord webhook", "high", `https://(?:ptb\.|canary\.)?discord(?:app)?\.com/api/webhooks/[0-9]{17,20}/[A-Za-z0-9_\-]{60,68}`},
	{"telegram_bot_token", "Telegram bot token", "high", `\b[0-9]{8,10}:AA[0-9A-Za-z_\-]{33}\b`},
	{"twilio_api_key", "Twilio API key", "high", `\bSK[0-9a-fA-F]{32}\b`},
	{"twilio_account_sid", "Twilio account SID", "low", `\bAC[0-9a-fA-F]{32}\b`},
	{"sendgrid_api_key", "SendGrid API key", "high", `SG\.[A-Za-z0-9_\-]{22}\.[A-Za-z0-9_\-]{43}`},
	{"mailgun_api_key", "Mailgun API key", "high", `\bkey-[0-9a-zA-Z]{32}\b`},
	{"mailchimp_api_key", "Mailchimp API key", "medium", `\b[0-9a-f]{32}-us[0-9]{1,2}\b`},

	// Social and code hosting
	{"facebook_access_token", "Facebook access token", "high", `EAACEdEose0cBA[0-9A-Za-z]+`},
	{"twitter_bearer_token", "Twitter bearer token", "high", `AAAAAAAAAAAAAAAAAAAAA[A-Za-z0-9%]{30,}`},
	{"github_token", "GitHub token", "high", `\bgh[pousr]_[A-Za-z0-9]{36,255}\b`},
	{"github_fine_grained_token", "GitHub fine-grained token", "high", `github_pat_[A-Za-z0-9_]{82}`},
	{"gitlab_token", "GitLab personal access token", "high", `glpat-[0-9A-Za-z_\-]{20}`},

	// Generic
	{"private_key", "Private key block", "critical", `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----`},
	{"jwt", "JSON Web Token", "medium", `\beyJ[A-Za-z0-9_\-]{10,}\.eyJ[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}`},
	{"bearer_token", "Hardcoded bearer token", "medium", `(?i)\bbearer\s+[A-Za-z0-9_\-.~+/]{20,}=*`},
	{"generic_secret", "Hardcoded secret assignment", "medium", `(?i)(?:api|access|auth|client|secret|token|passwd|password)[\w\-]*["']?\s*[:=>]\s*["']?[A-Za-z0-9_\-./+=]{20,}`},
}

// compile turns a definition into a Signature.
func (s SignatureDef) compile() (Signature, error) {
	if s.ID == "" {
		return Signature{}, errors.New("signature without id")
	}
	if s.Pattern == "" {
		return Signature{}, fmt.Errorf("signature %s: empty pattern", s.ID)
	}
	sev, err := model.ParseSeverity(s.Severity)
	if err != nil {
		return Signature{}, fmt.Errorf("signature %s: %w", s.ID, err)
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return Signature{}, fmt.Errorf("signature %s: %w", s.ID, err)
	}
	label := s.Label
	if label == "" {
		label = s.ID
	}
	return Signature{ID: s.ID, Label: label, Severity: sev, Pattern: re}, nil
}

// DefaultSignatures returns a fresh copy of the built-in signature table.
func DefaultSignatures() []Signature {
	sigs := make([]Signature, 0, len(builtinSignatures))
	for _, def := range builtinSignatures {
		sig, err := def.compile()
		if err != nil {
			panic(err) // built-in table is static
		}
		sigs = append(sigs, sig)
	}
	return sigs
}

// CompileSignatures compiles signature definitions.
func CompileSignatures(defs []SignatureDef) ([]Signature, error) {
	sigs := make([]Signature, 0, len(defs))
	var errs []error
	for _, d := range defs {
		sig, err := d.compile()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sigs = append(sigs, sig)
	}
	return sigs, errors.Join(errs...)
}

// signatureFile is the layout of a standalone signature file.
type signatureFile struct {
	Signatures []SignatureDef `yaml:"signatures"`
}

// LoadSignatureFile reads signature definitions from a YAML file of the form
//
//	signatures:
//	  - id: internal_token
//	    label: Internal service token
//	    severity: high
//	    pattern: 'itk_[0-9a-f]{32}'
func LoadSignatureFile(path string) ([]Signature, error) {
	data, err := os.ReadFile(path) //nolint:gosec // analyst-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read signature file: %w", err)
	}
	var f signatureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse signature file: %w", err)
	}
	return CompileSignatures(f.Signatures)
}

// MergeSignatures overlays extra onto base. An extra signature whose ID
// exists in base replaces it in place; others are appended.
func MergeSignatures(base, extra []Signature) []Signature {
	merged := make([]Signature, len(base))
	copy(merged, base)
	index := make(map[string]int, len(merged))
	for i, s := range merged {
		index[s.ID] = i
	}
	for _, s := range extra {
		if i, ok := index[s.ID]; ok {
			merged[i] = s
			continue
		}
		index[s.ID] = len(merged)
		merged = append(merged, s)
	}
	return merged
}
