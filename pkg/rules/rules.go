// Package rules defines the static pattern-rule catalog used by the
// content security scanner.
//
// The catalog is pure data: every rule carries a compiled regular
// expression that is evaluated against one physical line of text at a
// time, plus the classification and scoring attributes the scanner
// needs. Rules are defined once at process start and never mutated.
package rules

import "regexp"

// Severity is the fine-grained risk severity assigned to a rule.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Priority returns the numeric priority of the severity.
// Higher numbers = higher severity.
func (s Severity) Priority() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category classifies what kind of dangerous construct a rule detects.
type Category string

const (
	// CategoryDestructive covers irreversible filesystem or disk damage
	// (rm -rf /, dd onto a block device, mkfs).
	CategoryDestructive Category = "destructive"

	// CategoryRemoteExec covers download-and-execute and reverse-shell
	// idioms (curl | sh, base64 -d | sh, socket/dup2 shells).
	CategoryRemoteExec Category = "remote_exec"

	// CategoryCmdInjection covers dynamic code or shell execution
	// primitives (eval, exec, os.system, subprocess).
	CategoryCmdInjection Category = "cmd_injection"

	// CategoryNetwork covers outbound network activity that could
	// exfiltrate data (curl POST, netcat, HTTP client libraries).
	CategoryNetwork Category = "network"

	// CategoryPrivilege covers privilege escalation (sudo, chmod 7xx,
	// sudoers modification).
	CategoryPrivilege Category = "privilege"

	// CategorySecrets covers hardcoded credentials and key material.
	CategorySecrets Category = "secrets"

	// CategoryPersistence covers persistence mechanisms (cron, SSH
	// authorized_keys injection).
	CategoryPersistence Category = "persistence"

	// CategorySensitiveFileAccess covers reads of credential stores and
	// other sensitive host files.
	CategorySensitiveFileAccess Category = "sensitive_file_access"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// AllCategories returns every category in the fixed order used for
// recommendation synthesis.
func AllCategories() []Category {
	return []Category{
		CategoryDestructive,
		CategoryRemoteExec,
		CategoryCmdInjection,
		CategoryNetwork,
		CategorySecrets,
		CategoryPersistence,
		CategoryPrivilege,
		CategorySensitiveFileAccess,
	}
}

// Confidence is a heuristic indicator of how likely a rule match is a
// true positive. It is informational only and never affects scoring.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// PatternRule is one dangerous-content detection rule.
//
// Weight is the point deduction applied to the base score of 100 each
// time the rule matches a line. HardTrigger marks rules whose match
// unconditionally blocks installation regardless of the numeric score;
// every shipped hard-trigger rule carries weight >= 85 so the score
// collapses on its own, but the blocking decision only ever reads the
// flag.
type PatternRule struct {
	// ID is a short stable identifier, unique across the catalog.
	ID string

	// Name is a short human-readable label.
	Name string

	// Pattern is evaluated against one physical line of text.
	Pattern *regexp.Regexp

	Severity Severity
	Category Category

	// Weight is the score deduction (0-100) per match.
	Weight int

	// Description explains the finding; it is shown in reports and in
	// hard-trigger block messages.
	Description string

	// HardTrigger forces a blocked scan result on any match.
	HardTrigger bool

	// Confidence estimates false-positive likelihood. Informational.
	Confidence Confidence

	// Remediation is the suggested fix.
	Remediation string

	// CWE is an optional CWE identifier (e.g. "CWE-78").
	CWE string
}
