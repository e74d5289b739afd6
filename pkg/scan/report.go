// Package scan implements the content security scanner: line-by-line
// pattern matching against the rule catalog, weighted trust scoring,
// hard-trigger blocking, and recommendation synthesis.
package scan

import "github.com/skillportio/sdk/pkg/rules"

// SecurityLevel is the discrete risk tier derived from the trust score.
// The string values are persisted; do not rename them.
type SecurityLevel string

const (
	LevelSafe     SecurityLevel = "Safe"     // 90-100
	LevelLow      SecurityLevel = "Low"      // 70-89
	LevelMedium   SecurityLevel = "Medium"   // 50-69
	LevelHigh     SecurityLevel = "High"     // 30-49
	LevelCritical SecurityLevel = "Critical" // 0-29
)

// LevelFromScore derives the risk level from a trust score. The score
// is assumed to already be clamped to 0-100.
func LevelFromScore(score int) SecurityLevel {
	switch {
	case score >= 90:
		return LevelSafe
	case score >= 70:
		return LevelLow
	case score >= 50:
		return LevelMedium
	case score >= 30:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// IssueSeverity is the coarse, report-facing severity taxonomy. The
// string values appear in the persisted issue-string grammar; do not
// rename them.
type IssueSeverity string

const (
	IssueSeverityInfo     IssueSeverity = "Info"
	IssueSeverityWarning  IssueSeverity = "Warning"
	IssueSeverityError    IssueSeverity = "Error"
	IssueSeverityCritical IssueSeverity = "Critical"
)

// IssueCategory is the coarse, report-facing category taxonomy.
type IssueCategory string

const (
	IssueCategoryFileSystem        IssueCategory = "FileSystem"
	IssueCategoryNetwork           IssueCategory = "Network"
	IssueCategoryProcessExecution  IssueCategory = "ProcessExecution"
	IssueCategoryDataExfiltration  IssueCategory = "DataExfiltration"
	IssueCategoryDangerousFunction IssueCategory = "DangerousFunction"
	IssueCategoryObfuscatedCode    IssueCategory = "ObfuscatedCode"
	IssueCategoryOther             IssueCategory = "Other"
)

// MapSeverity maps the fine-grained rule severity onto the coarse
// report taxonomy. The mapping is total; keep it centralized here so a
// new rule severity cannot silently fall through.
func MapSeverity(s rules.Severity) IssueSeverity {
	switch s {
	case rules.SeverityCritical:
		return IssueSeverityCritical
	case rules.SeverityHigh:
		return IssueSeverityError
	case rules.SeverityMedium:
		return IssueSeverityWarning
	case rules.SeverityLow:
		return IssueSeverityInfo
	default:
		return IssueSeverityInfo
	}
}

// MapCategory maps the fine-grained rule category onto the coarse
// report taxonomy. Total, centralized, same reasoning as MapSeverity.
func MapCategory(c rules.Category) IssueCategory {
	switch c {
	case rules.CategoryDestructive:
		return IssueCategoryFileSystem
	case rules.CategoryRemoteExec:
		return IssueCategoryProcessExecution
	case rules.CategoryCmdInjection:
		return IssueCategoryDangerousFunction
	case rules.CategoryNetwork:
		return IssueCategoryNetwork
	case rules.CategoryPrivilege:
		return IssueCategoryProcessExecution
	case rules.CategorySecrets:
		return IssueCategoryDataExfiltration
	case rules.CategoryPersistence:
		return IssueCategoryProcessExecution
	case rules.CategorySensitiveFileAccess:
		return IssueCategoryFileSystem
	default:
		return IssueCategoryOther
	}
}

// SecurityIssue is the report-facing projection of one rule match.
//
// CodeSnippet carries the full matched line verbatim. Secrets matched
// by a Secrets rule therefore appear unredacted in the snippet; the
// store persists only Description, never the snippet.
type SecurityIssue struct {
	Severity    IssueSeverity `json:"severity"`
	Category    IssueCategory `json:"category"`
	Description string        `json:"description"`
	LineNumber  int           `json:"line_number,omitempty"`
	CodeSnippet string        `json:"code_snippet,omitempty"`
	FilePath    string        `json:"file_path,omitempty"`
}

// SecurityReport is the consolidated result of one scan invocation.
type SecurityReport struct {
	// SkillID is the caller-supplied correlation key. Not validated.
	SkillID string `json:"skill_id"`

	// Score is the 0-100 trust score (100 = no findings).
	Score int `json:"score"`

	// Level is the risk tier derived from Score.
	Level SecurityLevel `json:"level"`

	// Issues, in rule-evaluation order (not sorted by severity).
	Issues []SecurityIssue `json:"issues"`

	// Recommendations is human-readable guidance in the report locale.
	Recommendations []string `json:"recommendations"`

	// Blocked is true iff at least one hard-trigger rule matched.
	Blocked bool `json:"blocked"`

	// HardTriggerIssues holds one formatted message per hard-trigger
	// match, used for user-facing block dialogs.
	HardTriggerIssues []string `json:"hard_trigger_issues"`

	// ScannedFiles lists the file names actually scanned.
	ScannedFiles []string `json:"scanned_files"`
}
