package scan

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/skillportio/sdk/pkg/rules"
)

func TestMapSeverity(t *testing.T) {
	tests := []struct {
		in   rules.Severity
		want IssueSeverity
	}{
		{rules.SeverityCritical, IssueSeverityCritical},
		{rules.SeverityHigh, IssueSeverityError},
		{rules.SeverityMedium, IssueSeverityWarning},
		{rules.SeverityLow, IssueSeverityInfo},
		{rules.Severity("bogus"), IssueSeverityInfo},
	}
	for _, tt := range tests {
		if got := MapSeverity(tt.in); got != tt.want {
			t.Errorf("MapSeverity(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMapCategory(t *testing.T) {
	tests := []struct {
		in   rules.Category
		want IssueCategory
	}{
		{rules.CategoryDestructive, IssueCategoryFileSystem},
		{rules.CategoryRemoteExec, IssueCategoryProcessExecution},
		{rules.CategoryCmdInjection, IssueCategoryDangerousFunction},
		{rules.CategoryNetwork, IssueCategoryNetwork},
		{rules.CategoryPrivilege, IssueCategoryProcessExecution},
		{rules.CategorySecrets, IssueCategoryDataExfiltration},
		{rules.CategoryPersistence, IssueCategoryProcessExecution},
		{rules.CategorySensitiveFileAccess, IssueCategoryFileSystem},
		{rules.Category("bogus"), IssueCategoryOther},
	}
	for _, tt := range tests {
		if got := MapCategory(tt.in); got != tt.want {
			t.Errorf("MapCategory(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMapCategory_CoversEveryRuleCategory(t *testing.T) {
	for _, cat := range rules.AllCategories() {
		if MapCategory(cat) == IssueCategoryOther {
			t.Errorf("category %s falls through to Other", cat)
		}
	}
}

func TestSecurityReportJSON(t *testing.T) {
	report := SecurityReport{
		SkillID: "demo",
		Score:   40,
		Level:   LevelHigh,
		Issues: []SecurityIssue{{
			Severity:    IssueSeverityError,
			Category:    IssueCategoryDataExfiltration,
			Description: "Hardcoded API key: hardcoded API key",
			LineNumber:  3,
			CodeSnippet: `api_key = "xxxxxxxxxxxxxxxx"`,
			FilePath:    "config.py",
		}},
		Recommendations:   []string{"review it"},
		Blocked:           false,
		HardTriggerIssues: []string{},
		ScannedFiles:      []string{"config.py"},
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{
		`"skill_id":"demo"`,
		`"score":40`,
		`"level":"High"`,
		`"line_number":3`,
		`"file_path":"config.py"`,
		`"hard_trigger_issues":[]`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %s in %s", want, data)
		}
	}
}

func TestSecurityIssueJSON_OmitsEmptyLocation(t *testing.T) {
	data, err := json.Marshal(SecurityIssue{
		Severity:    IssueSeverityInfo,
		Category:    IssueCategoryOther,
		Description: "restored from storage",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, absent := range []string{"line_number", "code_snippet", "file_path"} {
		if strings.Contains(string(data), absent) {
			t.Errorf("JSON for parsed issue must omit %s: %s", absent, data)
		}
	}
}
