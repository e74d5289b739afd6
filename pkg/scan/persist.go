package scan

import "strings"

// Persisted issue-string grammar:
//
//	["[" file "] "] severity ": " description
//
// The store keeps issues as flat strings in this form rather than
// structured rows. Line numbers and code snippets are intentionally
// not persisted; snippets can contain matched secrets verbatim.
// Writers and readers live side by side here so the grammar cannot
// drift.

// FormatPersistedIssue renders one issue in the persisted grammar.
func FormatPersistedIssue(issue SecurityIssue) string {
	var b strings.Builder
	if issue.FilePath != "" {
		b.WriteString("[")
		b.WriteString(issue.FilePath)
		b.WriteString("] ")
	}
	b.WriteString(string(issue.Severity))
	b.WriteString(": ")
	b.WriteString(issue.Description)
	return b.String()
}

// FormatPersistedIssues renders every issue of a report for storage.
func FormatPersistedIssues(issues []SecurityIssue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = FormatPersistedIssue(issue)
	}
	return out
}

// ParsePersistedIssue reconstructs an issue from its persisted form.
// The result is lossy by design: severity defaults to Info when the
// prefix is not a known severity, the category is always Other, and
// line number and snippet are absent.
func ParsePersistedIssue(s string) SecurityIssue {
	issue := SecurityIssue{
		Severity: IssueSeverityInfo,
		Category: IssueCategoryOther,
	}

	rest := s
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "] "); end > 0 {
			issue.FilePath = rest[1:end]
			rest = rest[end+2:]
		}
	}

	prefix, desc, found := strings.Cut(rest, ": ")
	if !found {
		issue.Description = rest
		return issue
	}

	switch IssueSeverity(prefix) {
	case IssueSeverityCritical, IssueSeverityError, IssueSeverityWarning, IssueSeverityInfo:
		issue.Severity = IssueSeverity(prefix)
		issue.Description = desc
	default:
		issue.Description = rest
	}
	return issue
}

// ParsePersistedIssues parses a stored issue list.
func ParsePersistedIssues(persisted []string) []SecurityIssue {
	issues := make([]SecurityIssue, len(persisted))
	for i, s := range persisted {
		issues[i] = ParsePersistedIssue(s)
	}
	return issues
}
