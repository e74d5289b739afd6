package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	sdkerrors "github.com/skillportio/sdk/pkg/errors"
	"github.com/skillportio/sdk/pkg/locale"
	"github.com/skillportio/sdk/pkg/logging"
	"github.com/skillportio/sdk/pkg/metrics"
	"github.com/skillportio/sdk/pkg/rules"
)

// Scanner applies the rule catalog to skill content and produces
// security reports. It is stateless between calls: the catalog is
// read-only shared state and every invocation allocates fresh result
// structures, so a single Scanner is safe for concurrent use.
type Scanner struct {
	catalog *rules.Catalog
	log     logging.Logger
	metrics metrics.Collector
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for per-file skip warnings.
func WithLogger(l logging.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(s *Scanner) { s.metrics = m }
}

// NewScanner creates a scanner over the given catalog.
func NewScanner(catalog *rules.Catalog, opts ...Option) *Scanner {
	s := &Scanner{
		catalog: catalog,
		log:     &logging.NopLogger{},
		metrics: &metrics.NopCollector{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// match is one rule hit on one line. A line matching several rules, or
// a rule matching several lines, produces one match per combination;
// there is no deduplication anywhere downstream.
type match struct {
	rule        rules.PatternRule
	lineNumber  int // 1-based
	codeSnippet string
	fileName    string
}

// ScanContent scans a single file's content. identifyingPath is only
// used to label the report (issue file paths, hard-trigger messages,
// ScannedFiles); the scanner does not touch the filesystem here, and
// validating that the path exists is the caller's responsibility.
func (s *Scanner) ScanContent(content, identifyingPath, localeCode string) *SecurityReport {
	start := time.Now()
	loc := locale.Validate(localeCode)

	matches := s.matchContent(content, identifyingPath)
	report := s.buildReport(matches, identifyingPath, []string{identifyingPath}, loc)

	s.observe(report, time.Since(start), 1)
	return report
}

// ScanDirectory scans every immediate file in dirPath and produces one
// combined report. Symlinks are followed, so a link to a regular file
// is scanned like the file itself. Subdirectories are silently skipped;
// files that cannot be read as text are skipped with a logged warning
// and do not appear in ScannedFiles. Score deduction is global across
// all files, exactly as if their matches had been concatenated.
func (s *Scanner) ScanDirectory(dirPath, skillID, localeCode string) (*SecurityReport, error) {
	start := time.Now()
	loc := locale.Validate(localeCode)

	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		s.metrics.CounterInc(metrics.ScannerScansTotal.Name, "status", metrics.StatusError)
		return nil, sdkerrors.E(sdkerrors.KindNotFound, "scan.ScanDirectory",
			locale.T(loc, locale.KeyErrDirectoryNotExist, dirPath))
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		s.metrics.CounterInc(metrics.ScannerScansTotal.Name, "status", metrics.StatusError)
		return nil, sdkerrors.E(sdkerrors.KindInternal, "scan.ScanDirectory", "read directory", err)
	}

	var allMatches []match
	var scannedFiles []string
	for _, entry := range entries {
		fileName := entry.Name()
		// Stat, not the dirent type, so symlinked files are scanned too.
		target, err := os.Stat(filepath.Join(dirPath, fileName))
		if err != nil {
			s.log.Warn("skipping unresolvable entry %s: %v", fileName, err)
			continue
		}
		if !target.Mode().IsRegular() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dirPath, fileName))
		if err != nil {
			s.log.Warn("skipping unreadable file %s: %v", fileName, err)
			continue
		}
		if !utf8.Valid(raw) {
			s.log.Warn("skipping non-text file %s", fileName)
			continue
		}
		scannedFiles = append(scannedFiles, fileName)
		allMatches = append(allMatches, s.matchContent(string(raw), fileName)...)
	}

	report := s.buildReport(allMatches, skillID, scannedFiles, loc)

	s.observe(report, time.Since(start), len(scannedFiles))
	return report, nil
}

// matchContent runs every catalog rule against every physical line of
// content. No early exit and no dedup: every (rule, line) hit is one
// match, in catalog order within each line.
func (s *Scanner) matchContent(content, fileName string) []match {
	var matches []match
	for i, line := range splitLines(content) {
		for _, r := range s.catalog.All() {
			if r.Pattern.MatchString(line) {
				matches = append(matches, match{
					rule:        r,
					lineNumber:  i + 1,
					codeSnippet: line,
					fileName:    fileName,
				})
			}
		}
	}
	return matches
}

// buildReport assembles the consolidated report from a match set.
func (s *Scanner) buildReport(matches []match, skillID string, scannedFiles []string, loc string) *SecurityReport {
	issues := make([]SecurityIssue, 0, len(matches))
	hardTriggerIssues := []string{}
	blocked := false

	for _, m := range matches {
		if m.rule.HardTrigger {
			blocked = true
			hardTriggerIssues = append(hardTriggerIssues, locale.T(loc, locale.KeyHardTriggerIssue,
				m.rule.Name, m.fileName, m.lineNumber, m.rule.Description))
		}
		issues = append(issues, SecurityIssue{
			Severity:    MapSeverity(m.rule.Severity),
			Category:    MapCategory(m.rule.Category),
			Description: fmt.Sprintf("%s: %s", m.rule.Name, m.rule.Description),
			LineNumber:  m.lineNumber,
			CodeSnippet: m.codeSnippet,
			FilePath:    m.fileName,
		})
	}

	score := scoreMatches(matches)

	if scannedFiles == nil {
		scannedFiles = []string{}
	}

	return &SecurityReport{
		SkillID:           skillID,
		Score:             score,
		Level:             LevelFromScore(score),
		Issues:            issues,
		Recommendations:   s.recommendations(matches, score, loc),
		Blocked:           blocked,
		HardTriggerIssues: hardTriggerIssues,
		ScannedFiles:      scannedFiles,
	}
}

// scoreMatches computes the weighted trust score: 100 minus the weight
// of every match, clamped at 0. Additive and uncapped: a rule matching
// five lines deducts its weight five times.
func scoreMatches(matches []match) int {
	score := 100
	for _, m := range matches {
		score -= m.rule.Weight
	}
	if score < 0 {
		score = 0
	}
	return score
}

// recommendations synthesizes the advisory strings for a report.
//
// Hard-trigger matches short-circuit: the blocking explanation plus one
// bullet per hard-trigger match, nothing else. Otherwise a score-banded
// warning, then at most one advisory per matched category in fixed
// order, then the no-issues message if nothing was emitted at all.
func (s *Scanner) recommendations(matches []match, score int, loc string) []string {
	recs := []string{}

	hasHardTrigger := false
	for _, m := range matches {
		if m.rule.HardTrigger {
			hasHardTrigger = true
			break
		}
	}
	if hasHardTrigger {
		recs = append(recs, locale.T(loc, locale.KeyBlockedMessage))
		for _, m := range matches {
			if m.rule.HardTrigger {
				recs = append(recs, "  - "+m.rule.Description)
			}
		}
		return recs
	}

	if score < 50 {
		recs = append(recs, locale.T(loc, locale.KeyScoreWarningSevere))
	} else if score < 70 {
		recs = append(recs, locale.T(loc, locale.KeyScoreWarningMedium))
	}

	matched := make(map[rules.Category]bool, len(matches))
	for _, m := range matches {
		matched[m.rule.Category] = true
	}
	for _, cat := range rules.AllCategories() {
		if matched[cat] {
			recs = append(recs, locale.T(loc, advisoryKey(cat)))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, locale.T(loc, locale.KeyNoIssues))
	}
	return recs
}

// advisoryKey maps a rule category to its recommendation message key.
func advisoryKey(c rules.Category) string {
	switch c {
	case rules.CategoryDestructive:
		return locale.KeyRecommendDestructive
	case rules.CategoryRemoteExec:
		return locale.KeyRecommendRemoteExec
	case rules.CategoryCmdInjection:
		return locale.KeyRecommendCmdInjection
	case rules.CategoryNetwork:
		return locale.KeyRecommendNetwork
	case rules.CategorySecrets:
		return locale.KeyRecommendSecrets
	case rules.CategoryPersistence:
		return locale.KeyRecommendPersistence
	case rules.CategoryPrivilege:
		return locale.KeyRecommendPrivilege
	case rules.CategorySensitiveFileAccess:
		return locale.KeyRecommendSensitiveFile
	default:
		return locale.KeyNoIssues
	}
}

func (s *Scanner) observe(report *SecurityReport, elapsed time.Duration, files int) {
	status := metrics.StatusOK
	if report.Blocked {
		status = metrics.StatusBlocked
	}
	s.metrics.CounterInc(metrics.ScannerScansTotal.Name, "status", status)
	s.metrics.HistogramObserve(metrics.ScannerScanDuration.Name, elapsed.Seconds())
	s.metrics.CounterAdd(metrics.ScannerFilesScanned.Name, float64(files))
	for _, issue := range report.Issues {
		s.metrics.CounterInc(metrics.ScannerIssuesTotal.Name, "severity", string(issue.Severity))
	}
}

// splitLines splits content into physical lines: LF separators, an
// optional trailing CR stripped per line, and no phantom empty line
// after a trailing newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Checksum returns the hex-encoded SHA-256 digest of content. The
// installer records it alongside installed files for integrity checks.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
