// Package installer admits skill packages onto the local machine. Every
// install goes through the security scanner first; a blocked report
// aborts the install before any file reaches its final location.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sdkerrors "github.com/skillportio/sdk/pkg/errors"
	"github.com/skillportio/sdk/pkg/locale"
	"github.com/skillportio/sdk/pkg/logging"
	"github.com/skillportio/sdk/pkg/metrics"
	"github.com/skillportio/sdk/pkg/scan"
	"github.com/skillportio/sdk/pkg/store"
)

// Config configures an Installer.
type Config struct {
	// BaseDir is the root under which skills are installed, one
	// directory per skill ID.
	BaseDir string

	Scanner *scan.Scanner
	Store   *store.Store

	Logger  logging.Logger
	Metrics metrics.Collector
}

// Installer installs, rescans, and removes skills.
type Installer struct {
	baseDir string
	scanner *scan.Scanner
	store   *store.Store
	log     logging.Logger
	mets    metrics.Collector
}

// New creates an installer. BaseDir, Scanner, and Store are required.
func New(cfg *Config) (*Installer, error) {
	if cfg == nil || cfg.BaseDir == "" || cfg.Scanner == nil || cfg.Store == nil {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "installer.New",
			"base directory, scanner, and store are required")
	}
	ins := &Installer{
		baseDir: cfg.BaseDir,
		scanner: cfg.Scanner,
		store:   cfg.Store,
		log:     cfg.Logger,
		mets:    cfg.Metrics,
	}
	if ins.log == nil {
		ins.log = &logging.NopLogger{}
	}
	if ins.mets == nil {
		ins.mets = &metrics.NopCollector{}
	}
	return ins, nil
}

// PrepareInstall stages the fetched files and scans them without
// installing anything. The staging directory is always removed before
// returning; callers get the report only.
func (ins *Installer) PrepareInstall(skill *store.Skill, files map[string][]byte, localeCode string) (*scan.SecurityReport, error) {
	staging, err := ins.stage(files)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	return ins.scanner.ScanDirectory(staging, skill.ID, localeCode)
}

// Install stages the fetched files, scans them, and moves them to the
// skill's install directory unless the scan blocks. On a blocked scan
// the returned report is non-nil alongside the error so callers can
// show the user what was found.
func (ins *Installer) Install(ctx context.Context, skill *store.Skill, files map[string][]byte, localeCode string) (*scan.SecurityReport, error) {
	loc := locale.Validate(localeCode)

	staging, err := ins.stage(files)
	if err != nil {
		ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusError)
		return nil, err
	}
	defer os.RemoveAll(staging)

	report, err := ins.scanner.ScanDirectory(staging, skill.ID, loc)
	if err != nil {
		ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusError)
		return nil, err
	}

	if report.Blocked {
		ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusBlocked)
		ins.log.Warn("install of %s blocked: %s", skill.Name, strings.Join(report.HardTriggerIssues, "; "))
		return report, sdkerrors.E(sdkerrors.KindBlocked, "installer.Install",
			locale.T(loc, locale.KeyInstallBlocked, skill.Name))
	}

	target := ins.installPath(skill.ID)
	if err := os.RemoveAll(target); err != nil {
		ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusError)
		return nil, sdkerrors.E(sdkerrors.KindInternal, "installer.Install", "clear install target", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusError)
		return nil, sdkerrors.E(sdkerrors.KindInternal, "installer.Install", "create install root", err)
	}
	if err := os.Rename(staging, target); err != nil {
		ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusError)
		return nil, sdkerrors.E(sdkerrors.KindInternal, "installer.Install", "move staged files", err)
	}

	inst := &store.Installation{
		SkillID:        skill.ID,
		InstallPath:    target,
		SecurityScore:  report.Score,
		SecurityLevel:  string(report.Level),
		SecurityIssues: scan.FormatPersistedIssues(report.Issues),
		Checksum:       ChecksumFiles(files),
	}
	if err := ins.store.SaveInstallation(ctx, inst); err != nil {
		ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusError)
		return nil, err
	}

	ins.mets.CounterInc(metrics.InstallerInstallsTotal.Name, "status", metrics.StatusOK)
	ins.log.Info("installed %s (score %d, %s) to %s", skill.Name, report.Score, report.Level, target)
	return report, nil
}

// Uninstall removes the installed files and the installation record.
func (ins *Installer) Uninstall(ctx context.Context, skillID string) error {
	inst, err := ins.store.GetInstallation(ctx, skillID)
	if err != nil {
		return err
	}

	// Refuse to delete paths that escaped the install root, or the root
	// itself; the record is authoritative but not trusted blindly.
	rel, err := filepath.Rel(ins.baseDir, inst.InstallPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return sdkerrors.E(sdkerrors.KindInvalidInput, "installer.Uninstall",
			fmt.Sprintf("install path %s is outside the install root", inst.InstallPath))
	}

	if err := os.RemoveAll(inst.InstallPath); err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "installer.Uninstall", "remove installed files", err)
	}
	return ins.store.DeleteInstallation(ctx, skillID)
}

// ScanInstalled re-runs the security scan over an installed skill and
// refreshes the stored score, level, and issues.
func (ins *Installer) ScanInstalled(ctx context.Context, skillID, localeCode string) (*scan.SecurityReport, error) {
	inst, err := ins.store.GetInstallation(ctx, skillID)
	if err != nil {
		return nil, err
	}

	report, err := ins.scanner.ScanDirectory(inst.InstallPath, skillID, localeCode)
	if err != nil {
		return nil, err
	}

	inst.SecurityScore = report.Score
	inst.SecurityLevel = string(report.Level)
	inst.SecurityIssues = scan.FormatPersistedIssues(report.Issues)
	inst.ScannedAt = time.Now().UTC()
	if err := ins.store.SaveInstallation(ctx, inst); err != nil {
		return nil, err
	}
	return report, nil
}

// ScanAllInstalled rescans every installed skill. Skills whose install
// directory has disappeared are logged and skipped, not failed; other
// scan or store errors abort the sweep. Reports are keyed by skill ID.
func (ins *Installer) ScanAllInstalled(ctx context.Context, localeCode string) (map[string]*scan.SecurityReport, error) {
	insts, err := ins.store.ListInstallations(ctx)
	if err != nil {
		return nil, err
	}

	reports := make(map[string]*scan.SecurityReport, len(insts))
	for _, inst := range insts {
		report, err := ins.ScanInstalled(ctx, inst.SkillID, localeCode)
		if err != nil {
			if sdkerrors.IsNotFound(err) {
				ins.log.Warn("skill %s: install directory %s missing, skipping rescan",
					inst.SkillID, inst.InstallPath)
				continue
			}
			return reports, err
		}
		reports[inst.SkillID] = report
	}
	return reports, nil
}

// installPath returns the final directory for a skill.
func (ins *Installer) installPath(skillID string) string {
	return filepath.Join(ins.baseDir, skillID)
}

// stage writes the fetched files into a fresh staging directory under
// the install root so the final move stays on one filesystem.
func (ins *Installer) stage(files map[string][]byte) (string, error) {
	if len(files) == 0 {
		return "", sdkerrors.E(sdkerrors.KindInvalidInput, "installer.stage", "skill has no files")
	}
	if err := os.MkdirAll(ins.baseDir, 0o755); err != nil {
		return "", sdkerrors.E(sdkerrors.KindInternal, "installer.stage", "create install root", err)
	}
	staging, err := os.MkdirTemp(ins.baseDir, ".staging-")
	if err != nil {
		return "", sdkerrors.E(sdkerrors.KindInternal, "installer.stage", "create staging directory", err)
	}
	for name, content := range files {
		if name != filepath.Base(name) || name == "" || name == "." {
			os.RemoveAll(staging)
			return "", sdkerrors.E(sdkerrors.KindInvalidInput, "installer.stage",
				fmt.Sprintf("invalid file name %q", name))
		}
		if err := os.WriteFile(filepath.Join(staging, name), content, 0o644); err != nil {
			os.RemoveAll(staging)
			return "", sdkerrors.E(sdkerrors.KindInternal, "installer.stage", "write staged file", err)
		}
	}
	return staging, nil
}

// ChecksumFiles computes a deterministic digest over a file set,
// independent of map iteration order.
func ChecksumFiles(files map[string][]byte) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf []byte
	for _, name := range names {
		buf = append(buf, name...)
		buf = append(buf, 0)
		buf = append(buf, files[name]...)
		buf = append(buf, 0)
	}
	return scan.Checksum(buf)
}
