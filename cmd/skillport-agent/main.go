// SkillPort Agent - local backend for browsing, scanning, and
// installing skill packages.
//
// Typical invocations:
//
//	skillport-agent -scan ./my-skill
//	skillport-agent -file install.sh -locale zh
//	skillport-agent -add-repo octocat/skills@main
//	skillport-agent -sync
//	skillport-agent -install <skill-id>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/skillportio/sdk/pkg/config"
	sdkerrors "github.com/skillportio/sdk/pkg/errors"
	"github.com/skillportio/sdk/pkg/installer"
	"github.com/skillportio/sdk/pkg/locale"
	"github.com/skillportio/sdk/pkg/logging"
	"github.com/skillportio/sdk/pkg/metrics"
	"github.com/skillportio/sdk/pkg/registry"
	"github.com/skillportio/sdk/pkg/rules"
	"github.com/skillportio/sdk/pkg/scan"
	"github.com/skillportio/sdk/pkg/store"
)

const (
	appName    = "skillport-agent"
	appVersion = "1.0.0"
)

// Exit codes: 0 clean, 1 error, 2 scan blocked.
const (
	exitOK      = 0
	exitError   = 1
	exitBlocked = 2
)

type app struct {
	cfg     *config.Config
	log     logging.Logger
	mets    metrics.Collector
	scanner *scan.Scanner

	// Opened on demand; nil until needed.
	db *store.Store
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	scanDir := flag.String("scan", "", "Scan a skill directory and print the report")
	scanFile := flag.String("file", "", "Scan a single file and print the report")
	skillID := flag.String("skill-id", "", "Skill ID to attribute the scan to")
	localeFlag := flag.String("locale", "", "Report locale: en or zh")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	save := flag.Bool("save", false, "Persist the scan result to the skill's installation record")
	jsonOut := flag.Bool("json", false, "Output the report as JSON")
	addRepo := flag.String("add-repo", "", "Register a skill repository (owner/name[@branch])")
	removeRepo := flag.String("remove-repo", "", "Remove a repository by ID")
	listRepos := flag.Bool("list-repos", false, "List registered repositories")
	sync := flag.Bool("sync", false, "Discover skills in all registered repositories")
	listSkills := flag.Bool("list-skills", false, "List discovered skills")
	install := flag.String("install", "", "Fetch, scan, and install a discovered skill by ID")
	uninstall := flag.String("uninstall", "", "Uninstall an installed skill by ID")
	listInstalled := flag.Bool("installed", false, "List installed skills with their security status")
	verbose := flag.Bool("verbose", false, "Verbose output")
	showVersion := flag.Bool("version", false, "Show version")

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(exitOK)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *verbose {
		cfg.Agent.Verbose = true
	}
	if *localeFlag != "" {
		cfg.Agent.Locale = locale.Validate(*localeFlag)
	}

	log := logging.FromVerbose(appName, cfg.Agent.Verbose)

	var mets metrics.Collector = &metrics.NopCollector{}
	if cfg.Metrics.Enabled {
		mets = metrics.NewPrometheusCollector(&metrics.PrometheusConfig{RegisterDefaultMetrics: true})
		go func() {
			log.Info("metrics listening on %s", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mets.Handler()); err != nil {
				log.Warn("metrics server: %v", err)
			}
		}()
	}

	a := &app{
		cfg:  cfg,
		log:  log,
		mets: mets,
		scanner: scan.NewScanner(rules.NewCatalog(),
			scan.WithLogger(log), scan.WithMetrics(mets)),
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	switch {
	case *scanDir != "":
		a.runScanDir(ctx, *scanDir, *skillID, *save, *jsonOut)
	case *scanFile != "":
		a.runScanFile(*scanFile, *skillID, *jsonOut)
	case *addRepo != "":
		a.runAddRepo(ctx, *addRepo)
	case *removeRepo != "":
		a.runRemoveRepo(ctx, *removeRepo)
	case *listRepos:
		a.runListRepos(ctx)
	case *sync:
		a.runSync(ctx)
	case *listSkills:
		a.runListSkills(ctx)
	case *install != "":
		a.runInstall(ctx, *install, *jsonOut)
	case *uninstall != "":
		a.runUninstall(ctx, *uninstall)
	case *listInstalled:
		a.runListInstalled(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Error: nothing to do.\n")
		fmt.Fprintf(os.Stderr, "Use -scan, -file, -sync, -install, or see -h for all commands.\n")
		os.Exit(exitError)
	}
}

func (a *app) store() *store.Store {
	if a.db == nil {
		db, err := store.New(&store.Config{
			Path:    a.cfg.Database.Path,
			Logger:  a.log,
			Metrics: a.mets,
		})
		if err != nil {
			fatal(err)
		}
		a.db = db
	}
	return a.db
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) registry() *registry.Client {
	c, err := registry.New(&registry.Config{
		Token:           a.cfg.GitHub.Token,
		RequestsPerHour: a.cfg.GitHub.RequestsPerHour,
		BurstLimit:      a.cfg.GitHub.BurstLimit,
		Logger:          a.log,
		Metrics:         a.mets,
	})
	if err != nil {
		fatal(err)
	}
	return c
}

func (a *app) installer() *installer.Installer {
	ins, err := installer.New(&installer.Config{
		BaseDir: a.cfg.Install.Dir,
		Scanner: a.scanner,
		Store:   a.store(),
		Logger:  a.log,
		Metrics: a.mets,
	})
	if err != nil {
		fatal(err)
	}
	return ins
}

func (a *app) runScanDir(ctx context.Context, dir, skillID string, save, jsonOut bool) {
	if skillID == "" {
		skillID = dir
	}
	report, err := a.scanner.ScanDirectory(dir, skillID, a.cfg.Agent.Locale)
	if err != nil {
		fatal(err)
	}

	if save {
		inst := &store.Installation{
			SkillID:        skillID,
			InstallPath:    dir,
			SecurityScore:  report.Score,
			SecurityLevel:  string(report.Level),
			SecurityIssues: scan.FormatPersistedIssues(report.Issues),
		}
		if err := a.store().SaveInstallation(ctx, inst); err != nil {
			fatal(err)
		}
	}

	printReport(report, jsonOut)
	if report.Blocked {
		os.Exit(exitBlocked)
	}
}

func (a *app) runScanFile(path, skillID string, jsonOut bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(sdkerrors.E(sdkerrors.KindNotFound, "main",
			locale.T(a.cfg.Agent.Locale, locale.KeyErrFileNotFound, path)))
	}
	if skillID == "" {
		skillID = path
	}
	report := a.scanner.ScanContent(string(data), path, a.cfg.Agent.Locale)
	report.SkillID = skillID

	printReport(report, jsonOut)
	if report.Blocked {
		os.Exit(exitBlocked)
	}
}

func (a *app) runAddRepo(ctx context.Context, spec string) {
	owner, name, branch, err := parseRepoSpec(spec)
	if err != nil {
		fatal(err)
	}
	repo, err := a.store().AddRepository(ctx, owner, name, branch)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Registered %s@%s (%s)\n", repo.FullName(), repo.Branch, repo.ID)
}

func (a *app) runRemoveRepo(ctx context.Context, id string) {
	if err := a.store().RemoveRepository(ctx, id); err != nil {
		fatal(err)
	}
	fmt.Printf("Removed repository %s\n", id)
}

func (a *app) runListRepos(ctx context.Context) {
	repos, err := a.store().ListRepositories(ctx)
	if err != nil {
		fatal(err)
	}
	for _, r := range repos {
		fmt.Printf("%s  %s@%s\n", r.ID, r.FullName(), r.Branch)
	}
}

func (a *app) runSync(ctx context.Context) {
	st := a.store()
	reg := a.registry()

	repos, err := st.ListRepositories(ctx)
	if err != nil {
		fatal(err)
	}
	total := 0
	for _, repo := range repos {
		skills, err := reg.ListSkills(ctx, repo)
		if err != nil {
			a.log.Warn("sync %s: %v", repo.FullName(), err)
			continue
		}
		for _, skill := range skills {
			if err := st.UpsertSkill(ctx, skill); err != nil {
				fatal(err)
			}
		}
		fmt.Printf("%s: %d skills\n", repo.FullName(), len(skills))
		total += len(skills)
	}
	fmt.Printf("Discovered %d skills in %d repositories\n", total, len(repos))
}

func (a *app) runListSkills(ctx context.Context) {
	st := a.store()
	repos, err := st.ListRepositories(ctx)
	if err != nil {
		fatal(err)
	}
	for _, repo := range repos {
		skills, err := st.ListSkills(ctx, repo.ID)
		if err != nil {
			fatal(err)
		}
		for _, s := range skills {
			desc := s.Description
			if desc == "" {
				desc = "-"
			}
			fmt.Printf("%s  %-30s %s\n", s.ID, repo.FullName()+"/"+s.Path, desc)
		}
	}
}

func (a *app) runInstall(ctx context.Context, skillID string, jsonOut bool) {
	st := a.store()

	skill, err := st.GetSkill(ctx, skillID)
	if err != nil {
		fatal(err)
	}
	repo, err := st.GetRepository(ctx, skill.RepoID)
	if err != nil {
		fatal(err)
	}

	files, err := a.registry().FetchSkillFiles(ctx, repo, skill.Path)
	if err != nil {
		fatal(err)
	}

	report, err := a.installer().Install(ctx, skill, files, a.cfg.Agent.Locale)
	if report != nil {
		printReport(report, jsonOut)
	}
	if err != nil {
		if sdkerrors.IsBlocked(err) {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(exitBlocked)
		}
		fatal(err)
	}
	fmt.Printf("Installed %s\n", skill.Name)
}

func (a *app) runUninstall(ctx context.Context, skillID string) {
	if err := a.installer().Uninstall(ctx, skillID); err != nil {
		fatal(err)
	}
	fmt.Printf("Uninstalled %s\n", skillID)
}

func (a *app) runListInstalled(ctx context.Context) {
	insts, err := a.store().ListInstallations(ctx)
	if err != nil {
		fatal(err)
	}
	for _, inst := range insts {
		levelColor(inst.SecurityLevel).Printf("%-8s", inst.SecurityLevel)
		fmt.Printf(" %3d  %s  %s\n", inst.SecurityScore, inst.SkillID, inst.InstallPath)
	}
}

// parseRepoSpec splits "owner/name[@branch]".
func parseRepoSpec(spec string) (owner, name, branch string, err error) {
	rest := spec
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		branch = rest[at+1:]
		rest = rest[:at]
	}
	owner, name, ok := strings.Cut(rest, "/")
	if !ok || owner == "" || name == "" {
		return "", "", "", sdkerrors.E(sdkerrors.KindInvalidInput, "main",
			fmt.Sprintf("invalid repository %q, want owner/name[@branch]", spec))
	}
	return owner, name, branch, nil
}

func printReport(report *scan.SecurityReport, jsonOut bool) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fatal(err)
		}
		return
	}

	fmt.Printf("Skill:  %s\n", report.SkillID)
	fmt.Printf("Score:  ")
	levelColor(string(report.Level)).Printf("%d (%s)\n", report.Score, report.Level)
	if report.Blocked {
		color.New(color.FgRed, color.Bold).Println("BLOCKED")
	}
	if len(report.ScannedFiles) > 0 {
		fmt.Printf("Files:  %s\n", strings.Join(report.ScannedFiles, ", "))
	}

	if len(report.Issues) > 0 {
		fmt.Println("\nIssues:")
		for _, issue := range report.Issues {
			severityColor(issue.Severity).Printf("  %-8s", issue.Severity)
			loc := ""
			if issue.FilePath != "" {
				loc = fmt.Sprintf(" [%s:%d]", issue.FilePath, issue.LineNumber)
			}
			fmt.Printf(" %s%s\n", issue.Description, loc)
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range report.Recommendations {
			fmt.Printf("  %s\n", rec)
		}
	}
}

func severityColor(s scan.IssueSeverity) *color.Color {
	switch s {
	case scan.IssueSeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case scan.IssueSeverityError:
		return color.New(color.FgRed)
	case scan.IssueSeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func levelColor(level string) *color.Color {
	switch scan.SecurityLevel(level) {
	case scan.LevelSafe:
		return color.New(color.FgGreen)
	case scan.LevelLow:
		return color.New(color.FgCyan)
	case scan.LevelMedium:
		return color.New(color.FgYellow)
	case scan.LevelHigh:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitError)
}
