// Package registry discovers skill packages in GitHub repositories.
//
// A skill is any directory in the repository tree containing a SKILL.md
// manifest. Discovery walks the git tree of the configured branch;
// file fetches go through the contents API.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	sdkerrors "github.com/skillportio/sdk/pkg/errors"
	"github.com/skillportio/sdk/pkg/logging"
	"github.com/skillportio/sdk/pkg/metrics"
	"github.com/skillportio/sdk/pkg/store"
)

// ManifestName is the file that marks a directory as a skill.
const ManifestName = "SKILL.md"

// Config configures the registry client.
type Config struct {
	// Token is a GitHub personal access token. Empty means anonymous
	// access, which is fine for public skill repositories but rate
	// limited far more aggressively by GitHub.
	Token string

	// BaseURL overrides the GitHub API endpoint (for tests and GitHub
	// Enterprise). Must end with a slash when set.
	BaseURL string

	// RequestsPerHour caps outgoing API calls (0 = no client-side cap).
	RequestsPerHour int
	BurstLimit      int

	Timeout time.Duration

	Logger  logging.Logger
	Metrics metrics.Collector
}

// Client lists and fetches skills from GitHub.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
	log     logging.Logger
	mets    metrics.Collector
}

// New creates a registry client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	gh := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "registry.New", "parse base URL", err)
		}
		gh.BaseURL = base
	}

	c := &Client{
		gh:   gh,
		log:  cfg.Logger,
		mets: cfg.Metrics,
	}
	if c.log == nil {
		c.log = &logging.NopLogger{}
	}
	if c.mets == nil {
		c.mets = &metrics.NopCollector{}
	}

	if cfg.RequestsPerHour > 0 {
		burst := cfg.BurstLimit
		if burst <= 0 {
			burst = 10
		}
		rps := float64(cfg.RequestsPerHour) / 3600.0
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) observe(operation string, err error) {
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	c.mets.CounterInc(metrics.RegistryRequestsTotal.Name, "operation", operation, "status", status)
}

// ListSkills walks the repository tree and returns one Skill per
// directory holding a SKILL.md manifest. Manifests are fetched to pick
// up name and description; a manifest that cannot be read degrades to
// directory-name defaults rather than failing the whole listing.
func (c *Client) ListSkills(ctx context.Context, repo *store.Repository) (skills []*store.Skill, err error) {
	defer func() { c.observe("list_skills", err) }()

	if err = c.wait(ctx); err != nil {
		return nil, err
	}

	tree, _, err := c.gh.Git.GetTree(ctx, repo.Owner, repo.Name, repo.Branch, true)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "registry.ListSkills",
			fmt.Sprintf("get tree of %s@%s", repo.FullName(), repo.Branch), err)
	}

	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		p := entry.GetPath()
		if path.Base(p) != ManifestName {
			continue
		}
		dir := path.Dir(p)
		if dir == "." {
			// A manifest at the repository root is not a skill directory.
			continue
		}

		skill := &store.Skill{
			RepoID:    repo.ID,
			Name:      path.Base(dir),
			Path:      dir,
			UpdatedAt: time.Now().UTC(),
		}

		manifest, mErr := c.FetchFile(ctx, repo, p)
		if mErr != nil {
			c.log.Warn("manifest %s in %s unreadable: %v", p, repo.FullName(), mErr)
		} else {
			name, desc := parseManifest(string(manifest))
			if name != "" {
				skill.Name = name
			}
			skill.Description = desc
		}

		skills = append(skills, skill)
	}
	return skills, nil
}

// FetchFile downloads one file from the repository at its configured
// branch.
func (c *Client) FetchFile(ctx context.Context, repo *store.Repository, filePath string) (data []byte, err error) {
	defer func() { c.observe("fetch_file", err) }()

	if err = c.wait(ctx); err != nil {
		return nil, err
	}

	file, _, resp, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, filePath,
		&github.RepositoryContentGetOptions{Ref: repo.Branch})
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, sdkerrors.E(sdkerrors.KindNotFound, "registry.FetchFile",
				fmt.Sprintf("%s not found in %s", filePath, repo.FullName()))
		}
		return nil, sdkerrors.E(sdkerrors.KindInternal, "registry.FetchFile",
			fmt.Sprintf("fetch %s from %s", filePath, repo.FullName()), err)
	}
	if file == nil {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "registry.FetchFile",
			fmt.Sprintf("%s is a directory, not a file", filePath))
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "registry.FetchFile", "decode content", err)
	}
	return []byte(content), nil
}

// FetchSkillFiles downloads the immediate files of a skill directory,
// keyed by file name. Subdirectories are skipped, mirroring the
// non-recursive scan and install behavior.
func (c *Client) FetchSkillFiles(ctx context.Context, repo *store.Repository, skillPath string) (files map[string][]byte, err error) {
	defer func() { c.observe("fetch_skill_files", err) }()

	if err = c.wait(ctx); err != nil {
		return nil, err
	}

	_, entries, resp, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, skillPath,
		&github.RepositoryContentGetOptions{Ref: repo.Branch})
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, sdkerrors.E(sdkerrors.KindNotFound, "registry.FetchSkillFiles",
				fmt.Sprintf("skill directory %s not found in %s", skillPath, repo.FullName()))
		}
		return nil, sdkerrors.E(sdkerrors.KindInternal, "registry.FetchSkillFiles",
			fmt.Sprintf("list %s in %s", skillPath, repo.FullName()), err)
	}
	if entries == nil {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "registry.FetchSkillFiles",
			fmt.Sprintf("%s is a file, not a skill directory", skillPath))
	}

	files = make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.GetType() != "file" {
			continue
		}
		data, fErr := c.FetchFile(ctx, repo, entry.GetPath())
		if fErr != nil {
			return nil, fErr
		}
		files[entry.GetName()] = data
	}
	return files, nil
}

// parseManifest extracts name and description from a SKILL.md manifest.
// It understands YAML frontmatter keys; when there is no frontmatter,
// the first heading becomes the name and the first paragraph line the
// description.
func parseManifest(content string) (name, description string) {
	lines := strings.Split(content, "\n")

	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "---" {
		for _, line := range lines[1:] {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "---" {
				break
			}
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			value = strings.Trim(strings.TrimSpace(value), `"'`)
			switch strings.TrimSpace(key) {
			case "name":
				name = value
			case "description":
				description = value
			}
		}
		return name, description
	}

	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if name == "" {
				name = strings.TrimSpace(strings.TrimLeft(line, "#"))
			}
			continue
		}
		description = line
		break
	}
	return name, description
}
