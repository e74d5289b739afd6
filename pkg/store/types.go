package store

import "time"

// Repository is a GitHub repository registered as a skill source.
type Repository struct {
	ID      string    `json:"id"`
	Owner   string    `json:"owner"`
	Name    string    `json:"name"`
	Branch  string    `json:"branch"`
	AddedAt time.Time `json:"added_at"`
}

// FullName returns the owner/name form used in API calls and logs.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Skill is one skill package discovered in a repository.
type Skill struct {
	ID          string    `json:"id"`
	RepoID      string    `json:"repo_id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"` // path within the repository
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Installation records an installed skill together with the outcome of
// the security scan that admitted it.
type Installation struct {
	SkillID     string `json:"skill_id"`
	InstallPath string `json:"install_path"`

	SecurityScore int    `json:"security_score"`
	SecurityLevel string `json:"security_level"`

	// SecurityIssues holds the persisted issue strings, one per finding.
	SecurityIssues []string `json:"security_issues"`

	// Checksum is the SHA-256 digest over the installed content.
	Checksum string `json:"checksum"`

	InstalledAt time.Time `json:"installed_at"`
	ScannedAt   time.Time `json:"scanned_at"`
}
