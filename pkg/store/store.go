// Package store persists repositories, discovered skills, and
// installation records in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/skillportio/sdk/pkg/compress"
	sdkerrors "github.com/skillportio/sdk/pkg/errors"
	"github.com/skillportio/sdk/pkg/logging"
	"github.com/skillportio/sdk/pkg/metrics"
)

// Default skill source seeded into an empty database.
const (
	DefaultRepoOwner  = "anthropics"
	DefaultRepoName   = "skills"
	DefaultRepoBranch = "main"
)

// Config configures the store.
type Config struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string

	// Codec compresses large issue payloads (nil = compress.Default).
	Codec *compress.Codec

	Logger  logging.Logger
	Metrics metrics.Collector
}

// Store is a SQLite-backed persistence layer. Safe for concurrent use.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	codec *compress.Codec
	log   logging.Logger
	mets  metrics.Collector
}

// New opens (creating if necessary) the database at cfg.Path, applies
// the schema, and seeds the default skill repository when the
// repository table is empty.
func New(cfg *Config) (*Store, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "store.New", "database path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, sdkerrors.E(sdkerrors.KindInternal, "store.New", "create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.New", "open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, sdkerrors.E(sdkerrors.KindInternal, "store.New", "set pragma", err)
		}
	}

	s := &Store{
		db:    db,
		codec: cfg.Codec,
		log:   cfg.Logger,
		mets:  cfg.Metrics,
	}
	if s.codec == nil {
		s.codec = compress.Default
	}
	if s.log == nil {
		s.log = &logging.NopLogger{}
	}
	if s.mets == nil {
		s.mets = &metrics.NopCollector{}
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.New", "init schema", err)
	}
	if err := s.seedDefaultRepo(); err != nil {
		db.Close()
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.New", "seed default repository", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT 'main',
		added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(owner, name)
	);

	CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		repo_id TEXT NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(repo_id, path),
		FOREIGN KEY (repo_id) REFERENCES repositories(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS installations (
		skill_id TEXT PRIMARY KEY,
		install_path TEXT NOT NULL,
		security_score INTEGER NOT NULL,
		security_level TEXT NOT NULL,
		security_issues BLOB,
		checksum TEXT NOT NULL DEFAULT '',
		installed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		scanned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_skills_repo_id ON skills(repo_id);
	CREATE INDEX IF NOT EXISTS idx_installations_level ON installations(security_level);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.migrate()
}

// migrate applies additive column changes to databases created by older
// versions. There is no migration framework; columns are only ever
// added, never renamed or dropped.
func (s *Store) migrate() error {
	// ADD COLUMN cannot carry a non-constant default in SQLite, so
	// scanned_at is added bare and backfilled from installed_at.
	additions := map[string]string{
		"checksum": "ALTER TABLE installations ADD COLUMN checksum TEXT NOT NULL DEFAULT ''",
		"scanned_at": "ALTER TABLE installations ADD COLUMN scanned_at TIMESTAMP; " +
			"UPDATE installations SET scanned_at = installed_at WHERE scanned_at IS NULL",
	}

	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('installations')`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		delete(additions, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, stmt := range additions {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// seedDefaultRepo inserts the built-in skill source when no repository
// exists yet. Removing the default later is allowed and respected.
func (s *Store) seedDefaultRepo() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM repositories`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO repositories (id, owner, name, branch, added_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), DefaultRepoOwner, DefaultRepoName, DefaultRepoBranch, time.Now().UTC())
	return err
}

func (s *Store) observe(operation string, err error) {
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	s.mets.CounterInc(metrics.StoreOperationsTotal.Name, "operation", operation, "status", status)
}

// AddRepository registers a skill source. Owner/name pairs are unique;
// re-adding an existing pair returns a conflict error.
func (s *Store) AddRepository(ctx context.Context, owner, name, branch string) (rep *Repository, err error) {
	defer func() { s.observe("add_repository", err) }()

	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "store.AddRepository", "owner and name are required")
	}
	if branch == "" {
		branch = DefaultRepoBranch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repo := &Repository{
		ID:      uuid.New().String(),
		Owner:   owner,
		Name:    name,
		Branch:  branch,
		AddedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO repositories (id, owner, name, branch, added_at)
		VALUES (?, ?, ?, ?, ?)
	`, repo.ID, repo.Owner, repo.Name, repo.Branch, repo.AddedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, sdkerrors.E(sdkerrors.KindConflict, "store.AddRepository",
				fmt.Sprintf("repository %s/%s already registered", owner, name))
		}
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.AddRepository", "insert repository", err)
	}
	return repo, nil
}

// ListRepositories returns every registered repository, oldest first.
func (s *Store) ListRepositories(ctx context.Context) (repos []*Repository, err error) {
	defer func() { s.observe("list_repositories", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, name, branch, added_at
		FROM repositories ORDER BY added_at ASC, id ASC
	`)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.ListRepositories", "query repositories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.Owner, &r.Name, &r.Branch, &r.AddedAt); err != nil {
			return nil, sdkerrors.E(sdkerrors.KindInternal, "store.ListRepositories", "scan repository", err)
		}
		repos = append(repos, &r)
	}
	return repos, rows.Err()
}

// GetRepository looks up a repository by ID.
func (s *Store) GetRepository(ctx context.Context, id string) (rep *Repository, err error) {
	defer func() { s.observe("get_repository", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var r Repository
	err = s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, branch, added_at
		FROM repositories WHERE id = ?
	`, id).Scan(&r.ID, &r.Owner, &r.Name, &r.Branch, &r.AddedAt)
	if err == sql.ErrNoRows {
		return nil, sdkerrors.E(sdkerrors.KindNotFound, "store.GetRepository",
			fmt.Sprintf("repository %s not found", id))
	}
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.GetRepository", "query repository", err)
	}
	return &r, nil
}

// RemoveRepository deletes a repository and, via cascade, its skills.
func (s *Store) RemoveRepository(ctx context.Context, id string) (err error) {
	defer func() { s.observe("remove_repository", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "store.RemoveRepository", "delete repository", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sdkerrors.E(sdkerrors.KindNotFound, "store.RemoveRepository",
			fmt.Sprintf("repository %s not found", id))
	}
	return nil
}

// UpsertSkill inserts or refreshes a discovered skill. The (repo, path)
// pair identifies the skill; re-upserting updates name, description,
// and timestamp but keeps the original ID.
func (s *Store) UpsertSkill(ctx context.Context, skill *Skill) (err error) {
	defer func() { s.observe("upsert_skill", err) }()

	if skill.RepoID == "" || skill.Path == "" {
		return sdkerrors.E(sdkerrors.KindInvalidInput, "store.UpsertSkill", "repo ID and path are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if skill.ID == "" {
		skill.ID = uuid.New().String()
	}
	if skill.UpdatedAt.IsZero() {
		skill.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO skills (id, repo_id, name, path, description, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, path) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			updated_at = excluded.updated_at
	`, skill.ID, skill.RepoID, skill.Name, skill.Path, skill.Description, skill.UpdatedAt)
	if err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "store.UpsertSkill", "upsert skill", err)
	}

	// The insert may have hit the conflict branch; read back the row ID
	// so callers always hold the canonical one.
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM skills WHERE repo_id = ? AND path = ?
	`, skill.RepoID, skill.Path).Scan(&skill.ID)
	if err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "store.UpsertSkill", "read back skill ID", err)
	}
	return nil
}

// GetSkill looks up a skill by ID.
func (s *Store) GetSkill(ctx context.Context, id string) (sk *Skill, err error) {
	defer func() { s.observe("get_skill", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var skill Skill
	err = s.db.QueryRowContext(ctx, `
		SELECT id, repo_id, name, path, description, updated_at
		FROM skills WHERE id = ?
	`, id).Scan(&skill.ID, &skill.RepoID, &skill.Name, &skill.Path, &skill.Description, &skill.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, sdkerrors.E(sdkerrors.KindNotFound, "store.GetSkill",
			fmt.Sprintf("skill %s not found", id))
	}
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.GetSkill", "query skill", err)
	}
	return &skill, nil
}

// ListSkills returns the skills of one repository, ordered by path.
func (s *Store) ListSkills(ctx context.Context, repoID string) (skills []*Skill, err error) {
	defer func() { s.observe("list_skills", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, name, path, description, updated_at
		FROM skills WHERE repo_id = ? ORDER BY path ASC
	`, repoID)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.ListSkills", "query skills", err)
	}
	defer rows.Close()

	for rows.Next() {
		var skill Skill
		if err := rows.Scan(&skill.ID, &skill.RepoID, &skill.Name, &skill.Path,
			&skill.Description, &skill.UpdatedAt); err != nil {
			return nil, sdkerrors.E(sdkerrors.KindInternal, "store.ListSkills", "scan skill", err)
		}
		skills = append(skills, &skill)
	}
	return skills, rows.Err()
}

// SaveInstallation records (or replaces) the installation of a skill.
// The issue list is JSON-encoded and, when large, zstd-compressed.
func (s *Store) SaveInstallation(ctx context.Context, inst *Installation) (err error) {
	defer func() { s.observe("save_installation", err) }()

	if inst.SkillID == "" {
		return sdkerrors.E(sdkerrors.KindInvalidInput, "store.SaveInstallation", "skill ID is required")
	}

	payload, err := s.encodeIssues(inst.SecurityIssues)
	if err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "store.SaveInstallation", "encode issues", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inst.InstalledAt.IsZero() {
		inst.InstalledAt = time.Now().UTC()
	}
	if inst.ScannedAt.IsZero() {
		inst.ScannedAt = inst.InstalledAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO installations (
			skill_id, install_path, security_score, security_level,
			security_issues, checksum, installed_at, scanned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(skill_id) DO UPDATE SET
			install_path = excluded.install_path,
			security_score = excluded.security_score,
			security_level = excluded.security_level,
			security_issues = excluded.security_issues,
			checksum = excluded.checksum,
			installed_at = excluded.installed_at,
			scanned_at = excluded.scanned_at
	`, inst.SkillID, inst.InstallPath, inst.SecurityScore, inst.SecurityLevel,
		payload, inst.Checksum, inst.InstalledAt, inst.ScannedAt)
	if err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "store.SaveInstallation", "save installation", err)
	}
	return nil
}

// GetInstallation returns the installation record for a skill.
func (s *Store) GetInstallation(ctx context.Context, skillID string) (inst *Installation, err error) {
	defer func() { s.observe("get_installation", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec Installation
	var payload []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT skill_id, install_path, security_score, security_level,
			security_issues, checksum, installed_at, scanned_at
		FROM installations WHERE skill_id = ?
	`, skillID).Scan(&rec.SkillID, &rec.InstallPath, &rec.SecurityScore, &rec.SecurityLevel,
		&payload, &rec.Checksum, &rec.InstalledAt, &rec.ScannedAt)
	if err == sql.ErrNoRows {
		return nil, sdkerrors.E(sdkerrors.KindNotFound, "store.GetInstallation",
			fmt.Sprintf("skill %s is not installed", skillID))
	}
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.GetInstallation", "query installation", err)
	}

	rec.SecurityIssues, err = s.decodeIssues(payload)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.GetInstallation", "decode issues", err)
	}
	return &rec, nil
}

// ListInstallations returns every installation record, newest first.
func (s *Store) ListInstallations(ctx context.Context) (insts []*Installation, err error) {
	defer func() { s.observe("list_installations", err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT skill_id, install_path, security_score, security_level,
			security_issues, checksum, installed_at, scanned_at
		FROM installations ORDER BY installed_at DESC
	`)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, "store.ListInstallations", "query installations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec Installation
		var payload []byte
		if err := rows.Scan(&rec.SkillID, &rec.InstallPath, &rec.SecurityScore, &rec.SecurityLevel,
			&payload, &rec.Checksum, &rec.InstalledAt, &rec.ScannedAt); err != nil {
			return nil, sdkerrors.E(sdkerrors.KindInternal, "store.ListInstallations", "scan installation", err)
		}
		if rec.SecurityIssues, err = s.decodeIssues(payload); err != nil {
			return nil, sdkerrors.E(sdkerrors.KindInternal, "store.ListInstallations", "decode issues", err)
		}
		insts = append(insts, &rec)
	}
	return insts, rows.Err()
}

// DeleteInstallation removes the installation record for a skill.
func (s *Store) DeleteInstallation(ctx context.Context, skillID string) (err error) {
	defer func() { s.observe("delete_installation", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM installations WHERE skill_id = ?`, skillID)
	if err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "store.DeleteInstallation", "delete installation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sdkerrors.E(sdkerrors.KindNotFound, "store.DeleteInstallation",
			fmt.Sprintf("skill %s is not installed", skillID))
	}
	return nil
}

func (s *Store) encodeIssues(issues []string) ([]byte, error) {
	if issues == nil {
		issues = []string{}
	}
	raw, err := json.Marshal(issues)
	if err != nil {
		return nil, err
	}
	return s.codec.Encode(raw)
}

func (s *Store) decodeIssues(payload []byte) ([]string, error) {
	if len(payload) == 0 {
		return []string{}, nil
	}
	raw, err := s.codec.Decode(payload)
	if err != nil {
		return nil, err
	}
	var issues []string
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
