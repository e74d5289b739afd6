package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkerrors "github.com/skillportio/sdk/pkg/errors"
	"github.com/skillportio/sdk/pkg/store"
)

type fakeContent struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
}

// newFakeGitHub serves just enough of the GitHub API for the client:
// the recursive tree of one branch and base64 file contents.
func newFakeGitHub(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/skills/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		type treeEntry struct {
			Path string `json:"path"`
			Type string `json:"type"`
		}
		var entries []treeEntry
		for path := range files {
			entries = append(entries, treeEntry{Path: path, Type: "blob"})
		}
		json.NewEncoder(w).Encode(map[string]any{"sha": "abc", "tree": entries})
	})
	mux.HandleFunc("/repos/octocat/skills/contents/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/repos/octocat/skills/contents/")

		if content, ok := files[path]; ok {
			json.NewEncoder(w).Encode(fakeContent{
				Type:     "file",
				Name:     path[strings.LastIndex(path, "/")+1:],
				Path:     path,
				Encoding: "base64",
				Content:  base64.StdEncoding.EncodeToString([]byte(content)),
			})
			return
		}

		// Directory listing: immediate children only.
		var listing []fakeContent
		prefix := path + "/"
		seen := map[string]bool{}
		for p := range files {
			if !strings.HasPrefix(p, prefix) {
				continue
			}
			rest := strings.TrimPrefix(p, prefix)
			if idx := strings.Index(rest, "/"); idx >= 0 {
				dir := rest[:idx]
				if !seen[dir] {
					seen[dir] = true
					listing = append(listing, fakeContent{Type: "dir", Name: dir, Path: prefix + dir})
				}
				continue
			}
			listing = append(listing, fakeContent{Type: "file", Name: rest, Path: p})
		}
		if len(listing) == 0 {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}
		json.NewEncoder(w).Encode(listing)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testRepo() *store.Repository {
	return &store.Repository{ID: "repo-1", Owner: "octocat", Name: "skills", Branch: "main"}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(&Config{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestListSkills(t *testing.T) {
	srv := newFakeGitHub(t, map[string]string{
		"README.md":                    "# Skill collection\n",
		"SKILL.md":                     "root manifest, not a skill\n",
		"skills/hello/SKILL.md":        "---\nname: Hello World\ndescription: Greets the user\n---\n# Hello\n",
		"skills/hello/run.py":          "print('hi')\n",
		"skills/plain/SKILL.md":        "# Plain Skill\n\nDoes plain things.\n",
		"skills/plain/notes/extra.txt": "nested\n",
	})
	c := newTestClient(t, srv)

	skills, err := c.ListSkills(context.Background(), testRepo())
	if err != nil {
		t.Fatalf("ListSkills: %v", err)
	}
	if len(skills) != 2 {
		t.Fatalf("skills = %d, want 2", len(skills))
	}

	byPath := map[string]*store.Skill{}
	for _, s := range skills {
		byPath[s.Path] = s
	}

	hello := byPath["skills/hello"]
	if hello == nil {
		t.Fatal("skills/hello not discovered")
	}
	if hello.Name != "Hello World" || hello.Description != "Greets the user" {
		t.Errorf("frontmatter parse: name=%q desc=%q", hello.Name, hello.Description)
	}
	if hello.RepoID != "repo-1" {
		t.Errorf("repo ID = %q", hello.RepoID)
	}

	plain := byPath["skills/plain"]
	if plain == nil {
		t.Fatal("skills/plain not discovered")
	}
	if plain.Name != "Plain Skill" || plain.Description != "Does plain things." {
		t.Errorf("heading parse: name=%q desc=%q", plain.Name, plain.Description)
	}
}

func TestFetchFile(t *testing.T) {
	srv := newFakeGitHub(t, map[string]string{
		"skills/hello/run.py": "print('hi')\n",
	})
	c := newTestClient(t, srv)

	data, err := c.FetchFile(context.Background(), testRepo(), "skills/hello/run.py")
	if err != nil {
		t.Fatalf("FetchFile: %v", err)
	}
	if string(data) != "print('hi')\n" {
		t.Errorf("content = %q", data)
	}

	_, err = c.FetchFile(context.Background(), testRepo(), "skills/hello/missing.py")
	if !sdkerrors.IsNotFound(err) {
		t.Errorf("missing file = %v, want not found", err)
	}
}

func TestFetchSkillFiles(t *testing.T) {
	srv := newFakeGitHub(t, map[string]string{
		"skills/hello/SKILL.md":        "# Hello\n",
		"skills/hello/run.py":          "print('hi')\n",
		"skills/hello/notes/extra.txt": "nested, must be skipped\n",
	})
	c := newTestClient(t, srv)

	files, err := c.FetchSkillFiles(context.Background(), testRepo(), "skills/hello")
	if err != nil {
		t.Fatalf("FetchSkillFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want SKILL.md and run.py only", files)
	}
	if string(files["run.py"]) != "print('hi')\n" {
		t.Errorf("run.py = %q", files["run.py"])
	}
	if _, ok := files["extra.txt"]; ok {
		t.Error("nested file must not be fetched")
	}
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantName string
		wantDesc string
	}{
		{
			name:     "frontmatter",
			content:  "---\nname: \"Quoted Name\"\ndescription: 'Single quoted'\n---\nbody\n",
			wantName: "Quoted Name",
			wantDesc: "Single quoted",
		},
		{
			name:     "heading and paragraph",
			content:  "# Title\n\nFirst paragraph line.\nSecond line ignored.\n",
			wantName: "Title",
			wantDesc: "First paragraph line.",
		},
		{
			name:     "empty",
			content:  "",
			wantName: "",
			wantDesc: "",
		},
		{
			name:     "frontmatter without known keys",
			content:  "---\nversion: 2\n---\n",
			wantName: "",
			wantDesc: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, desc := parseManifest(tt.content)
			if name != tt.wantName || desc != tt.wantDesc {
				t.Errorf("parseManifest = (%q, %q), want (%q, %q)", name, desc, tt.wantName, tt.wantDesc)
			}
		})
	}
}
