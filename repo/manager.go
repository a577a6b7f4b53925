package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// GitRunner performs the clone itself.
type GitRunner interface {
	Clone(ctx context.Context, url, branch, dir string) error
}

// ExecGit shells out to the git binary.
type ExecGit struct {
	Binary string // default "git"
}

// Clone runs a shallow single-branch clone into dir.
func (g ExecGit) Clone(ctx context.Context, url, branch, dir string) error {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, "clone", "--depth", "1", "--branch", branch, "--single-branch", url, dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s@%s: %w: %s", url, branch, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Manager owns the clone directory tree <Root>/<owner>/<repo>/<branch>.
type Manager struct {
	Root         string
	Extensions   []string
	Filenames    []string
	MaxFileChars int
	Git          GitRunner
}

// DefaultExtensions and DefaultFilenames form the default file allow-list.
var (
	DefaultExtensions = []string{".md", ".py", ".go", ".js", ".ts", ".toml", ".yaml", ".yml", ".json"}
	DefaultFilenames  = []string{"pyproject.toml", "poetry.lock", "go.mod", "Dockerfile", "Makefile"}
)

// DefaultMaxFileChars caps the characters included per file.
const DefaultMaxFileChars = 3000

// NewManager returns a manager with the default allow-list and git binary.
func NewManager(root string) *Manager {
	return &Manager{
		Root:         root,
		Extensions:   DefaultExtensions,
		Filenames:    DefaultFilenames,
		MaxFileChars: DefaultMaxFileChars,
		Git:          ExecGit{},
	}
}

// Path returns the clone directory of ref.
func (m *Manager) Path(ref Ref) string {
	return filepath.Join(m.Root, ref.Owner, ref.Repo, ref.Branch)
}

// Exists reports whether a clone of ref is present.
func (m *Manager) Exists(ref Ref) bool {
	info, err := os.Stat(m.Path(ref))
	return err == nil && info.IsDir()
}

// Clone replaces any existing clone of ref with a fresh one.
func (m *Manager) Clone(ctx context.Context, ref Ref) (string, error) {
	dir := m.Path(ref)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove old clone %s: %w", dir, err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("create clone parent %s: %w", dir, err)
	}
	if err := m.Git.Clone(ctx, ref.URL(), ref.Branch, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// Delete removes the clone of ref.
func (m *Manager) Delete(ref Ref) (string, error) {
	dir := m.Path(ref)
	if !m.Exists(ref) {
		return "", fmt.Errorf("%w: %s", ErrCloneNotFound, dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to delete clone: %w", err)
	}
	return dir, nil
}

// List returns every clone under Root as owner/repo/branch, sorted.
func (m *Manager) List() ([]string, error) {
	var clones []string
	err := filepath.WalkDir(m.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == m.Root {
				return filepath.SkipAll
			}
			return err
		}
		rel, err := filepath.Rel(m.Root, path)
		if err != nil {
			return err
		}
		depth := 0
		if rel != "." {
			depth = len(strings.Split(rel, string(filepath.Separator)))
		}
		if d.Name() == ".git" && depth == 4 {
			clones = append(clones, filepath.ToSlash(filepath.Dir(rel)))
			return skip(d)
		}
		if d.IsDir() && depth >= 4 {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error accessing local repository directories: %w", err)
	}
	sort.Strings(clones)
	return clones, nil
}

func skip(d fs.DirEntry) error {
	if d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

// WriteFile writes content to dir/name inside the clone of ref.
func (m *Manager) WriteFile(ref Ref, dir, name, content string) (string, error) {
	base := m.Path(ref)
	full := filepath.Join(base, dir, name)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, filepath.Join(dir, name))
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return full, nil
}
