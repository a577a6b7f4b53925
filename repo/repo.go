// Package repo manages local clones of GitHub repositories and renders
// their files into the text block a workflow task is built from.
package repo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRepository is returned for malformed repository strings.
	ErrInvalidRepository = errors.New("invalid repository string")

	// ErrCloneNotFound is returned when no local clone exists for a repository.
	ErrCloneNotFound = errors.New("clone does not exist")

	// ErrPathEscape is returned when a file path would leave the clone directory.
	ErrPathEscape = errors.New("path escapes clone directory")
)

// DefaultBranch is used when the repository string names no branch.
const DefaultBranch = "main"

// Ref identifies one branch of a GitHub repository.
type Ref struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// ParseRepository parses "owner/repo[/branch]". A leading slash is
// allowed and the branch defaults to main.
func ParseRepository(s string) (Ref, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Ref{}, fmt.Errorf("%w: %q, expected owner/repo or owner/repo/branch", ErrInvalidRepository, s)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `\`) {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRepository, s)
		}
	}

	ref := Ref{Owner: parts[0], Repo: parts[1], Branch: DefaultBranch}
	if len(parts) == 3 {
		ref.Branch = parts[2]
	}
	return ref, nil
}

// String returns owner/repo/branch.
func (r Ref) String() string {
	return r.Owner + "/" + r.Repo + "/" + r.Branch
}

// URL returns the HTTPS clone URL.
func (r Ref) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", r.Owner, r.Repo)
}
