package repo

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFiles(t *testing.T) {
	git := &fakeGit{files: map[string]string{
		"main.go":             "package main\n",
		"README.md":           "  # Title  \n",
		"Dockerfile":          "FROM golang\n",
		"scripts/deploy":      "#!/bin/sh\necho hi\n",
		"scripts/notes":       "plain text\n",
		"image.png":           "binary",
		".github/ci.yml":      "on: push\n",
		"internal/big.py":     strings.Repeat("x", 5000),
		".gitignore":          "bin/\n",
		"vendor/pkg/lib.json": `{"a":1}`,
	}}
	m := newTestManager(t, git)
	ref := Ref{"o", "r", "main"}
	_, err := m.Clone(context.Background(), ref)
	require.NoError(t, err)

	out, err := m.FormatFiles(ref)
	require.NoError(t, err)

	assert.Contains(t, out, "\nFile: main.go\n```go\npackage main\n```\n")
	assert.Contains(t, out, "\nFile: README.md\n```md\n# Title\n```\n")
	assert.Contains(t, out, "\nFile: Dockerfile\n```\nFROM golang\n```\n")
	assert.Contains(t, out, "\nFile: scripts/deploy\n```\n#!/bin/sh\necho hi\n```\n")
	assert.Contains(t, out, "File: vendor/pkg/lib.json")
	assert.NotContains(t, out, "scripts/notes")
	assert.NotContains(t, out, "image.png")
	assert.NotContains(t, out, "ci.yml")
	assert.NotContains(t, out, ".gitignore")

	assert.Contains(t, out, "\nFile: internal/big.py\n```py\n"+strings.Repeat("x", 3000)+"\n```\n")
}

func TestFormatFiles_MissingClone(t *testing.T) {
	m := newTestManager(t, &fakeGit{})
	_, err := m.FormatFiles(Ref{"o", "r", "main"})
	assert.ErrorIs(t, err, ErrCloneNotFound)
}

func TestFormatFiles_CustomAllowList(t *testing.T) {
	git := &fakeGit{files: map[string]string{"a.rs": "fn main() {}", "b.go": "package b"}}
	m := newTestManager(t, git)
	m.Extensions = []string{".RS"}
	m.Filenames = nil
	m.MaxFileChars = 2
	ref := Ref{"o", "r", "main"}
	_, err := m.Clone(context.Background(), ref)
	require.NoError(t, err)

	out, err := m.FormatFiles(ref)
	require.NoError(t, err)
	assert.Equal(t, "\nFile: a.rs\n```rs\nfn\n```\n", out)
}
