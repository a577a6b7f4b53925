package repo

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FormatFiles renders every allow-listed file of the clone as
//
//	File: <relative path>
//	```<ext>
//	<content, capped at MaxFileChars characters>
//	```
//
// Paths with a component containing ".git" are skipped. Extensionless
// files are included when their first line is a shebang.
func (m *Manager) FormatFiles(ref Ref) (string, error) {
	root := m.Path(ref)
	if !m.Exists(ref) {
		return "", fmt.Errorf("%w: %s", ErrCloneNotFound, root)
	}

	exts := lowerSet(m.Extensions)
	names := lowerSet(m.Filenames)
	limit := m.MaxFileChars
	if limit <= 0 {
		limit = DefaultMaxFileChars
	}

	var b strings.Builder
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		if underGit(rel) {
			return skip(d)
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		valid := exts[ext] || names[strings.ToLower(d.Name())]
		if !valid && ext == "" {
			valid = hasShebang(path)
		}
		if !valid {
			return nil
		}

		rel = filepath.ToSlash(rel)
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(&b, "\nError reading %s: %v\n", rel, err)
			return nil
		}
		fmt.Fprintf(&b, "\nFile: %s\n", rel)
		b.WriteString("```" + strings.TrimPrefix(filepath.Ext(d.Name()), ".") + "\n")
		b.WriteString(strings.TrimSpace(truncate(string(data), limit)))
		b.WriteString("\n```\n")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read files: %w", err)
	}
	return b.String(), nil
}

func underGit(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.Contains(part, ".git") {
			return true
		}
	}
	return false
}

func hasShebang(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(line), "#!")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func lowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(strings.TrimSpace(it))] = true
	}
	return set
}
