// Package testhelpers provides testing utilities for histport, including a
// scene system, readers for exported repositories, and custom assertions.
package testhelpers

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireTool skips the test when an external executable is missing
func RequireTool(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not installed", name)
		}
	}
}

// ExpectFiles asserts that dir holds exactly the given files, ignoring
// entries whose first path segment is in skip.
func ExpectFiles(t *testing.T, dir string, expected map[string]string, skip ...string) {
	t.Helper()

	actual := map[string]string{}
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		rel = filepath.ToSlash(rel)
		for _, s := range skip {
			if rel == s || strings.HasPrefix(rel, s+"/") {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		actual[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, expected, actual)
}

// ExpectTags asserts that the repository has the expected tags
func ExpectTags(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()

	tags, err := repo.Tags()
	require.NoError(t, err, "Failed to list tags")
	sort.Strings(tags)
	sorted := append([]string{}, expected...)
	sort.Strings(sorted)
	require.Equal(t, sorted, tags)
}
