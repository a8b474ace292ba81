package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
)

// Scene is a temporary workspace for an export: a directory to export
// into and a directory holding the reference tree to verify against.
type Scene struct {
	Dir       string
	Target    string
	Reference string
	oldDir    string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene in a temporary directory and changes
// into it. Git and hg are isolated from the user's configuration.
// Cleanup is registered with t.Cleanup().
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "histport-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}

	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("HGRCPATH", os.DevNull)

	scene := &Scene{
		Dir:       tmpDir,
		Target:    filepath.Join(tmpDir, "target"),
		Reference: filepath.Join(tmpDir, "reference"),
		oldDir:    oldDir,
	}

	if err := os.Chdir(tmpDir); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to change directory: %v", err)
	}

	t.Cleanup(func() {
		os.Chdir(oldDir)
		if os.Getenv("DEBUG") == "" {
			os.RemoveAll(tmpDir)
		}
	})

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	return scene
}

// WriteReference writes files (slash-separated path to content) into the
// reference tree.
func (s *Scene) WriteReference(files map[string]string) error {
	for name, content := range files {
		p := filepath.Join(s.Reference, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// TargetRepo returns a GitRepo view of the export target
func (s *Scene) TargetRepo() *GitRepo {
	return &GitRepo{Dir: s.Target}
}
