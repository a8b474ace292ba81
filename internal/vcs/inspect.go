package vcs

import (
	"errors"
	"fmt"
	"sort"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitSummary describes an exported git repository
type GitSummary struct {
	Head       string
	Commits    int
	Tags       []string
	LastAuthor string
	LastTime   time.Time
}

// InspectGit reads a summary of the git repository in dir without
// touching its working tree.
func InspectGit(dir string) (*GitSummary, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}

	summary := &GitSummary{}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// nothing committed yet
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	summary.Head = head.Hash().String()

	last, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	summary.LastAuthor = last.Author.Name
	summary.LastTime = last.Author.When

	commits, err := repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	err = commits.ForEach(func(*object.Commit) error {
		summary.Commits++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}

	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		summary.Tags = append(summary.Tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	sort.Strings(summary.Tags)
	return summary, nil
}

// GitTagMessage returns the message of an annotated tag
func GitTagMessage(dir, name string) (string, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", dir, err)
	}
	ref, err := repo.Tag(name)
	if err != nil {
		return "", fmt.Errorf("failed to find tag %s: %w", name, err)
	}
	tag, err := repo.TagObject(ref.Hash())
	if err != nil {
		return "", fmt.Errorf("tag %s is not annotated: %w", name, err)
	}
	return tag.Message, nil
}
