// Package changeset groups a time-ordered revision log into changesets,
// each of which becomes one commit in the target repository.
package changeset

import (
	"time"

	"histport.dev/histport/internal/history"
)

// Options controls how aggressively revisions are merged
type Options struct {
	// AnyCommentThreshold merges same-user revisions at most this far apart, whatever their comments
	AnyCommentThreshold time.Duration
	// SameCommentThreshold merges same-user revisions with identical comments at most this far apart
	SameCommentThreshold time.Duration
}

// Changeset is a run of revisions replayed and committed together
type Changeset struct {
	Revisions []history.Revision
	User      string
	Time      time.Time
	Comment   string
}

// Last returns the most recent revision in the changeset
func (c *Changeset) Last() history.Revision {
	return c.Revisions[len(c.Revisions)-1]
}

// extends reports whether rev belongs to the changeset
func (c *Changeset) extends(rev history.Revision, opts Options) bool {
	if rev.User != c.User {
		return false
	}
	gap := rev.Time.Sub(c.Last().Time)
	if gap < 0 {
		gap = -gap
	}
	// a zero threshold disables its rule, even for identical timestamps
	if opts.AnyCommentThreshold > 0 && gap <= opts.AnyCommentThreshold {
		return true
	}
	return opts.SameCommentThreshold > 0 && rev.Comment == c.Comment && gap <= opts.SameCommentThreshold
}

func (c *Changeset) add(rev history.Revision) {
	c.Revisions = append(c.Revisions, rev)
	if c.Comment == "" && rev.Comment != "" {
		c.Comment = rev.Comment
	}
}

// Build partitions revs, which must be sorted by time, into changesets.
// Concatenating the result's revisions reproduces revs exactly.
func Build(revs []history.Revision, opts Options) []Changeset {
	var changesets []Changeset
	var open *Changeset

	for _, rev := range revs {
		if open != nil && open.extends(rev, opts) {
			open.add(rev)
			continue
		}
		if open != nil {
			changesets = append(changesets, *open)
		}
		open = &Changeset{User: rev.User, Time: rev.Time}
		open.add(rev)
	}
	if open != nil {
		changesets = append(changesets, *open)
	}
	return changesets
}
