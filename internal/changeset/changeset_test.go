package changeset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"histport.dev/histport/internal/history"
)

var epoch = time.Date(2005, 7, 1, 8, 30, 0, 0, time.UTC)

func rev(item history.ItemID, offset time.Duration, user, comment string) history.Revision {
	return history.Revision{
		Item:    item,
		Version: 1,
		Time:    epoch.Add(offset),
		User:    user,
		Comment: comment,
		Action:  history.EditAction{},
	}
}

func flatten(changesets []Changeset) []history.Revision {
	var out []history.Revision
	for _, c := range changesets {
		out = append(out, c.Revisions...)
	}
	return out
}

func TestBuild_IsOrderPreservingPartition(t *testing.T) {
	revs := []history.Revision{
		rev("A", 0, "ann", "first"),
		rev("B", 10*time.Second, "ann", ""),
		rev("C", 11*time.Second, "bob", "other user"),
		rev("D", 2*time.Hour, "bob", "later"),
		rev("E", 2*time.Hour+5*time.Second, "bob", "later"),
		rev("F", 5*time.Hour, "ann", ""),
	}
	opts := Options{AnyCommentThreshold: 30 * time.Second, SameCommentThreshold: 10 * time.Minute}

	changesets := Build(revs, opts)

	require.Equal(t, revs, flatten(changesets))
	for _, c := range changesets {
		require.NotEmpty(t, c.Revisions)
		require.Equal(t, c.Revisions[0].Time, c.Time)
		for _, r := range c.Revisions {
			require.Equal(t, c.User, r.User)
		}
	}
	require.Len(t, changesets, 4)
}

func TestBuild_EmptyInput(t *testing.T) {
	require.Empty(t, Build(nil, Options{AnyCommentThreshold: time.Minute}))
}

func TestBuild_Grouping(t *testing.T) {
	opts := Options{AnyCommentThreshold: 30 * time.Second, SameCommentThreshold: 10 * time.Minute}

	tests := []struct {
		name   string
		revs   []history.Revision
		groups int
	}{
		{
			name:   "different comments within any-comment threshold merge",
			revs:   []history.Revision{rev("A", 0, "ann", "one"), rev("B", 20*time.Second, "ann", "two")},
			groups: 1,
		},
		{
			name:   "same comment beyond any-comment but within same-comment threshold merge",
			revs:   []history.Revision{rev("A", 0, "ann", "fix"), rev("B", 5*time.Minute, "ann", "fix")},
			groups: 1,
		},
		{
			name:   "different comments beyond any-comment threshold split",
			revs:   []history.Revision{rev("A", 0, "ann", "one"), rev("B", 5*time.Minute, "ann", "two")},
			groups: 2,
		},
		{
			name:   "same comment beyond same-comment threshold split",
			revs:   []history.Revision{rev("A", 0, "ann", "fix"), rev("B", 11*time.Minute, "ann", "fix")},
			groups: 2,
		},
		{
			name:   "different users always split",
			revs:   []history.Revision{rev("A", 0, "ann", "fix"), rev("B", 0, "bob", "fix")},
			groups: 2,
		},
		{
			name: "gap is measured from the last revision",
			revs: []history.Revision{
				rev("A", 0, "ann", ""),
				rev("B", 25*time.Second, "ann", ""),
				rev("C", 50*time.Second, "ann", ""),
			},
			groups: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, Build(tt.revs, opts), tt.groups)
		})
	}
}

func TestBuild_ZeroThresholdsNeverMerge(t *testing.T) {
	revs := []history.Revision{rev("A", 0, "ann", "fix"), rev("B", 0, "ann", "fix")}
	require.Len(t, Build(revs, Options{}), 2)
}

// The two thresholds are independent: a same-comment window smaller than the
// any-comment window neither caps nor replaces it.
func TestBuild_ThresholdsAreIndependent(t *testing.T) {
	opts := Options{AnyCommentThreshold: 10 * time.Minute, SameCommentThreshold: time.Minute}

	revs := []history.Revision{rev("A", 0, "ann", "same"), rev("B", 5*time.Minute, "ann", "same")}
	require.Len(t, Build(revs, opts), 1)

	opts = Options{AnyCommentThreshold: 0, SameCommentThreshold: time.Hour}
	revs = []history.Revision{rev("A", 0, "ann", "same"), rev("B", 30*time.Minute, "ann", "same")}
	require.Len(t, Build(revs, opts), 1)
	revs = []history.Revision{rev("A", 0, "ann", "same"), rev("B", 0, "ann", "different")}
	require.Len(t, Build(revs, opts), 2)
}

func TestBuild_RepresentativeComment(t *testing.T) {
	revs := []history.Revision{
		rev("A", 0, "ann", ""),
		rev("B", time.Second, "ann", "the real comment"),
		rev("C", 2*time.Second, "ann", "another"),
	}

	changesets := Build(revs, Options{AnyCommentThreshold: time.Minute})
	require.Len(t, changesets, 1)
	require.Equal(t, "the real comment", changesets[0].Comment)
	require.Equal(t, epoch, changesets[0].Time)
}
