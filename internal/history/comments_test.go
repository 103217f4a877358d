package history

import (
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/domain"
)

func TestCommentUpdatesActions(t *testing.T) {
	t0 := time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)
	comments := []azdo.CommentWithHistory{{
		Comment: azdo.Comment{ID: 1},
		// Deliberately out of order; versions are sorted before diffing.
		Versions: []azdo.CommentVersion{
			{Version: 2, Text: "<p>second</p>", ModifiedDate: t0.Add(time.Minute)},
			{Version: 1, Text: "<p>first</p>", ModifiedDate: t0},
			{Version: 3, IsDeleted: true, ModifiedDate: t0.Add(2 * time.Minute)},
		},
	}}

	updates := CommentUpdates(comments)
	if len(updates) != 3 {
		t.Fatalf("got %d updates, want 3", len(updates))
	}

	wantLabels := []string{"Comment created", "Comment edited", "Comment deleted"}
	for i, want := range wantLabels {
		if updates[i].Rows[0].Label != want {
			t.Errorf("updates[%d] label = %q, want %q", i, updates[i].Rows[0].Label, want)
		}
		if updates[i].SourceID != domain.CommentSourceID {
			t.Errorf("updates[%d] SourceID = %q", i, updates[i].SourceID)
		}
	}

	// Creation is a pure insertion.
	if !strings.Contains(updates[0].Rows[0].HTML, "<ins") || strings.Contains(updates[0].Rows[0].HTML, "<del") {
		t.Errorf("created diff = %q", updates[0].Rows[0].HTML)
	}
	// Deletion diffs against empty text, so everything is removed.
	if !strings.Contains(updates[2].Rows[0].HTML, "<del") || strings.Contains(updates[2].Rows[0].HTML, "<ins") {
		t.Errorf("deleted diff = %q", updates[2].Rows[0].HTML)
	}
}

func TestCommentUpdatesSingleVersion(t *testing.T) {
	updates := CommentUpdates([]azdo.CommentWithHistory{{
		Comment:  azdo.Comment{ID: 2},
		Versions: []azdo.CommentVersion{{Version: 1, Text: "hello"}},
	}})
	if len(updates) != 1 || updates[0].Rows[0].Label != "Comment created" {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestCommentUpdatesEmptyVersions(t *testing.T) {
	if got := CommentUpdates([]azdo.CommentWithHistory{{Comment: azdo.Comment{ID: 3}}}); len(got) != 0 {
		t.Fatalf("got %d updates for empty version list", len(got))
	}
}
