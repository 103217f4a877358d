package history

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/history-diff-service/internal/domain"
)

func TestRenderSortsRowsAlphabetically(t *testing.T) {
	r := NewRenderer("en")
	u := fieldUpdate("4", "alice", mergeBase, "Title", "Assigned To", "Priority")
	blocks := r.Render([]*domain.Update{u})
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	var labels []string
	for _, c := range blocks[0].Cells {
		labels = append(labels, c.Label)
	}
	want := []string{"Assigned To", "Priority", "Title"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %v, want %v", labels, want)
	}
}

func TestRenderHeader(t *testing.T) {
	r := NewRenderer("en")
	u := fieldUpdate("4", "desc", mergeBase, "Title")
	u.Author.DisplayName = "Alice <Dev>"
	u.Author.AvatarURL = "http://a/img"
	blocks := r.Render([]*domain.Update{u})
	h := blocks[0].HeaderHTML
	if !strings.Contains(h, `<img src="http://a/img"`) {
		t.Errorf("avatar missing: %q", h)
	}
	if !strings.Contains(h, "<b>Alice &lt;Dev&gt;</b>") {
		t.Errorf("author name missing or unescaped: %q", h)
	}
	if !strings.Contains(h, "(update 4)") {
		t.Errorf("update id suffix missing: %q", h)
	}
}

func TestRenderCommentHeaderOmitsUpdateID(t *testing.T) {
	r := NewRenderer("en")
	u := commentUpdate("alice", mergeBase, "Comment created")
	h := r.Render([]*domain.Update{u})[0].HeaderHTML
	if strings.Contains(h, "(update") {
		t.Errorf("comment header must not carry an update id: %q", h)
	}
}

func TestRenderSystemAuthorStripped(t *testing.T) {
	r := NewRenderer("en")
	u := fieldUpdate("4", "desc", mergeBase, "Title")
	u.Author.DisplayName = "Microsoft.TeamFoundation.System <11111111-2222-3333-4444-555555555555>"
	h := r.Render([]*domain.Update{u})[0].HeaderHTML
	if !strings.Contains(h, "<b>Microsoft.TeamFoundation.System</b>") {
		t.Errorf("system author suffix not stripped: %q", h)
	}
}

func TestRenderZeroTimestamp(t *testing.T) {
	r := NewRenderer("en")
	u := fieldUpdate("5", "alice", time.Time{}, "Title")
	h := r.Render([]*domain.Update{u})[0].HeaderHTML
	if !strings.Contains(h, "an unknown date") {
		t.Errorf("zero timestamp not labeled: %q", h)
	}
}

func TestRenderSkipsEmptyUpdates(t *testing.T) {
	r := NewRenderer("en")
	blocks := r.Render([]*domain.Update{fieldUpdate("4", "alice", mergeBase)})
	if len(blocks) != 0 {
		t.Fatalf("got %d blocks for a rowless update", len(blocks))
	}
}

func TestRowLabels(t *testing.T) {
	r := NewRenderer("en")
	updates := []*domain.Update{
		fieldUpdate("1", "alice", mergeBase, "Title", "Priority"),
		fieldUpdate("2", "bob", mergeBase, "Title", "Assigned To"),
	}
	got := r.RowLabels(updates)
	want := []string{"Assigned To", "Priority", "Title"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RowLabels = %v, want %v", got, want)
	}
}
