package history

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/history-diff-service/internal/artifact"
	"github.com/spec-kit/history-diff-service/internal/azdo"
)

type stubRoutes struct{}

func (stubRoutes) RouteURL(_ context.Context, routeID string, _ map[string]string) (string, error) {
	return "https://host/" + routeID, nil
}

var testFields = map[string]azdo.WorkItemField{
	"System.Title":       {ReferenceName: "System.Title", Name: "Title", Type: "string"},
	"System.Description": {ReferenceName: "System.Description", Name: "Description", Type: "html"},
	"System.AssignedTo":  {ReferenceName: "System.AssignedTo", Name: "Assigned To", Type: "string", IsIdentity: true},
	"System.ChangedDate": {ReferenceName: "System.ChangedDate", Name: "Changed Date", Type: "dateTime"},
	"Custom.Due":         {ReferenceName: "Custom.Due", Name: "Due Date", Type: "dateTime"},
	"Custom.Effort":      {ReferenceName: "Custom.Effort", Name: "Effort", Type: "double"},
	"Microsoft.VSTS.TCM.Steps": {ReferenceName: "Microsoft.VSTS.TCM.Steps", Name: "Steps", Type: "html"},
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	links := artifact.NewResolver(stubRoutes{}, zap.NewNop())
	return NewNormalizer(testFields, "Proj", links, zap.NewNop())
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestNormalizeSkipsNoiseAndUnknownFields(t *testing.T) {
	n := newTestNormalizer(t)
	updates := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{{
		ID: 3,
		Fields: map[string]azdo.FieldChange{
			"System.Rev":                  {OldValue: raw("1"), NewValue: raw("2")},
			"System.AreaLevel2":           {NewValue: raw(`"x"`)},
			"System.IterationLevel1":      {NewValue: raw(`"x"`)},
			"WEF_ABC123_Kanban.Column":    {NewValue: raw(`"Doing"`)},
			"Custom.NotInMetadata":        {NewValue: raw(`"y"`)},
			"System.Title":                {OldValue: raw(`"old"`), NewValue: raw(`"new"`)},
		},
	}})
	if len(updates) != 1 {
		t.Fatalf("got %d updates", len(updates))
	}
	rows := updates[0].Rows
	if len(rows) != 1 || rows[0].Label != "Title" {
		t.Fatalf("rows = %+v, want only Title", rows)
	}
}

func TestNormalizeChangedDateFallback(t *testing.T) {
	n := newTestNormalizer(t)
	changed := time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)
	sentinel := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

	withField := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{{
		ID:          1,
		RevisedDate: sentinel,
		Fields: map[string]azdo.FieldChange{
			"System.ChangedDate": {NewValue: raw(`"2024-05-14T09:00:00Z"`)},
		},
	}})
	if !withField[0].Timestamp.Equal(changed) {
		t.Errorf("Timestamp = %v, want the System.ChangedDate value", withField[0].Timestamp)
	}

	relationOnly := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{{
		ID:          2,
		RevisedDate: changed,
	}})
	if !relationOnly[0].Timestamp.Equal(changed) {
		t.Errorf("Timestamp = %v, want revisedDate fallback", relationOnly[0].Timestamp)
	}
}

func TestNormalizeIteratesNewestFirst(t *testing.T) {
	n := newTestNormalizer(t)
	updates := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{
		{ID: 1, RevisedDate: mergeBase},
		{ID: 2, RevisedDate: mergeBase.Add(time.Minute)},
	})
	if updates[0].SourceID != "2" || updates[1].SourceID != "1" {
		t.Errorf("order = %q, %q", updates[0].SourceID, updates[1].SourceID)
	}
}

func TestDiffFieldScalarPresence(t *testing.T) {
	n := newTestNormalizer(t)
	field := testFields["Custom.Effort"]

	both := n.diffField(field, azdo.FieldChange{OldValue: raw("3"), NewValue: raw("5.5")})
	if both != `<del class="diffCls">3</del><ins class="diffCls">5.5</ins>` {
		t.Errorf("both = %q", both)
	}
	onlyNew := n.diffField(field, azdo.FieldChange{NewValue: raw("5.5")})
	if onlyNew != `<ins class="diffCls">5.5</ins>` {
		t.Errorf("onlyNew = %q", onlyNew)
	}
	onlyOld := n.diffField(field, azdo.FieldChange{OldValue: raw("3")})
	if onlyOld != `<del class="diffCls">3</del>` {
		t.Errorf("onlyOld = %q", onlyOld)
	}
	if n.diffField(field, azdo.FieldChange{}) != "" {
		t.Error("absent values must render nothing")
	}
}

func TestDiffFieldUnsupported(t *testing.T) {
	n := newTestNormalizer(t)
	got := n.diffField(testFields["Microsoft.VSTS.TCM.Steps"], azdo.FieldChange{
		OldValue: raw(`"<steps>1</steps>"`), NewValue: raw(`"<steps>2</steps>"`),
	})
	if got != "(Showing the diff of test case steps is not supported.)" {
		t.Errorf("got %q", got)
	}
}

func TestDiffFieldIdentity(t *testing.T) {
	n := newTestNormalizer(t)
	got := n.diffField(testFields["System.AssignedTo"], azdo.FieldChange{
		OldValue: raw(`{"displayName":"Old Person","descriptor":"d1"}`),
		NewValue: raw(`{"displayName":"New Person","descriptor":"d2","_links":{"avatar":{"href":"http://a/img"}}}`),
	})
	if !strings.Contains(got, `<del class="diffCls">Old Person</del>`) {
		t.Errorf("old identity missing: %q", got)
	}
	if !strings.Contains(got, `<img src="http://a/img"`) || !strings.Contains(got, "New Person") {
		t.Errorf("new identity missing avatar or name: %q", got)
	}
}

func TestDiffFieldIdentityMissingName(t *testing.T) {
	n := newTestNormalizer(t)
	got := n.diffField(testFields["System.AssignedTo"], azdo.FieldChange{NewValue: raw(`{}`)})
	if !strings.Contains(got, "UNKNOWN NAME") {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeHyperlinkRelation(t *testing.T) {
	n := newTestNormalizer(t)
	updates := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{{
		ID:          5,
		RevisedDate: mergeBase,
		Relations: &azdo.RelationChanges{
			Added: []azdo.Relation{{
				Rel:        "Hyperlink",
				URL:        "https://example.com/x",
				Attributes: azdo.RelationAttributes{Comment: "see <this>"},
			}},
		},
	}})
	rows := updates[0].Rows
	if len(rows) != 1 || rows[0].Label != "Link added: Hyperlink" {
		t.Fatalf("rows = %+v", rows)
	}
	if !strings.Contains(rows[0].HTML, `<ins class="diffCls"><a href="https://example.com/x"`) {
		t.Errorf("HTML = %q", rows[0].HTML)
	}
	if !strings.Contains(rows[0].HTML, "Newest link comment:") ||
		!strings.Contains(rows[0].HTML, "see &lt;this&gt;") {
		t.Errorf("link comment missing or unescaped: %q", rows[0].HTML)
	}
}

func TestNormalizeWorkItemRelation(t *testing.T) {
	n := newTestNormalizer(t)
	updates := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{{
		ID:          6,
		RevisedDate: mergeBase,
		Relations: &azdo.RelationChanges{
			Removed: []azdo.Relation{{
				Rel:        "System.LinkTypes.Related",
				URL:        "http://host/coll/guid/_apis/wit/workItems/42",
				Attributes: azdo.RelationAttributes{Name: "Related"},
			}},
		},
	}})
	row := updates[0].Rows[0]
	if row.Label != "Link removed: Related" {
		t.Errorf("Label = %q", row.Label)
	}
	if !strings.Contains(row.HTML, `href="http://host/coll/guid/_workitems/edit/42"`) {
		t.Errorf("edit URL not rewritten: %q", row.HTML)
	}
	if !strings.Contains(row.HTML, "Work item #42") {
		t.Errorf("link name wrong: %q", row.HTML)
	}
	if !strings.HasPrefix(row.HTML, `<del class="diffCls">`) {
		t.Errorf("removed link not marked as deletion: %q", row.HTML)
	}
}

func TestNormalizeArtifactRelationFallsBackToRawURI(t *testing.T) {
	n := newTestNormalizer(t)
	updates := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{{
		ID:          7,
		RevisedDate: mergeBase,
		Relations: &azdo.RelationChanges{
			Added: []azdo.Relation{{
				Rel:        "ArtifactLink",
				URL:        "vstfs:///GitHub/Commit/abc%2Fdef",
				Attributes: azdo.RelationAttributes{Name: "Fixed in Commit"},
			}},
		},
	}})
	row := updates[0].Rows[0]
	if row.Label != "Link added: Fixed in Commit" {
		t.Errorf("Label = %q", row.Label)
	}
	if !strings.Contains(row.HTML, "vstfs:&#x2F;&#x2F;&#x2F;GitHub") {
		t.Errorf("raw URI not shown escaped: %q", row.HTML)
	}
}

func TestNormalizeAttachmentRelation(t *testing.T) {
	n := newTestNormalizer(t)
	updates := n.NormalizeRevisionUpdates(context.Background(), []azdo.Update{{
		ID:          8,
		RevisedDate: mergeBase,
		Relations: &azdo.RelationChanges{
			Added: []azdo.Relation{{
				Rel:        "AttachedFile",
				URL:        "http://host/_apis/wit/attachments/guid",
				Attributes: azdo.RelationAttributes{Name: "log file.txt"},
			}},
		},
	}})
	row := updates[0].Rows[0]
	if row.Label != "Link added: Attachment" {
		t.Errorf("Label = %q", row.Label)
	}
	if !strings.Contains(row.HTML, "?fileName=log+file.txt&download=true") {
		t.Errorf("download URL wrong: %q", row.HTML)
	}
}
