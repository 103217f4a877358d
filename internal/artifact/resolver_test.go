package artifact

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeRoutes struct {
	urls map[string]string
}

func (f *fakeRoutes) RouteURL(_ context.Context, routeID string, values map[string]string) (string, error) {
	if u, ok := f.urls[routeID]; ok {
		return u, nil
	}
	// Deterministic synthetic URL: routeID plus sorted key=value pairs.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("https://host/" + routeID)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("|%s=%s", k, url.QueryEscape(values[k])))
	}
	return b.String(), nil
}

func newTestResolver() *Resolver {
	return NewResolver(&fakeRoutes{}, zap.NewNop())
}

func TestSplitWithRemainder(t *testing.T) {
	cases := []struct {
		s     string
		limit int
		want  []string
	}{
		{"a%2Fb%2Fc", 3, []string{"a", "b", "c"}},
		{"a%2Fb%2Fc%2Fd", 3, []string{"a", "b", "c%2Fd"}},
		{"a%2fb%2Fc%2fd", 3, []string{"a", "b", "c%2Fd"}},
		{"a%2Fb", 3, []string{"a", "b"}},
		{"abc", 3, []string{"abc"}},
		{"a%2Fb%2Fc", 0, nil},
		{"a%2Fb%2Fc%2Fd", -1, []string{"a", "b", "c", "d"}},
	}
	for _, c := range cases {
		got := SplitWithRemainder(c.s, "%2F", c.limit)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitWithRemainder(%q, %d) = %v, want %v", c.s, c.limit, got, c.want)
		}
	}
}

func TestResolveGitCommit(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve(context.Background(), "Proj",
		"vstfs:///Git/Commit/2d63f741-0ba0-4bc6-b730-896745fab2c0%2Fc0d1232d-66e9-4d5e-b5a0-50366bc67991%2F2054d8fcd16469d4398b2c73d9da828aaed98e41")
	if got == nil {
		t.Fatal("Resolve returned nil")
	}
	if got.DisplayText != "2054d8fcd16469d4398b2c73d9da828aaed98e41" {
		t.Errorf("DisplayText = %q", got.DisplayText)
	}
	if !strings.Contains(got.URL, "ms.vss-code-web.commit-route") {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestResolveGitRefPrefixes(t *testing.T) {
	r := newTestResolver()
	cases := []struct {
		ref       string
		wantName  string
		wantExtra string
	}{
		{"GBmain", "main", "Branch"},
		{"GTv1.0", "v1.0", "Tag"},
		{"GC055a2cd8", "055a2cd8", "Commit"},
	}
	for _, c := range cases {
		uri := "vstfs:///Git/Ref/proj%2Frepo%2F" + c.ref
		got := r.Resolve(context.Background(), "Proj", uri)
		if got == nil {
			t.Fatalf("Resolve(%q) returned nil", uri)
		}
		if got.DisplayText != c.wantName || got.ExtraLabel != c.wantExtra {
			t.Errorf("ref %q: got (%q, %q), want (%q, %q)",
				c.ref, got.DisplayText, got.ExtraLabel, c.wantName, c.wantExtra)
		}
	}
	if got := r.Resolve(context.Background(), "Proj", "vstfs:///Git/Ref/proj%2Frepo%2FXXother"); got != nil {
		t.Errorf("invalid ref prefix resolved to %+v", got)
	}
}

func TestResolveRefKeepsEmbeddedSlashes(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve(context.Background(), "Proj",
		"vstfs:///Git/Ref/proj%2Frepo%2FGBfeature%2Fsub%2Fbranch")
	if got == nil {
		t.Fatal("Resolve returned nil")
	}
	if got.DisplayText != "feature/sub/branch" {
		t.Errorf("DisplayText = %q, want %q", got.DisplayText, "feature/sub/branch")
	}
}

func TestResolveVersionedItem(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve(context.Background(), "TFVC Project",
		"vstfs:///VersionControl/VersionedItem/%252524%25252FTFVC%252520Project%25252FSome%252520folder%25252FFile%252520%252526%252520And.txt%2526changesetVersion%253DT%2526deletionId%253D0")
	if got == nil {
		t.Fatal("Resolve returned nil")
	}
	if got.DisplayText != "Some folder/File & And.txt" {
		t.Errorf("DisplayText = %q", got.DisplayText)
	}
	if got.ExtraLabel != "Latest changeset" {
		t.Errorf("ExtraLabel = %q", got.ExtraLabel)
	}
}

func TestResolveVersionedItemNumberedChangeset(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve(context.Background(), "TFVC Project",
		"vstfs:///VersionControl/VersionedItem/%252524%25252FTFVC%252520Project%25252FSomeFile.txt%2526changesetVersion%253D4%2526deletionId%253D0")
	if got == nil {
		t.Fatal("Resolve returned nil")
	}
	if got.ExtraLabel != "Changeset 4" {
		t.Errorf("ExtraLabel = %q", got.ExtraLabel)
	}
}

func TestResolveBuildAndChangeset(t *testing.T) {
	r := newTestResolver()
	b := r.Resolve(context.Background(), "Proj", "vstfs:///Build/Build/5")
	if b == nil || b.DisplayText != "5" {
		t.Fatalf("build resolve = %+v", b)
	}
	cs := r.Resolve(context.Background(), "Proj", "vstfs:///VersionControl/Changeset/3")
	if cs == nil || cs.DisplayText != "3" {
		t.Fatalf("changeset resolve = %+v", cs)
	}
}

func TestResolveWikiPage(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve(context.Background(), "Proj",
		"vstfs:///Wiki/WikiPage/2d63f741-0ba0-4bc6-b730-896745fab2c0%2F201005d4-3f97-4766-9b82-b69c89972e64%2FDifficult%20%2B%20Pa-ge%2FDifficult%20%2B%20SubPa-ge")
	if got == nil {
		t.Fatal("Resolve returned nil")
	}
	if got.DisplayText != "Difficult + Pa-ge/Difficult + SubPa-ge" {
		t.Errorf("DisplayText = %q", got.DisplayText)
	}
	// The page path must arrive at the route resolver with '-' re-encoded
	// and a leading slash, and survive the resolver's query escaping.
	if !strings.Contains(got.URL, url.QueryEscape("/Difficult + Pa%2Dge/Difficult + SubPa%2Dge")) {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestResolveStoryboard(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve(context.Background(), "Proj",
		"vstfs:///Requirements/Storyboard/https%3A%2F%2Fexample.com%2Fdeck.ppt")
	if got == nil {
		t.Fatal("Resolve returned nil")
	}
	if got.URL != "https://example.com/deck.ppt" || got.DisplayText != got.URL {
		t.Errorf("storyboard = %+v", got)
	}
}

func TestResolveTestManagement(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve(context.Background(), "Proj", "vstfs:///TestManagement/TcmResult/5.100000")
	if res == nil || res.DisplayText != "Test run 5, test result 100000" {
		t.Fatalf("TcmResult = %+v", res)
	}

	att := r.Resolve(context.Background(), "Proj", "vstfs:///TestManagement/TcmResultAttachment/3.100000.3")
	// The synthetic runs route does not end in /_testManagement/runs, so
	// attachment resolution must degrade to nil rather than fail loudly.
	if att != nil {
		t.Fatalf("TcmResultAttachment with bad base route = %+v", att)
	}

	rr := NewResolver(&fakeRoutes{urls: map[string]string{
		"ms.vss-test-web.test-runs-route": "https://host/coll/Proj/_testManagement/runs",
	}}, zap.NewNop())
	att = rr.Resolve(context.Background(), "Proj", "vstfs:///TestManagement/TcmResultAttachment/3.100000.3")
	if att == nil {
		t.Fatal("Resolve returned nil")
	}
	if att.DisplayText != "Attachment 3.100000.3" {
		t.Errorf("DisplayText = %q", att.DisplayText)
	}
	wantPrefix := "https://host/coll/Proj/_api/_testManagement/downloadTcmAttachment?testResultAttachmentUri="
	if !strings.HasPrefix(att.URL, wantPrefix) {
		t.Errorf("URL = %q", att.URL)
	}

	tc := r.Resolve(context.Background(), "Proj", "vstfs:///TestManagement/TcmTest/1")
	if tc == nil || tc.DisplayText != "Testcase reference ID 1" || tc.URL != "" {
		t.Fatalf("TcmTest = %+v", tc)
	}
}

func TestResolveUnknownToolOrMalformed(t *testing.T) {
	r := newTestResolver()
	if got := r.Resolve(context.Background(), "Proj", "vstfs:///GitHub/Commit/abc%2Fdef"); got != nil {
		t.Errorf("GitHub link resolved to %+v", got)
	}
	if got := r.Resolve(context.Background(), "Proj", "not a link at all"); got != nil {
		t.Errorf("malformed link resolved to %+v", got)
	}
	if got := r.Resolve(context.Background(), "Proj", "vstfs:///Git/Commit/only-one-part"); got != nil {
		t.Errorf("short commit id resolved to %+v", got)
	}
}
