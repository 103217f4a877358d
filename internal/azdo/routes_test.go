package azdo

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memCache struct {
	mu   sync.Mutex
	data map[string]string
	gets int
	sets int
}

func (m *memCache) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value
	return nil
}

func newTestRoutes(cache Cache) *RouteService {
	return NewRouteService("https://host/coll", cache, time.Hour, zap.NewNop())
}

func TestRouteURLBestMatch(t *testing.T) {
	s := newTestRoutes(nil)
	u, err := s.RouteURL(context.Background(), "ms.vss-code-web.commit-route", map[string]string{
		"project":              "proj",
		"vc.GitRepositoryName": "repo",
		"parameters":           "abc123",
	})
	if err != nil {
		t.Fatal(err)
	}
	// The {team} and {reviewMode} variants cannot be filled, so the plain
	// project-level template wins.
	if u != "https://host/coll/proj/_git/repo/commit/abc123" {
		t.Errorf("url = %q", u)
	}
}

func TestRouteURLLeftoverValuesBecomeQuery(t *testing.T) {
	s := newTestRoutes(nil)
	u, err := s.RouteURL(context.Background(), "ms.vss-build-web.ci-results-hub-route", map[string]string{
		"project": "proj",
		"buildId": "5",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u != "https://host/coll/proj/_build/results?buildId=5" {
		t.Errorf("url = %q", u)
	}
}

func TestRouteURLWildcardKeepsSlashes(t *testing.T) {
	s := newTestRoutes(nil)
	u, err := s.RouteURL(context.Background(), "ms.vss-wiki-web.wiki-overview-nwp-route2", map[string]string{
		"project":        "proj",
		"wikiIdentifier": "wiki/id",
		"pagePath":       "/My Pa%2Dge",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u, "/_wiki/wikis/wiki/id?") {
		t.Errorf("wildcard segment mangled: %q", u)
	}
	// pagePath is not part of the template; it must be query-escaped as-is,
	// so the pre-encoded %2D arrives doubly encoded.
	if !strings.Contains(u, "pagePath=%2FMy+Pa%252Dge") {
		t.Errorf("pagePath not escaped raw: %q", u)
	}
}

func TestRouteURLVersionQuery(t *testing.T) {
	s := newTestRoutes(nil)
	u, err := s.RouteURL(context.Background(), "ms.vss-code-web.files-route-git", map[string]string{
		"project":              "proj",
		"vc.GitRepositoryName": "repo",
		"version":              "GBmain",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u != "https://host/coll/proj/_git/repo?version=GBmain" {
		t.Errorf("url = %q", u)
	}
}

func TestRouteURLUnknownRoute(t *testing.T) {
	s := newTestRoutes(nil)
	if _, err := s.RouteURL(context.Background(), "no.such.route", nil); err == nil {
		t.Error("expected error for unknown route id")
	}
}

func TestRouteURLNoFillableTemplate(t *testing.T) {
	s := newTestRoutes(nil)
	if _, err := s.RouteURL(context.Background(), "ms.vss-code-web.commit-route", map[string]string{
		"parameters": "abc",
	}); err == nil {
		t.Error("expected error when no template can be filled")
	}
}

func TestRouteURLMemoized(t *testing.T) {
	cache := &memCache{}
	s := newTestRoutes(cache)
	values := map[string]string{"project": "proj", "buildId": "5"}

	first, err := s.RouteURL(context.Background(), "ms.vss-build-web.ci-results-hub-route", values)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.RouteURL(context.Background(), "ms.vss-build-web.ci-results-hub-route", values)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("memoized url differs: %q vs %q", first, second)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}
