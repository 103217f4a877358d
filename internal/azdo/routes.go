package azdo

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cache memoizes resolved route URLs. Implemented by the Redis wrapper; a
// nil cache disables memoization.
type Cache interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// routeTemplates maps a route id to its candidate templates. Placeholders
// use {name}; {*name} is a wildcard placeholder whose value may contain
// slashes. Templates containing placeholders we never supply (like {team})
// simply never win the match.
var routeTemplates = map[string][]string{
	"ms.vss-code-web.commit-route": {
		"{project}/{team}/_git/{vc.GitRepositoryName}/commit/{parameters}/{reviewMode}",
		"{project}/{team}/_git/{vc.GitRepositoryName}/commit/{parameters}",
		"{project}/_git/{vc.GitRepositoryName}/commit/{parameters}/{reviewMode}",
		"{project}/_git/{vc.GitRepositoryName}/commit/{parameters}",
		"_git/{project}/commit/{parameters}/{reviewMode}",
		"_git/{project}/commit/{parameters}",
	},
	"ms.vss-code-web.files-route-git": {
		"{project}/{team}/_git/{vc.GitRepositoryName}",
		"{project}/_git/{vc.GitRepositoryName}",
		"_git/{project}",
	},
	"ms.vss-code-web.pull-request-review-route": {
		"{project}/{team}/_git/{vc.GitRepositoryName}/pullrequest/{parameters}",
		"{project}/_git/{vc.GitRepositoryName}/pullrequest/{parameters}",
		"_git/{project}/pullrequest/{parameters}",
	},
	"ms.vss-code-web.changeset-route": {
		"{project}/{team}/_versionControl/changeset/{parameters}/{reviewMode}",
		"{project}/{team}/_versionControl/changeset/{parameters}",
		"{project}/_versionControl/changeset/{parameters}/{reviewMode}",
		"{project}/_versionControl/changeset/{parameters}",
	},
	"ms.vss-code-web.files-route-tfvc": {
		"{project}/{team}/_versionControl",
		"{project}/_versionControl",
	},
	"ms.vss-build-web.ci-results-hub-route": {
		"{project}/{team}/_build/results",
		"{project}/_build/results",
	},
	"ms.vss-wiki-web.wiki-overview-nwp-route2": {
		"{project}/{team}/_wiki/wikis/{wikiIdentifier}/{pageId}/{*friendlyName}",
		"{project}/{team}/_wiki/wikis/{*wikiIdentifier}",
		"{project}/_wiki/wikis/{wikiIdentifier}/{pageId}/{*friendlyName}",
		"{project}/_wiki/wikis/{*wikiIdentifier}",
		"{project}/{team}/_wiki",
		"{project}/_wiki",
	},
	"ms.vss-test-web.test-runs-route": {
		"{project}/{team}/_testManagement/runs",
		"{project}/_testManagement/runs",
	},
}

var placeholderRe = regexp.MustCompile(`\{(\*?)([^{}]+)\}`)

// RouteService builds navigable URLs from route templates, the way the
// platform's own location service does: among the templates of a route id,
// the one with the highest number of filled placeholders wins, and values
// not consumed by the template become query parameters.
type RouteService struct {
	baseURL string
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
}

func NewRouteService(baseURL string, cache Cache, ttl time.Duration, logger *zap.Logger) *RouteService {
	return &RouteService{baseURL: strings.TrimRight(baseURL, "/"), cache: cache, ttl: ttl, logger: logger}
}

// RouteURL resolves routeID with the given values into an absolute URL.
func (s *RouteService) RouteURL(ctx context.Context, routeID string, values map[string]string) (string, error) {
	key := cacheKey(routeID, values)
	if s.cache != nil {
		if u, ok, err := s.cache.GetString(ctx, key); err == nil && ok {
			return u, nil
		} else if err != nil {
			s.logger.Warn("route cache read failed", zap.Error(err))
		}
	}

	templates, ok := routeTemplates[routeID]
	if !ok {
		return "", fmt.Errorf("unknown route id %q", routeID)
	}

	best := ""
	bestCount := -1
	for _, tpl := range templates {
		path, count, ok := fillTemplate(tpl, values)
		if ok && count > bestCount {
			best, bestCount = path, count
		}
	}
	if bestCount < 0 {
		return "", fmt.Errorf("no template of %q matches the given values", routeID)
	}

	used := usedPlaceholders(bestTemplateFor(routeID, bestCount, values))
	query := url.Values{}
	for k, v := range values {
		if !used[k] {
			query.Set(k, v)
		}
	}

	u := s.baseURL + "/" + best
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	if s.cache != nil {
		if err := s.cache.SetString(ctx, key, u, s.ttl); err != nil {
			s.logger.Warn("route cache write failed", zap.Error(err))
		}
	}
	return u, nil
}

// bestTemplateFor re-finds the winning template so its placeholder set can
// be excluded from the query string.
func bestTemplateFor(routeID string, bestCount int, values map[string]string) string {
	for _, tpl := range routeTemplates[routeID] {
		if _, count, ok := fillTemplate(tpl, values); ok && count == bestCount {
			return tpl
		}
	}
	return ""
}

func usedPlaceholders(tpl string) map[string]bool {
	used := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(tpl, -1) {
		used[m[2]] = true
	}
	return used
}

// fillTemplate substitutes values into tpl. It fails when a placeholder has
// no value. Wildcard placeholders keep their slashes; plain placeholders
// are fully escaped.
func fillTemplate(tpl string, values map[string]string) (string, int, bool) {
	count := 0
	ok := true
	path := placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		wildcard, name := sub[1] == "*", sub[2]
		v, have := values[name]
		if !have {
			ok = false
			return ""
		}
		count++
		if wildcard {
			return escapeKeepingSlashes(v)
		}
		return url.PathEscape(v)
	})
	if !ok {
		return "", 0, false
	}
	return path, count, true
}

func escapeKeepingSlashes(v string) string {
	segs := strings.Split(v, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func cacheKey(routeID string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("route:")
	b.WriteString(routeID)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values[k])
	}
	return b.String()
}
