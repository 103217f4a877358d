// Package artifact resolves opaque artifact-link URIs (vstfs:///...) into
// display names and navigable URLs.
package artifact

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// RouteResolver turns a route id plus route values into a navigable URL.
// Values not present in the chosen route template are appended as query
// parameters.
type RouteResolver interface {
	RouteURL(ctx context.Context, routeID string, routeValues map[string]string) (string, error)
}

// Resolved is the outcome of a successful artifact-link resolution.
type Resolved struct {
	DisplayText string
	URL         string
	ExtraLabel  string
}

// Key identifies one artifact grammar by its tool and type components.
type Key struct {
	Tool string
	Type string
}

type parserFunc func(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error)

// Resolver dispatches vstfs links to per-type parsers.
type Resolver struct {
	routes  RouteResolver
	logger  *zap.Logger
	parsers map[Key]parserFunc
}

func NewResolver(routes RouteResolver, logger *zap.Logger) *Resolver {
	r := &Resolver{routes: routes, logger: logger}
	r.parsers = map[Key]parserFunc{
		{"Git", "Commit"}:                           parseGitCommit,
		{"Git", "Ref"}:                              parseGitRef,
		{"Git", "PullRequestId"}:                    parseGitPullRequest,
		{"VersionControl", "Changeset"}:             parseChangeset,
		{"VersionControl", "VersionedItem"}:         parseVersionedItem,
		{"Build", "Build"}:                          parseBuild,
		{"Wiki", "WikiPage"}:                        parseWikiPage,
		{"Requirements", "Storyboard"}:              parseStoryboard,
		{"TestManagement", "TcmResult"}:             parseTcmResult,
		{"TestManagement", "TcmResultAttachment"}:   parseTcmResultAttachment,
		{"TestManagement", "TcmTest"}:               parseTcmTest,
	}
	return r
}

var vstfsRe = regexp.MustCompile(`^vstfs:///(.*)/(.*)/(.*)$`)

// Resolve parses rawURI and returns a display name plus URL, or nil when the
// link cannot be resolved. Resolution failures never abort a render; the
// caller falls back to showing the raw URI text.
func (r *Resolver) Resolve(ctx context.Context, project, rawURI string) *Resolved {
	m := vstfsRe.FindStringSubmatch(rawURI)
	if m == nil {
		return nil
	}
	tool, typ, artifactID := m[1], m[2], m[3]

	parse, ok := r.parsers[Key{Tool: tool, Type: typ}]
	if !ok {
		// GitHub and ReleaseManagement artifacts have no public resolution
		// API; show the raw link text.
		return nil
	}
	res, err := parse(ctx, r, project, rawURI, artifactID)
	if err != nil {
		r.logger.Warn("artifact link not resolvable",
			zap.String("uri", rawURI), zap.Error(err))
		return nil
	}
	return res
}

// SplitWithRemainder splits s on sep (case-insensitively) into at most limit
// parts; the last part keeps any further separator occurrences unsplit. A
// negative limit splits fully.
func SplitWithRemainder(s, sep string, limit int) []string {
	if limit == 0 {
		return nil
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(sep))
	full := re.Split(s, -1)
	if limit < 0 || limit >= len(full) {
		return full
	}
	out := append([]string(nil), full[:limit-1]...)
	return append(out, strings.Join(full[limit-1:], sep))
}

// splitArtifactID splits an artifact id on its %2F delimiters and decodes
// each component exactly once, so URL construction can re-encode them.
func splitArtifactID(artifactID string, numComponents int) ([]string, error) {
	parts := SplitWithRemainder(artifactID, "%2F", numComponents)
	out := make([]string, len(parts))
	for i, p := range parts {
		dec, err := url.PathUnescape(p)
		if err != nil {
			return nil, fmt.Errorf("decode component %d: %w", i, err)
		}
		out[i] = dec
	}
	return out, nil
}

func parseGitCommit(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	details, err := splitArtifactID(artifactID, 3)
	if err != nil {
		return nil, err
	}
	if len(details) != 3 {
		return nil, fmt.Errorf("commit id has %d components", len(details))
	}
	projectGUID, repositoryID, commitID := details[0], details[1], details[2]
	u, err := r.routes.RouteURL(ctx, "ms.vss-code-web.commit-route", map[string]string{
		"project":              projectGUID,
		"vc.GitRepositoryName": repositoryID,
		"parameters":           commitID,
	})
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: commitID, URL: u}, nil
}

func parseGitRef(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	details, err := splitArtifactID(artifactID, 3)
	if err != nil {
		return nil, err
	}
	if len(details) != 3 {
		return nil, fmt.Errorf("ref id has %d components", len(details))
	}
	projectGUID, repositoryID, refWithPrefix := details[0], details[1], details[2]

	// Branch, tag and commit refs carry a two-letter prefix.
	var refType string
	switch {
	case strings.HasPrefix(refWithPrefix, "GB"):
		refType = "Branch"
	case strings.HasPrefix(refWithPrefix, "GT"):
		refType = "Tag"
	case strings.HasPrefix(refWithPrefix, "GC"):
		refType = "Commit"
	default:
		return nil, fmt.Errorf("unknown ref prefix in %q", refWithPrefix)
	}

	u, err := r.routes.RouteURL(ctx, "ms.vss-code-web.files-route-git", map[string]string{
		"project":              projectGUID,
		"vc.GitRepositoryName": repositoryID,
		"version":              refWithPrefix,
	})
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: refWithPrefix[2:], URL: u, ExtraLabel: refType}, nil
}

func parseGitPullRequest(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	details, err := splitArtifactID(artifactID, 3)
	if err != nil {
		return nil, err
	}
	if len(details) != 3 {
		return nil, fmt.Errorf("pull request id has %d components", len(details))
	}
	projectGUID, repositoryID, pullRequestID := details[0], details[1], details[2]
	u, err := r.routes.RouteURL(ctx, "ms.vss-code-web.pull-request-review-route", map[string]string{
		"project":              projectGUID,
		"vc.GitRepositoryName": repositoryID,
		"parameters":           pullRequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: pullRequestID, URL: u}, nil
}

func parseChangeset(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	// The link does not name the changeset's own project; changeset ids are
	// unique across projects so the current project still yields a valid URL.
	u, err := r.routes.RouteURL(ctx, "ms.vss-code-web.changeset-route", map[string]string{
		"project":    project,
		"parameters": artifactID,
	})
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: artifactID, URL: u}, nil
}

func parseVersionedItem(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	// The id is doubly encoded: two decodes expose the '&'-separated
	// arguments, then each path component still carries one encoding layer.
	once, err := url.PathUnescape(artifactID)
	if err != nil {
		return nil, err
	}
	twice, err := url.PathUnescape(once)
	if err != nil {
		return nil, err
	}
	pathAndArgs := strings.Split(twice, "&")

	details, err := splitArtifactID(pathAndArgs[0], 3)
	if err != nil {
		return nil, err
	}
	if len(details) != 3 {
		return nil, fmt.Errorf("versioned item path has %d components", len(details))
	}
	filePath := details[2]

	var changesetVersion string
	for _, arg := range pathAndArgs[1:] {
		if v, ok := strings.CutPrefix(arg, "changesetVersion="); ok {
			changesetVersion = v
			break
		}
	}

	u, err := r.routes.RouteURL(ctx, "ms.vss-code-web.files-route-tfvc", map[string]string{
		"project": details[1],
		"path":    filePath,
		"version": changesetVersion,
	})
	if err != nil {
		return nil, err
	}

	// 'T' marks the tip version.
	extra := "Changeset " + changesetVersion
	if changesetVersion == "T" {
		extra = "Latest changeset"
	}
	return &Resolved{DisplayText: filePath, URL: u, ExtraLabel: extra}, nil
}

func parseBuild(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	u, err := r.routes.RouteURL(ctx, "ms.vss-build-web.ci-results-hub-route", map[string]string{
		"project": project,
		"buildId": artifactID,
	})
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: artifactID, URL: u}, nil
}

func parseWikiPage(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	details, err := splitArtifactID(artifactID, 3)
	if err != nil {
		return nil, err
	}
	if len(details) != 3 {
		return nil, fmt.Errorf("wiki page id has %d components", len(details))
	}
	projectGUID, wikiID, pagePath := details[0], details[1], details[2]
	if pagePath == "" {
		return nil, fmt.Errorf("empty wiki page path")
	}

	// The wiki hub only parses page paths when '-' arrives doubly encoded
	// and the path starts with a slash.
	normalized := strings.ReplaceAll(pagePath, "-", "%2D")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}

	u, err := r.routes.RouteURL(ctx, "ms.vss-wiki-web.wiki-overview-nwp-route2", map[string]string{
		"project":        projectGUID,
		"wikiIdentifier": wikiID,
		"pagePath":       normalized,
	})
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: pagePath, URL: u}, nil
}

func parseStoryboard(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	// A storyboard link is a plain hyperlink with an encoded target URL.
	target, err := url.PathUnescape(artifactID)
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: target, URL: target}, nil
}

func parseTcmResult(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	details := strings.Split(artifactID, ".")
	if len(details) != 2 {
		return nil, fmt.Errorf("test result id has %d components", len(details))
	}
	runID, resultID := details[0], details[1]
	u, err := r.routes.RouteURL(ctx, "ms.vss-test-web.test-runs-route", map[string]string{
		"project":  project,
		"_a":       "resultSummary",
		"runId":    runID,
		"resultId": resultID,
	})
	if err != nil {
		return nil, err
	}
	return &Resolved{DisplayText: fmt.Sprintf("Test run %s, test result %s", runID, resultID), URL: u}, nil
}

func parseTcmResultAttachment(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	// No route template exists for result attachments; derive the host and
	// collection part from the runs route and build the download URL by hand.
	runsURL, err := r.routes.RouteURL(ctx, "ms.vss-test-web.test-runs-route", map[string]string{
		"project": project,
	})
	if err != nil {
		return nil, err
	}
	const runsSuffix = "/_testManagement/runs"
	if !strings.HasSuffix(runsURL, runsSuffix) {
		return nil, fmt.Errorf("unexpected runs route %q", runsURL)
	}
	base := runsURL[:len(runsURL)-len(runsSuffix)+1]
	full := base + "_api/_testManagement/downloadTcmAttachment?testResultAttachmentUri=" + url.QueryEscape(rawURI)
	return &Resolved{DisplayText: "Attachment " + artifactID, URL: full}, nil
}

func parseTcmTest(ctx context.Context, r *Resolver, project, rawURI, artifactID string) (*Resolved, error) {
	// There is no known mapping from a testcase reference id to a run and
	// result pair, so the label is shown without a hyperlink.
	return &Resolved{DisplayText: "Testcase reference ID " + artifactID}, nil
}
