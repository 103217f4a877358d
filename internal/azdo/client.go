// Package azdo is a typed client for the work-item tracking REST API of an
// Azure DevOps style platform.
package azdo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultAPIVersion  = "5.1"
	commentsAPIVersion = "5.1-preview.3"
	versionsAPIVersion = "5.1-preview.1"
)

// Client talks to one organization (or on-premise collection) base URL.
type Client struct {
	baseURL    string
	pat        string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithPAT sets the personal access token used for basic auth.
func WithPAT(pat string) Option {
	return func(c *Client) { c.pat = pat }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the given base URL
// (e.g. "https://dev.azure.com/myorg").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the organization base URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx answer from the platform.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// GetUpdates fetches one page of the updates feed, skipping the first skip
// entries. An empty page signals the end of the feed.
func (c *Client) GetUpdates(ctx context.Context, project string, itemID, skip int) ([]Update, error) {
	params := url.Values{}
	params.Set("api-version", defaultAPIVersion)
	if skip > 0 {
		params.Set("$skip", strconv.Itoa(skip))
	}
	var page valueList[Update]
	path := fmt.Sprintf("/%s/_apis/wit/workItems/%d/updates", url.PathEscape(project), itemID)
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// GetAllUpdates pages through the whole updates feed. The platform caps a
// page at around 200 entries, so keep requesting until a page comes back
// empty.
func (c *Client) GetAllUpdates(ctx context.Context, project string, itemID int) ([]Update, error) {
	var all []Update
	for {
		batch, err := c.GetUpdates(ctx, project, itemID, len(all))
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return all, nil
		}
		all = append(all, batch...)
	}
}

// GetComments fetches one page of the comments feed, including deleted
// comments. A response without a continuation token signals the end.
func (c *Client) GetComments(ctx context.Context, project string, itemID int, continuationToken string) ([]Comment, string, error) {
	params := url.Values{}
	params.Set("api-version", commentsAPIVersion)
	params.Set("$expand", "none")
	params.Set("includeDeleted", "true")
	if continuationToken != "" {
		params.Set("continuationToken", continuationToken)
	}
	var page commentList
	path := fmt.Sprintf("/%s/_apis/wit/workItems/%d/comments", url.PathEscape(project), itemID)
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, "", err
	}
	return page.Comments, page.ContinuationToken, nil
}

// GetCommentVersions fetches all versions of one comment.
func (c *Client) GetCommentVersions(ctx context.Context, project string, itemID, commentID int) ([]CommentVersion, error) {
	params := url.Values{}
	params.Set("api-version", versionsAPIVersion)
	var page valueList[CommentVersion]
	path := fmt.Sprintf("/%s/_apis/wit/workItems/%d/comments/%d/versions", url.PathEscape(project), itemID, commentID)
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// GetCommentsWithHistory fetches every comment of the item and attaches its
// full version list. Version lists are only requested for comments that
// have more than one version; the requests run concurrently and are joined.
func (c *Client) GetCommentsWithHistory(ctx context.Context, project string, itemID int) ([]CommentWithHistory, error) {
	var comments []Comment
	token := ""
	for {
		batch, next, err := c.GetComments(ctx, project, itemID, token)
		if err != nil {
			return nil, err
		}
		comments = append(comments, batch...)
		if next == "" {
			break
		}
		token = next
	}

	out := make([]CommentWithHistory, len(comments))
	g, gctx := errgroup.WithContext(ctx)
	for i, cm := range comments {
		i, cm := i, cm
		out[i].Comment = cm
		if cm.Version > 1 && cm.ID != 0 {
			g.Go(func() error {
				versions, err := c.GetCommentVersions(gctx, project, itemID, cm.ID)
				if err != nil {
					return err
				}
				out[i].Versions = versions
				return nil
			})
		} else {
			out[i].Versions = []CommentVersion{cm.CommentVersion}
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFields returns the field metadata of the project keyed by reference
// name.
func (c *Client) GetFields(ctx context.Context, project string) (map[string]WorkItemField, error) {
	params := url.Values{}
	params.Set("api-version", defaultAPIVersion)
	var page valueList[WorkItemField]
	path := fmt.Sprintf("/%s/_apis/wit/fields", url.PathEscape(project))
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	fields := make(map[string]WorkItemField, len(page.Value))
	for _, f := range page.Value {
		fields[f.ReferenceName] = f
	}
	return fields, nil
}

// GetProject resolves a project id or name.
func (c *Client) GetProject(ctx context.Context, project string) (*Project, error) {
	params := url.Values{}
	params.Set("api-version", defaultAPIVersion)
	var p Project
	if err := c.get(ctx, "/_apis/projects/"+url.PathEscape(project), params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.pat != "" {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+c.pat)))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
