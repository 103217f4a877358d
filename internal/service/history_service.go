package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/history-diff-service/internal/artifact"
	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/config"
	"github.com/spec-kit/history-diff-service/internal/cutout"
	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/history"
	"github.com/spec-kit/history-diff-service/internal/observability"
	apperrors "github.com/spec-kit/history-diff-service/pkg/util"
)

// ErrStale marks a load superseded by a newer reload of the same item.
// The result must be discarded, not shown.
var ErrStale = errors.New("load superseded by a newer reload")

// CellBlock is one rendered row plus its current cutout view.
type CellBlock struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	View  cutout.CellView `json:"view"`
}

// UpdateBlock is one rendered update: header plus rows.
type UpdateBlock struct {
	HeaderHTML string      `json:"headerHtml"`
	Cells      []CellBlock `json:"cells"`
}

// LoadResult is the response of a full pipeline run.
type LoadResult struct {
	SessionID  string
	Generation int64
	Blocks     []UpdateBlock
	RowLabels  []string
}

// RecomputeResult is the response of a viewport recompute. Superseded
// means a newer recompute arrived during the debounce window and this one
// did nothing.
type RecomputeResult struct {
	Superseded   bool
	Blocks       []UpdateBlock
	ScrollOffset float64
}

// HistoryService runs the full history pipeline: fetch, normalize, merge,
// filter, render, measure, cut out. It owns the render sessions the
// interactive operations address.
type HistoryService struct {
	client   *azdo.Client
	links    *artifact.Resolver
	sizer    cutout.ImageSizer
	sessions *SessionManager
	metrics  *observability.Metrics
	logger   *zap.Logger
	pipeline config.PipelineConfig
}

// NewHistoryService builds the service.
func NewHistoryService(
	client *azdo.Client,
	links *artifact.Resolver,
	sizer cutout.ImageSizer,
	sessions *SessionManager,
	metrics *observability.Metrics,
	logger *zap.Logger,
	pipeline config.PipelineConfig,
) *HistoryService {
	return &HistoryService{
		client:   client,
		links:    links,
		sizer:    sizer,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		pipeline: pipeline,
	}
}

// Sessions exposes the session manager for event-driven invalidation.
func (s *HistoryService) Sessions() *SessionManager {
	return s.sessions
}

// Load fetches an item's revision and comment history, runs the pipeline
// and opens a render session. A reload or save of the same item while the
// fetch is in flight supersedes the load (ErrStale).
func (s *HistoryService) Load(ctx context.Context, userID, project string, itemID int, cfg domain.UserConfig, vp Viewport) (*LoadResult, error) {
	gen := s.sessions.BeginLoad(project, itemID)

	var (
		fields   map[string]azdo.WorkItemField
		proj     *azdo.Project
		raw      []azdo.Update
		comments []azdo.CommentWithHistory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fields, err = s.client.GetFields(gctx, project)
		return err
	})
	g.Go(func() error {
		var err error
		proj, err = s.client.GetProject(gctx, project)
		return err
	})
	g.Go(func() error {
		var err error
		raw, err = s.client.GetAllUpdates(gctx, project, itemID)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.client.GetCommentsWithHistory(gctx, project, itemID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewUpstreamError(err)
	}

	normalizer := history.NewNormalizer(fields, proj.Name, s.links, s.logger)
	updates := normalizer.NormalizeRevisionUpdates(ctx, raw)
	updates = append(updates, history.CommentUpdates(comments)...)
	s.metrics.AddPipeline(observability.PipelineUpdatesNormalized, len(updates))

	before := len(updates)
	updates = history.Reconcile(updates)
	s.metrics.AddPipeline(observability.PipelineUpdatesMerged, before-len(updates))

	updates = history.NewFilter(cfg).Apply(updates)
	renderer := history.NewRenderer(s.pipeline.Locale)
	rendered := renderer.Render(updates)

	if !s.sessions.StillCurrent(project, itemID, gen) {
		s.metrics.AddPipeline(observability.PipelineStaleLoadsDropped, 1)
		return nil, ErrStale
	}

	sess := &Session{
		UserID:     userID,
		Project:    project,
		ItemID:     itemID,
		Generation: gen,
		Blocks:     rendered,
		Viewport:   effectiveViewport(cfg, vp, s.pipeline),
		Config:     cfg,
		ShowAll:    cfg.ShowUnchangedLines,
	}
	if err := s.computeCutouts(ctx, sess); err != nil {
		return nil, err
	}
	s.sessions.Create(sess)

	return &LoadResult{
		SessionID:  sess.ID,
		Generation: gen,
		Blocks:     s.materialize(sess),
		RowLabels:  renderer.RowLabels(updates),
	}, nil
}

// Recompute re-measures and re-cuts every cell for a new viewport. Bursts
// of resize requests are debounced per session; only the newest request in
// a burst does the work. The scroll offset is echoed back so the panel can
// restore its position after swapping content.
func (s *HistoryService) Recompute(ctx context.Context, sessionID string, vp Viewport, scrollOffset float64) (*RecomputeResult, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewNotFound("session", nil)
	}

	proceed, err := s.sessions.DebounceLatest(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !proceed {
		return &RecomputeResult{Superseded: true}, nil
	}

	sess.mu.Lock()
	sess.ScrollOffset = scrollOffset
	sess.Viewport = effectiveViewport(sess.Config, vp, s.pipeline)
	sess.mu.Unlock()

	if err := s.computeCutouts(ctx, sess); err != nil {
		return nil, err
	}
	s.metrics.AddPipeline(observability.PipelineRecomputes, 1)

	return &RecomputeResult{
		Blocks:       s.materialize(sess),
		ScrollOffset: scrollOffset,
	}, nil
}

// ExpandCell expands one cutout border of one cell and returns the cell's
// new view.
func (s *HistoryService) ExpandCell(sessionID, cellID string, borderIdx int) (*cutout.CellView, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewNotFound("session", nil)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	state, ok := sess.Cells[cellID]
	if !ok {
		return nil, apperrors.NewNotFound("cell", map[string]any{"cell_id": cellID})
	}
	if err := state.ExpandBorder(borderIdx); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	view := state.View(sess.Viewport.LineHeightPx)
	return &view, nil
}

// ShowAll switches every cell of the session to full content.
func (s *HistoryService) ShowAll(sessionID string) ([]UpdateBlock, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewNotFound("session", nil)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.ShowAll = true
	return s.materializeLocked(sess), nil
}

// RestoreAll reverts the show-all toggle and every manual border
// expansion back to the computed cutouts.
func (s *HistoryService) RestoreAll(sessionID string) ([]UpdateBlock, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.NewNotFound("session", nil)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.ShowAll = sess.Config.ShowUnchangedLines
	for _, state := range sess.Cells {
		state.Restore()
	}
	return s.materializeLocked(sess), nil
}

// computeCutouts measures every cell and replaces the session's cutout
// states. With unchanged lines shown there is nothing to cut.
func (s *HistoryService) computeCutouts(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.Cells = make(map[string]*cutout.CellState)
	if sess.Config.ShowUnchangedLines {
		return nil
	}

	measurer := cutout.NewMeasurer(
		sess.Viewport.LineHeightPx,
		sess.Viewport.WidthPx,
		s.pipeline.AvgCharWidthPx,
		s.sizer,
		s.logger,
	)
	tolerance := cutout.MergeTolerance(sess.Config.NumContextLines)

	for _, block := range sess.Blocks {
		for _, cell := range block.Cells {
			m, err := measurer.Measure(ctx, cell.HTML)
			if err != nil {
				// Unparseable content is shown uncut rather than dropped.
				s.logger.Warn("cell measurement failed, showing full content",
					zap.String("cell_id", cell.ID), zap.Error(err))
				sess.Cells[cell.ID] = cutout.NewCellState(cell.HTML, fullWindow())
				continue
			}
			w := cutout.ComputeWindows(m.Total, m.Markers, sess.Config.NumContextLines, sess.Viewport.LineHeightPx, tolerance)
			sess.Cells[cell.ID] = cutout.NewCellState(cell.HTML, w)
			s.metrics.AddPipeline(observability.PipelineCutoutsComputed, len(w.Windows))
		}
	}
	return nil
}

// materializeLocked builds the response blocks from the current session
// state. Callers hold sess.mu.
func (s *HistoryService) materializeLocked(sess *Session) []UpdateBlock {
	blocks := make([]UpdateBlock, 0, len(sess.Blocks))
	for _, block := range sess.Blocks {
		out := UpdateBlock{HeaderHTML: block.HeaderHTML}
		for _, cell := range block.Cells {
			view := cutout.CellView{Mode: cutout.ModeFull, FullHTML: cell.HTML}
			if !sess.ShowAll {
				if state, ok := sess.Cells[cell.ID]; ok {
					view = state.View(sess.Viewport.LineHeightPx)
				}
			}
			out.Cells = append(out.Cells, CellBlock{ID: cell.ID, Label: cell.Label, View: view})
		}
		blocks = append(blocks, out)
	}
	return blocks
}

func (s *HistoryService) materialize(sess *Session) []UpdateBlock {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.materializeLocked(sess)
}

func fullWindow() cutout.Windows {
	return cutout.Windows{Windows: []cutout.Window{{Top: 0, Bottom: 1}}, TotalHeight: 1}
}

// effectiveViewport applies the user's tile width cap and server defaults
// to the panel-reported geometry.
func effectiveViewport(cfg domain.UserConfig, vp Viewport, defaults config.PipelineConfig) Viewport {
	if vp.WidthPx <= 0 {
		vp.WidthPx = defaults.ViewportWidthPx
	}
	if vp.LineHeightPx <= 0 {
		vp.LineHeightPx = defaults.LineHeightPx
	}
	if cfg.LimitMaxTileWidth && vp.WidthPx > float64(cfg.MaxTileWidth) {
		vp.WidthPx = float64(cfg.MaxTileWidth)
	}
	return vp
}
