package cutout

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ImageSizer resolves the intrinsic pixel size of an image. Measuring must
// not start before image sizes are known, otherwise the computed extents
// are wrong; the sizer is the blocking step that guarantees that.
type ImageSizer interface {
	Size(ctx context.Context, url string) (width, height int, err error)
}

// Measurement holds the layout extents of one rendered content cell.
type Measurement struct {
	Total   Extent
	Markers []Extent
}

// Measurer estimates the rendered geometry of an HTML fragment with a
// simple line-layout model: block elements start new lines, text wraps at
// the viewport width, images occupy their own scaled height. The estimate
// only has to be consistent, not typographically exact: windows are padded
// with context lines and snapped anyway.
type Measurer struct {
	lineHeight    float64
	viewportWidth float64
	avgCharWidth  float64
	images        ImageSizer
	logger        *zap.Logger
}

func NewMeasurer(lineHeight, viewportWidth, avgCharWidth float64, images ImageSizer, logger *zap.Logger) *Measurer {
	return &Measurer{
		lineHeight:    lineHeight,
		viewportWidth: viewportWidth,
		avgCharWidth:  avgCharWidth,
		images:        images,
		logger:        logger,
	}
}

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "table": {}, "tr": {}, "ul": {}, "ol": {}, "li": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "pre": {}, "hr": {},
}

type layoutState struct {
	y        float64
	x        float64
	measurer *Measurer

	openMarkers []*Extent
	markers     []Extent
}

// Measure walks the fragment and returns the total extent plus the extent
// of every <ins> and <del> marker in document order.
func (m *Measurer) Measure(ctx context.Context, fragment string) (Measurement, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), bodyContext())
	if err != nil {
		return Measurement{}, err
	}

	st := &layoutState{measurer: m}
	for _, n := range nodes {
		st.walk(ctx, n)
	}

	total := st.y
	if st.x > 0 {
		total += m.lineHeight
	}
	return Measurement{
		Total:   Extent{Top: 0, Bottom: total},
		Markers: st.markers,
	}, nil
}

func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

func (s *layoutState) walk(ctx context.Context, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		s.layoutText(n.Data)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			s.walk(ctx, c)
		}
		return
	}

	tag := n.Data
	switch tag {
	case "br":
		s.y += s.measurer.lineHeight
		s.x = 0
		return
	case "img":
		s.layoutImage(ctx, n)
		return
	case "style", "script":
		return
	}

	isMarker := tag == "ins" || tag == "del"
	_, isBlock := blockElements[tag]

	if isBlock {
		s.breakLine()
	}

	var marker *Extent
	if isMarker {
		marker = &Extent{Top: s.y, Bottom: s.y}
		s.openMarkers = append(s.openMarkers, marker)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(ctx, c)
	}

	if isMarker {
		s.openMarkers = s.openMarkers[:len(s.openMarkers)-1]
		bottom := s.y
		if s.x > 0 {
			bottom += s.measurer.lineHeight
		}
		if bottom > marker.Bottom {
			marker.Bottom = bottom
		}
		s.markers = append(s.markers, *marker)
	}

	if isBlock {
		s.breakLine()
	}
}

func (s *layoutState) breakLine() {
	if s.x > 0 {
		s.y += s.measurer.lineHeight
		s.x = 0
	}
}

func (s *layoutState) layoutText(text string) {
	for _, word := range strings.Fields(text) {
		width := float64(len([]rune(word))+1) * s.measurer.avgCharWidth
		if s.x > 0 && s.x+width > s.measurer.viewportWidth {
			s.y += s.measurer.lineHeight
			s.x = 0
		}
		s.x += width
		s.touchMarkers()
	}
}

func (s *layoutState) layoutImage(ctx context.Context, n *html.Node) {
	src := attr(n, "src")
	if src == "" {
		return
	}
	w, h, err := s.measurer.images.Size(ctx, src)
	if err != nil || w <= 0 || h <= 0 {
		// A broken image renders as one line of alt text.
		s.measurer.logger.Warn("image size unavailable, assuming one line",
			zap.String("src", src), zap.Error(err))
		w, h = int(s.measurer.viewportWidth), int(s.measurer.lineHeight)
	}

	height := float64(h)
	if float64(w) > s.measurer.viewportWidth {
		height = height * s.measurer.viewportWidth / float64(w)
	}

	s.breakLine()
	s.y += height
	s.touchMarkers()
}

// touchMarkers extends every open marker down to the current layout
// position.
func (s *layoutState) touchMarkers() {
	bottom := s.y
	if s.x > 0 {
		bottom += s.measurer.lineHeight
	}
	for _, m := range s.openMarkers {
		if bottom > m.Bottom {
			m.Bottom = bottom
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
