package cutout

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeSizer struct {
	sizes map[string][2]int
}

func (f *fakeSizer) Size(_ context.Context, url string) (int, int, error) {
	if s, ok := f.sizes[url]; ok {
		return s[0], s[1], nil
	}
	return 0, 0, errors.New("not found")
}

func newTestMeasurer() *Measurer {
	// 10px chars against a 100px viewport keeps wrap math easy to follow.
	return NewMeasurer(testLineHeight, 100, 10, &fakeSizer{sizes: map[string][2]int{
		"http://img/wide": {400, 200},
		"http://img/icon": {16, 16},
	}}, zap.NewNop())
}

func TestMeasurePlainLine(t *testing.T) {
	m := newTestMeasurer()
	got, err := m.Measure(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Bottom != testLineHeight {
		t.Errorf("Total.Bottom = %v, want one line", got.Total.Bottom)
	}
}

func TestMeasureBreaksOnBr(t *testing.T) {
	m := newTestMeasurer()
	got, err := m.Measure(context.Background(), "one<br>two<br>three")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Bottom != 3*testLineHeight {
		t.Errorf("Total.Bottom = %v, want 3 lines", got.Total.Bottom)
	}
}

func TestMeasureWrapsLongText(t *testing.T) {
	m := newTestMeasurer()
	// Each word occupies (4+1)*10 = 50px; two per 100px line.
	got, err := m.Measure(context.Background(), "aaaa bbbb cccc dddd")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Bottom != 2*testLineHeight {
		t.Errorf("Total.Bottom = %v, want 2 lines", got.Total.Bottom)
	}
}

func TestMeasureBlockElements(t *testing.T) {
	m := newTestMeasurer()
	got, err := m.Measure(context.Background(), "<p>one</p><p>two</p>")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Bottom != 2*testLineHeight {
		t.Errorf("Total.Bottom = %v, want 2 lines", got.Total.Bottom)
	}
}

func TestMeasureMarkerExtents(t *testing.T) {
	m := newTestMeasurer()
	got, err := m.Measure(context.Background(),
		`one<br><ins class="diffCls">two</ins><br>three`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Markers) != 1 {
		t.Fatalf("got %d markers, want 1", len(got.Markers))
	}
	marker := got.Markers[0]
	if marker.Top != testLineHeight || marker.Bottom != 2*testLineHeight {
		t.Errorf("marker = %+v, want second line", marker)
	}
}

func TestMeasureMarkersInDocumentOrder(t *testing.T) {
	m := newTestMeasurer()
	got, err := m.Measure(context.Background(),
		`<del class="diffCls">a</del><br><ins class="diffCls">b</ins>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Markers) != 2 {
		t.Fatalf("got %d markers, want 2", len(got.Markers))
	}
	if got.Markers[0].Top > got.Markers[1].Top {
		t.Errorf("markers out of document order: %+v", got.Markers)
	}
}

func TestMeasureImageScaledToViewport(t *testing.T) {
	m := newTestMeasurer()
	// 400x200 scaled to the 100px viewport renders 50px tall.
	got, err := m.Measure(context.Background(), `<img src="http://img/wide">`)
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Bottom != 50 {
		t.Errorf("Total.Bottom = %v, want 50", got.Total.Bottom)
	}
}

func TestMeasureBrokenImageFallsBackToOneLine(t *testing.T) {
	m := newTestMeasurer()
	got, err := m.Measure(context.Background(), `<img src="http://img/missing">`)
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Bottom != testLineHeight {
		t.Errorf("Total.Bottom = %v, want one line", got.Total.Bottom)
	}
}

func TestMeasureSkipsStyleContent(t *testing.T) {
	m := newTestMeasurer()
	got, err := m.Measure(context.Background(), "<style>p { color: red; }</style>x")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.Bottom != testLineHeight {
		t.Errorf("Total.Bottom = %v, want one line", got.Total.Bottom)
	}
}
