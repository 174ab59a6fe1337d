package sheet

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/bubblescan/internal/corners"
	"github.com/ironsheep/bubblescan/internal/form"
	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/grid"
)

const (
	unit   = 30 // pixels per L-mark unit, about a 200 dpi scan
	margin = 60
)

// testSheet renders a clean scan of a 75-question sheet.
type testSheet struct {
	img  *image.Gray
	grid *grid.Grid
}

func newTestSheet(t *testing.T) *testSheet {
	t.Helper()
	layout := form.DefaultLayout
	w := int(layout.WidthUnits) * unit
	h := int(layout.HeightUnits) * unit

	s := &testSheet{img: whiteImage(w+2*margin, h+2*margin)}

	// L-mark: two arms of two units, one unit wide.
	s.fillRect(margin, margin, 2*unit, unit)
	s.fillRect(margin, margin, unit, 2*unit)
	// Square marks at the other three corners.
	s.fillRect(margin+w-unit, margin, unit, unit)
	s.fillRect(margin, margin+h-unit, unit, unit)
	s.fillRect(margin+w-unit, margin+h-unit, unit, unit)

	m := float64(margin)
	corners := geometry.Polygon{
		{X: m, Y: m},
		{X: m + float64(w-1), Y: m},
		{X: m + float64(w-1), Y: m + float64(h-1)},
		{X: m, Y: m + float64(h-1)},
	}
	g, err := grid.New(corners, form.DefaultColumns, form.DefaultRows, nil, grid.DefaultOptions)
	if err != nil {
		t.Fatalf("grid.New failed: %v", err)
	}
	s.grid = g
	return s
}

func whiteImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func (s *testSheet) fillRect(x, y, w, h int) {
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			s.img.SetGray(px, py, color.Gray{Y: 0})
		}
	}
}

// mark fills the bubble of cell c.
func (s *testSheet) mark(c grid.Cell) {
	center := s.grid.CellCenter(c.Col, c.Row)
	const r = unit / 2.0
	for y := int(center.Y - r); y <= int(center.Y+r)+1; y++ {
		for x := int(center.X - r); x <= int(center.X+r)+1; x++ {
			if geometry.Pt(float64(x), float64(y)).Distance(center) <= r {
				s.img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
}

// markField fills the bubble for value index i of field n in group g.
func (s *testSheet) markField(g form.Group, n, i int) {
	fields := s.grid.Group(g).Fields()
	s.mark(fields[n].Cells()[i])
}

func (s *testSheet) markDigits(f form.Field, digits string) {
	g, _ := form.Form75.Field(f)
	for n, d := range digits {
		s.markField(g, n, int(d-'0'))
	}
}

func (s *testSheet) markLetters(f form.Field, letters string) {
	g, _ := form.Form75.Field(f)
	for n, l := range letters {
		s.markField(g, n, int(l-'A'))
	}
}

func (s *testSheet) markAnswer(q int, letters string) {
	for _, l := range letters {
		s.markField(form.Form75.Questions[q-1], 0, int(l-'A'))
	}
}

func (s *testSheet) save(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, s.img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}

func examSheet(t *testing.T) *testSheet {
	s := newTestSheet(t)
	s.markLetters(form.LastName, "DOE")
	s.markLetters(form.FirstName, "JANE")
	s.markLetters(form.MiddleName, "Q")
	s.markDigits(form.StudentID, "4815162342")
	s.markDigits(form.CourseID, "0000000101")
	s.markLetters(form.TestFormCode, "B")
	s.markAnswer(1, "A")
	s.markAnswer(2, "C")
	s.markAnswer(3, "AB")
	s.markAnswer(16, "E")
	return s
}

func keySheet(t *testing.T) *testSheet {
	s := newTestSheet(t)
	s.markDigits(form.StudentID, form.KeyStudentID)
	s.markLetters(form.TestFormCode, "B")
	s.markAnswer(1, "A")
	s.markAnswer(2, "B")
	s.markAnswer(3, "A")
	return s
}

func newTestReader(t *testing.T, modify func(*Options)) *Reader {
	t.Helper()
	opts := DefaultOptions()
	if modify != nil {
		modify(&opts)
	}
	r, err := NewReader(opts, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	return r
}

func TestNewReader_Errors(t *testing.T) {
	bad := *form.Form75
	bad.Columns = 0

	tests := map[string]func(*Options){
		"missing variant":   func(o *Options) { o.Variant = nil },
		"invalid variant":   func(o *Options) { o.Variant = &bad },
		"cell crop":         func(o *Options) { o.Grid.CellCrop = 1 },
		"mask crop":         func(o *Options) { o.Grid.MaskCrop = -0.5 },
		"unknown mask":      func(o *Options) { o.Grid.Mask = grid.Mask(7) },
		"min pixels":        func(o *Options) { o.Polygons.MinPixels = 0 },
		"zero epsilon":      func(o *Options) { o.Polygons.Epsilon = 0 },
		"dark level":        func(o *Options) { o.Polygons.DarkLevel = 0 },
		"threshold":         func(o *Options) { o.ThresholdFraction = 2 },
		"negative fraction": func(o *Options) { o.ThresholdFraction = -0.1 },
	}
	for name, modify := range tests {
		opts := DefaultOptions()
		modify(&opts)
		_, err := NewReader(opts, nil)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			t.Errorf("%s: configuration error reported as a rejected sheet: %v", name, err)
		}
	}
}

func TestProcess_Exam(t *testing.T) {
	r := newTestReader(t, nil)
	res, err := r.Process("exam.png", examSheet(t).img)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if res.IsKey {
		t.Error("exam read as a key")
	}
	want := map[form.Field]string{
		form.LastName:     "DOE",
		form.FirstName:    "JANE",
		form.MiddleName:   "Q",
		form.StudentID:    "4815162342",
		form.CourseID:     "0000000101",
		form.TestFormCode: "B",
	}
	for f, v := range want {
		if res.Fields[f] != v {
			t.Errorf("%s: got %q, want %q", f, res.Fields[f], v)
		}
	}

	if len(res.Answers) != 75 {
		t.Fatalf("got %d answers, want 75", len(res.Answers))
	}
	answers := map[int]string{1: "A", 2: "C", 3: "[A|B]", 4: "", 15: "", 16: "E", 75: ""}
	for q, v := range answers {
		if res.Answers[q-1] != v {
			t.Errorf("question %d: got %q, want %q", q, res.Answers[q-1], v)
		}
	}

	if res.Threshold <= 0.1 || res.Threshold >= 0.9 {
		t.Errorf("threshold %v does not separate marked from empty bubbles", res.Threshold)
	}
	if !res.Corners.IsClockwise() {
		t.Error("corners are not clockwise")
	}
}

func TestProcess_MultiAnswersAsF(t *testing.T) {
	r := newTestReader(t, func(o *Options) { o.MultiAnswersAsF = true })
	res, err := r.Process("exam.png", examSheet(t).img)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Answers[2] != grid.MultiSentinel {
		t.Errorf("question 3: got %q, want %q", res.Answers[2], grid.MultiSentinel)
	}
	if res.Answers[0] != "A" {
		t.Errorf("question 1: got %q, want A", res.Answers[0])
	}
}

func TestProcess_Key(t *testing.T) {
	r := newTestReader(t, nil)
	res, err := r.Process("key.png", keySheet(t).img)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.IsKey {
		t.Fatal("key sheet not detected")
	}
	if len(res.Fields) != 1 || res.Fields[form.TestFormCode] != "B" {
		t.Errorf("key fields: got %v, want only the test form code", res.Fields)
	}
	if res.Answers[1] != "B" {
		t.Errorf("question 2: got %q, want B", res.Answers[1])
	}
}

func TestProcess_Rejected(t *testing.T) {
	_, err := newTestReader(t, nil).Process("blank.png", whiteImage(300, 400))
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.Sheet != "blank.png" {
		t.Errorf("sheet: got %q", rejected.Sheet)
	}
	var cfe *corners.CornerFindingError
	if !errors.As(err, &cfe) {
		t.Errorf("expected wrapped CornerFindingError, got %v", rejected.Err)
	}
}

func TestAnalyze_Ratios(t *testing.T) {
	r := newTestReader(t, nil)
	a, err := r.Analyze("exam.png", examSheet(t).img)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	q1 := form.Form75.Questions[0]
	ratios := a.Ratios()
	filled := ratios[grid.Cell{Col: q1.Col, Row: q1.Row}]
	empty := ratios[grid.Cell{Col: q1.Col + 1, Row: q1.Row}]
	if filled <= a.Threshold || empty >= a.Threshold {
		t.Errorf("question 1 ratios: filled %v, empty %v, threshold %v", filled, empty, a.Threshold)
	}

	overlay := a.Overlay(examSheet(t).img)
	if overlay.Bounds() != a.Prepared.Bounds() {
		t.Errorf("overlay bounds %v, want %v", overlay.Bounds(), a.Prepared.Bounds())
	}
	if got := len(a.windowOutlines()); got != 3 {
		t.Errorf("got %d window outlines, want 3", got)
	}
}

func TestProcess_DebugOutput(t *testing.T) {
	dir := t.TempDir()
	r := newTestReader(t, func(o *Options) { o.DebugDir = dir })
	if _, err := r.Process("scans/exam 1.png", examSheet(t).img); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for _, name := range []string{"prepared.png", "grid.png", "threshold.txt", "mark_TL.png", "mark_BR.png"} {
		path := filepath.Join(dir, "scans_exam 1", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing debug file %s: %v", path, err)
		}
	}
}

func TestProcessBatch(t *testing.T) {
	dir := t.TempDir()
	blank := &testSheet{img: whiteImage(200, 200)}

	paths := []string{
		examSheet(t).save(t, dir, "exam.png"),
		filepath.Join(dir, "missing.png"),
		keySheet(t).save(t, dir, "key.png"),
		blank.save(t, dir, "blank.png"),
	}

	r := newTestReader(t, func(o *Options) { o.Workers = 3 })
	batch, err := r.ProcessBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	if len(batch.Sheets) != 2 {
		t.Fatalf("got %d sheets, want 2", len(batch.Sheets))
	}
	if batch.Sheets[0].Sheet != "exam.png" || batch.Sheets[1].Sheet != "key.png" {
		t.Errorf("sheets out of input order: %s, %s", batch.Sheets[0].Sheet, batch.Sheets[1].Sheet)
	}
	if len(batch.Rejected) != 2 {
		t.Fatalf("got %d rejections, want 2", len(batch.Rejected))
	}
	if batch.Rejected[0].Sheet != "missing.png" || batch.Rejected[1].Sheet != "blank.png" {
		t.Errorf("rejections: %+v", batch.Rejected)
	}
	if len(batch.Exams()) != 1 || len(batch.Keys()) != 1 {
		t.Errorf("got %d exams and %d keys, want 1 and 1", len(batch.Exams()), len(batch.Keys()))
	}
}

func TestProcessBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestReader(t, nil).ProcessBatch(ctx, []string{"a.png", "b.png"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDebugName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"exam.png", "exam"},
		{"a/b.tif", "a_b"},
		{".png", "sheet"},
	}
	for _, tt := range tests {
		if got := debugName(tt.in); got != tt.want {
			t.Errorf("debugName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
