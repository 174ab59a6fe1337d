// Package sheet runs the per-sheet reading pipeline and batches of sheets.
//
// For one scan the pipeline is:
//
//  1. Prepare: grayscale, denoise and binarize the scan.
//  2. Register: find candidate polygons and locate the four document
//     corners. A sheet without a registration is rejected, not fatal.
//  3. Sample: dilate the prepared scan, lay the variant's grid over it and
//     measure the fill ratio of every field and answer bubble.
//  4. Threshold: derive this sheet's fill threshold from its own ratios.
//  5. Decode: read every field and answer against that threshold.
//
// Every sheet gets its own grid, basis and threshold, so a Reader can process
// any number of sheets concurrently.
package sheet

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/ironsheep/bubblescan/internal/corners"
	"github.com/ironsheep/bubblescan/internal/detection"
	"github.com/ironsheep/bubblescan/internal/form"
	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/grid"
	"github.com/ironsheep/bubblescan/internal/imaging"
)

// Options configure a Reader. They are copied into the reader and never
// changed afterwards.
type Options struct {
	Variant           *form.Variant
	Grid              grid.Options
	Polygons          detection.PolygonOptions
	ThresholdFraction float64

	// MultiAnswersAsF replaces multi-marked answers with grid.MultiSentinel.
	MultiAnswersAsF bool

	// Export controls the tables written by WriteReports.
	Export ExportOptions

	// DebugDir, when set, receives one directory of intermediate images per
	// sheet.
	DebugDir string

	// Workers bounds the number of sheets processed at once by
	// ProcessBatch. Zero or less means one.
	Workers int
}

// DefaultOptions reads the 75-question sheet one sheet at a time.
func DefaultOptions() Options {
	return Options{
		Variant:           form.Form75,
		Grid:              grid.DefaultOptions,
		Polygons:          detection.DefaultPolygonOptions,
		ThresholdFraction: grid.DefaultThresholdFraction,
		Export:            ExportOptions{Sort: true},
		Workers:           1,
	}
}

// Validate checks the options once, so a bad configuration fails before any
// sheet is read rather than rejecting every sheet.
func (o Options) Validate() error {
	if o.Variant == nil {
		return errors.New("sheet options need a form variant")
	}
	if err := o.Variant.Validate(); err != nil {
		return err
	}
	if err := o.Grid.Validate(); err != nil {
		return fmt.Errorf("grid options: %w", err)
	}
	if err := o.Polygons.Validate(); err != nil {
		return fmt.Errorf("polygon options: %w", err)
	}
	if o.ThresholdFraction < 0 || o.ThresholdFraction > 1 {
		return fmt.Errorf("threshold fraction must be in [0, 1], got %v", o.ThresholdFraction)
	}
	return nil
}

// RejectedError reports a sheet that could not be registered. It wraps the
// underlying corners.CornerFindingError.
type RejectedError struct {
	Sheet string
	Err   error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("sheet %s rejected: %v", e.Sheet, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// Result is the decoded content of one sheet.
type Result struct {
	Sheet string `json:"sheet"`

	// Fields holds every field the variant prints. For an answer key only the
	// test form code is kept.
	Fields map[form.Field]string `json:"fields"`

	// Answers holds one value per question, in question order.
	Answers []string `json:"answers"`

	Threshold float64          `json:"threshold"`
	IsKey     bool             `json:"is_key"`
	Corners   geometry.Polygon `json:"corners"`
}

// Analysis is the intermediate state of one sheet after sampling, kept so
// callers can inspect or draw it.
type Analysis struct {
	Prepared     *image.Gray
	Registration *corners.Registration
	Grid         *grid.Grid
	FieldRatios  map[form.Field][][]float64
	AnswerRatios [][][]float64
	Threshold    float64

	variant *form.Variant
}

// Ratios returns every sampled cell's fill ratio keyed by cell.
func (a *Analysis) Ratios() map[grid.Cell]float64 {
	out := make(map[grid.Cell]float64)
	add := func(fg *grid.FieldGroup, ratios [][]float64) {
		for i, f := range fg.Fields() {
			for j, c := range f.Cells() {
				out[c] = ratios[i][j]
			}
		}
	}
	for f, ratios := range a.FieldRatios {
		g, _ := a.variant.Field(f)
		add(a.Grid.Group(g), ratios)
	}
	for i, ratios := range a.AnswerRatios {
		add(a.Grid.Group(a.variant.Questions[i]), ratios)
	}
	return out
}

// Overlay draws the grid, sampled cells and registration on src.
func (a *Analysis) Overlay(src image.Image) image.Image {
	return imaging.Overlay(src, imaging.OverlayOptions{
		Grid:      a.Grid,
		Ratios:    a.Ratios(),
		Threshold: a.Threshold,
		Corners:   a.Registration.Polygon(),
		Windows:   a.windowOutlines(),
	})
}

// windowOutlines maps the corner search windows back to pixel space.
func (a *Analysis) windowOutlines() []geometry.Polygon {
	reg := a.Registration
	out := make([]geometry.Polygon, 0, len(reg.Windows))
	for _, w := range reg.Windows {
		min, max := w.Bounds()
		box := geometry.Polygon{min, {X: max.X, Y: min.Y}, max, {X: min.X, Y: max.Y}}
		out = append(out, reg.Basis.PolyFromBasis(box))
	}
	return out
}

// Reader reads bubble sheets of one variant.
type Reader struct {
	opts    Options
	locator *corners.Locator
	logger  *slog.Logger
}

// NewReader validates opts and returns a reader. A nil logger discards
// output.
func NewReader(opts Options, logger *slog.Logger) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	locator, err := corners.NewLocator(opts.Variant.Layout)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reader{opts: opts, locator: locator, logger: logger}, nil
}

// Options returns the reader's options.
func (r *Reader) Options() Options { return r.opts }

// Register prepares img and locates its document corners. The returned error
// is a *RejectedError when no registration is found.
func (r *Reader) Register(name string, img image.Image) (*image.Gray, *corners.Registration, error) {
	prepared := imaging.Prepare(img)
	polygons := detection.FindPolygons(prepared, r.opts.Polygons)
	r.logger.Debug("polygons found", "sheet", name, "count", len(polygons))

	reg, err := r.locator.Find(polygons)
	if err != nil {
		return prepared, nil, &RejectedError{Sheet: name, Err: err}
	}
	r.logger.Debug("sheet registered", "sheet", name, "corners", reg.Polygon())
	return prepared, reg, nil
}

// Analyze registers img and samples every bubble of the variant.
func (r *Reader) Analyze(name string, img image.Image) (*Analysis, error) {
	prepared, reg, err := r.Register(name, img)
	if err != nil {
		return nil, err
	}

	v := r.opts.Variant
	sampler := imaging.NewDarknessSampler(imaging.Dilate(prepared))
	g, err := grid.New(reg.Polygon(), v.Columns, v.Rows, sampler, r.opts.Grid)
	if err != nil {
		return nil, &RejectedError{Sheet: name, Err: err}
	}

	a := &Analysis{
		Prepared:     prepared,
		Registration: reg,
		Grid:         g,
		FieldRatios:  make(map[form.Field][][]float64, len(v.Fields)),
		AnswerRatios: make([][][]float64, len(v.Questions)),
		variant:      v,
	}
	var all [][][]float64
	for _, f := range form.Fields {
		group, ok := v.Field(f)
		if !ok {
			continue
		}
		ratios := g.Group(group).FillRatios()
		a.FieldRatios[f] = ratios
		all = append(all, ratios)
	}
	for i, q := range v.Questions {
		a.AnswerRatios[i] = g.Group(q).FillRatios()
		all = append(all, a.AnswerRatios[i])
	}

	a.Threshold = grid.Threshold(grid.Flatten(all...), r.opts.ThresholdFraction)
	r.logger.Debug("fill threshold", "sheet", name, "threshold", a.Threshold)
	return a, nil
}

// Decode reads the fields and answers of an analysed sheet.
func (r *Reader) Decode(name string, a *Analysis) *Result {
	v := r.opts.Variant
	res := &Result{
		Sheet:     name,
		Fields:    make(map[form.Field]string),
		Answers:   make([]string, len(v.Questions)),
		Threshold: a.Threshold,
		Corners:   a.Registration.Polygon(),
	}

	for i, q := range v.Questions {
		answer := a.Grid.Group(q).Read(a.AnswerRatios[i], a.Threshold)
		if r.opts.MultiAnswersAsF {
			answer = grid.CollapseMulti(answer)
		}
		res.Answers[i] = answer
	}

	for f, ratios := range a.FieldRatios {
		group, _ := v.Field(f)
		res.Fields[f] = a.Grid.Group(group).Read(ratios, a.Threshold)
	}

	if res.Fields[form.StudentID] == form.KeyStudentID {
		res.IsKey = true
		code, ok := res.Fields[form.TestFormCode]
		res.Fields = map[form.Field]string{}
		if ok {
			res.Fields[form.TestFormCode] = code
		}
	}
	return res
}

// Process reads one sheet. Sheets that cannot be registered return a
// *RejectedError.
func (r *Reader) Process(name string, img image.Image) (*Result, error) {
	a, err := r.Analyze(name, img)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			r.logger.Warn("sheet rejected", "sheet", name, "reason", rejected.Err)
		}
		return nil, err
	}

	res := r.Decode(name, a)
	if r.opts.DebugDir != "" {
		if err := writeDebug(filepath.Join(r.opts.DebugDir, debugName(name)), img, a); err != nil {
			r.logger.Warn("failed to write debug output", "sheet", name, "error", err)
		}
	}

	r.logger.Info("sheet processed", "sheet", name, "key", res.IsKey, "threshold", res.Threshold)
	return res, nil
}

// ProcessFile loads and reads the scan at path. The sheet is named after the
// file's base name.
func (r *Reader) ProcessFile(path string) (*Result, error) {
	img, _, err := imaging.Load(path)
	if err != nil {
		r.logger.Warn("failed to load sheet", "path", path, "error", err)
		return nil, err
	}
	return r.Process(sheetName(path), img)
}

func sheetName(path string) string {
	return filepath.Base(path)
}
