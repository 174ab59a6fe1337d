package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ironsheep/bubblescan/internal/form"
)

// Column headings that do not correspond to a printed field.
const (
	SourceFileColumn = "Source File"
	ScoreColumn      = "Total Score (%)"
	PointsColumn     = "Total Points"
	ReasonColumn     = "Reason"

	// EmptyAnswer replaces blank answers when ExportOptions.EmptyAnswersAsG
	// is set.
	EmptyAnswer = "G"

	// KeyNotFound is written in place of a score when no key matches an
	// exam's test form code.
	KeyNotFound = "NO KEY FOUND"
)

// ExportOptions control how results are tabulated.
type ExportOptions struct {
	EmptyAnswersAsG bool

	// Sort orders exams by last, first and middle name, or by test form code
	// when the variant prints no names.
	Sort bool

	// KeysFile names a CSV of answer keys, as written to keys.csv, graded
	// alongside the keys scanned in the batch.
	KeysFile string

	// ArrangementFile names a CSV mapping each test form code to the master
	// question order. It applies when the batch has exactly one key.
	ArrangementFile string

	// MCTA adds per test form code key and results files for Multiple Choice
	// Test Analysis software.
	MCTA bool

	// Timestamp prefixes report file names with the batch start time.
	Timestamp bool
}

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// Transpose returns the table with rows and columns swapped; the header
// becomes the first column.
func (t *Table) Transpose() *Table {
	all := append([][]string{t.Header}, t.Rows...)
	width := 0
	for _, row := range all {
		width = max(width, len(row))
	}
	cols := make([][]string, width)
	for c := range cols {
		cols[c] = make([]string, len(all))
		for r, row := range all {
			cols[c][r] = cell(row, c)
		}
	}
	if width == 0 {
		return &Table{}
	}
	return &Table{Header: cols[0], Rows: cols[1:]}
}

// ResultsTable tabulates exam results: the source file, every field the
// variant prints and one column per question. Question columns after the last
// one answered on any sheet are dropped.
func ResultsTable(v *form.Variant, results []*Result, opts ExportOptions) *Table {
	fields := variantFields(v)
	rows := make([][]string, 0, len(results))
	answers := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{r.Sheet}
		for _, f := range fields {
			row = append(row, r.Fields[f])
		}
		rows = append(rows, row)
		answers = append(answers, r.Answers)
	}

	t := answerTable(fieldHeader(fields), rows, answers, v.NumQuestions(), opts.EmptyAnswersAsG)
	if opts.Sort {
		sortRows(t, fields)
	}
	return t
}

// KeysTable tabulates answer keys by test form code.
func KeysTable(v *form.Variant, keys []*Result) *Table {
	fields := []form.Field{form.TestFormCode}
	rows := make([][]string, 0, len(keys))
	answers := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k.Sheet, k.Fields[form.TestFormCode]})
		answers = append(answers, k.Answers)
	}
	return answerTable(fieldHeader(fields), rows, answers, v.NumQuestions(), false)
}

// RejectedTable lists rejected sheets with the reason.
func RejectedTable(rejected []Rejection) *Table {
	t := &Table{Header: []string{SourceFileColumn, ReasonColumn}}
	for _, r := range rejected {
		t.Rows = append(t.Rows, []string{r.Sheet, r.Reason})
	}
	return t
}

func variantFields(v *form.Variant) []form.Field {
	var out []form.Field
	for _, f := range form.Fields {
		if _, ok := v.Field(f); ok {
			out = append(out, f)
		}
	}
	return out
}

func fieldHeader(fields []form.Field) []string {
	header := []string{SourceFileColumn}
	for _, f := range fields {
		header = append(header, f.Title())
	}
	return header
}

func answerTable(header []string, rows, answers [][]string, numQuestions int, emptyAsG bool) *Table {
	used := 0
	for _, a := range answers {
		for i := len(a) - 1; i >= used; i-- {
			if a[i] != "" {
				used = i + 1
				break
			}
		}
	}
	if len(answers) == 0 {
		used = numQuestions
	}

	for q := 1; q <= used; q++ {
		header = append(header, strconv.Itoa(q))
	}
	for i, row := range rows {
		for q := 0; q < used; q++ {
			value := ""
			if q < len(answers[i]) {
				value = answers[i][q]
			}
			if value == "" && emptyAsG {
				value = EmptyAnswer
			}
			row = append(row, value)
		}
		rows[i] = row
	}
	return &Table{Header: header, Rows: rows}
}

// sortRows sorts by the name columns when present, otherwise by test form
// code. Columns are offset by one for the source file.
func sortRows(t *Table, fields []form.Field) {
	index := make(map[form.Field]int, len(fields))
	for i, f := range fields {
		index[f] = i + 1
	}

	var keys []int
	for _, f := range []form.Field{form.LastName, form.FirstName, form.MiddleName} {
		if i, ok := index[f]; ok {
			keys = append(keys, i)
		}
	}
	if len(keys) == 0 {
		i, ok := index[form.TestFormCode]
		if !ok {
			return
		}
		keys = []int{i}
	}

	sort.SliceStable(t.Rows, func(a, b int) bool {
		for _, k := range keys {
			if t.Rows[a][k] != t.Rows[b][k] {
				return t.Rows[a][k] < t.Rows[b][k]
			}
		}
		return false
	})
}

// Score is one exam graded against the key for its test form code.
type Score struct {
	Result *Result

	// Found is false when no key matched the exam's test form code.
	Found bool

	// Correct holds one entry per question the key answers.
	Correct []bool

	Points  int
	Percent float64
}

// ScoreResults grades exams against answer keys, matched by test form code.
// Only questions the key answers are graded; blank key answers are skipped.
func ScoreResults(exams, keys []*Result) []Score {
	byCode := make(map[string]*Result, len(keys))
	for _, k := range keys {
		code := k.Fields[form.TestFormCode]
		if _, dup := byCode[code]; !dup {
			byCode[code] = k
		}
	}

	scores := make([]Score, 0, len(exams))
	for _, exam := range exams {
		s := Score{Result: exam}
		key, ok := byCode[exam.Fields[form.TestFormCode]]
		if !ok {
			scores = append(scores, s)
			continue
		}
		s.Found = true
		for q, want := range key.Answers {
			if want == "" {
				continue
			}
			got := ""
			if q < len(exam.Answers) {
				got = exam.Answers[q]
			}
			correct := got == want
			s.Correct = append(s.Correct, correct)
			if correct {
				s.Points++
			}
		}
		if len(s.Correct) > 0 {
			s.Percent = math.Round(float64(s.Points)/float64(len(s.Correct))*1e4) / 1e4
		}
		scores = append(scores, s)
	}
	return scores
}

// ScoresTable tabulates scores next to the exam's fields.
func ScoresTable(v *form.Variant, scores []Score) *Table {
	fields := variantFields(v)
	header := append(fieldHeader(fields), ScoreColumn, PointsColumn)

	maxGraded := 0
	for _, s := range scores {
		if len(s.Correct) > maxGraded {
			maxGraded = len(s.Correct)
		}
	}
	for q := 1; q <= maxGraded; q++ {
		header = append(header, strconv.Itoa(q))
	}

	t := &Table{Header: header}
	for _, s := range scores {
		row := []string{s.Result.Sheet}
		for _, f := range fields {
			row = append(row, s.Result.Fields[f])
		}
		if !s.Found {
			row = append(row, KeyNotFound, KeyNotFound)
		} else {
			row = append(row, strconv.FormatFloat(s.Percent, 'f', -1, 64), strconv.Itoa(s.Points))
			for _, c := range s.Correct {
				row = append(row, strconv.FormatBool(c))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Report files written by WriteReports.
const (
	ResultsFile  = "results.csv"
	KeysFile     = "keys.csv"
	ScoresFile   = "scores.csv"
	RejectedFile = "rejected.csv"

	// Written instead of keys.csv and scores.csv when an arrangement applies.
	RearrangedResultsFile = "rearranged_results.csv"
	KeyFile               = "key.csv"
	RearrangedScoresFile  = "rearranged_scores.csv"
)

// TimestampPrefix is prepended to report file names when
// ExportOptions.Timestamp is set.
func TimestampPrefix(t time.Time) string {
	return t.Format("2006-01-02_15-04-05") + "__"
}

type report struct {
	name  string
	table *Table
}

// WriteReports writes the batch's results, keys, scores and rejections as
// CSV files in dir, creating it if needed. Keys from ExportOptions.KeysFile
// are graded with the scanned ones. When an arrangement file is set and there
// is exactly one key, exams are put in master order and graded against it,
// and key.csv plus the rearranged results and scores replace keys.csv and
// scores.csv. It returns the paths written.
func (r *Reader) WriteReports(dir string, batch *BatchResult) ([]string, error) {
	opts := r.opts.Export
	exams, keys := batch.Exams(), batch.Keys()
	if opts.KeysFile != "" {
		imported, err := LoadKeys(opts.KeysFile)
		if err != nil {
			return nil, err
		}
		keys = append(keys, imported...)
	}
	var arrangement Arrangement
	if opts.ArrangementFile != "" {
		var err error
		if arrangement, err = LoadArrangement(opts.ArrangementFile); err != nil {
			return nil, err
		}
	}

	v := r.opts.Variant
	results := ResultsTable(v, exams, opts)
	reports := []report{
		{ResultsFile, results},
		{RejectedFile, RejectedTable(batch.Rejected)},
	}
	if arrangement != nil && len(keys) == 1 {
		rearranged, err := arrangement.Rearrange(exams)
		if err != nil {
			return nil, err
		}
		master := *keys[0]
		master.Fields = map[form.Field]string{form.TestFormCode: ""}
		keys = []*Result{&master}

		keyTable := KeysTable(v, keys)
		for i, row := range keyTable.Rows {
			keyTable.Rows[i] = append(row[:1:1], row[2:]...)
		}
		keyTable.Header = append(keyTable.Header[:1:1], keyTable.Header[2:]...)

		results = ResultsTable(v, rearranged, opts)
		reports = append(reports,
			report{RearrangedResultsFile, results},
			report{KeyFile, keyTable.Transpose()},
			report{RearrangedScoresFile, ScoresTable(v, ScoreResults(rearranged, keys))},
		)
	} else {
		if arrangement != nil {
			r.logger.Warn("arrangement file ignored: it needs exactly one answer key", "keys", len(keys))
		}
		reports = append(reports,
			report{KeysFile, KeysTable(v, keys)},
			report{ScoresFile, ScoresTable(v, ScoreResults(exams, keys))},
		)
	}
	if opts.MCTA {
		reports = append(reports, mctaReports(keys, results)...)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	prefix := ""
	if opts.Timestamp {
		prefix = TimestampPrefix(batch.StartedAt)
	}
	paths := make([]string, 0, len(reports))
	for _, rep := range reports {
		path := filepath.Join(dir, prefix+rep.name)
		if err := writeTable(path, rep.table); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	r.logger.Info("reports written", "dir", dir, "run", batch.RunID.String(),
		"exams", len(exams), "keys", len(keys), "rejected", len(batch.Rejected), "files", len(paths))
	return paths, nil
}

func writeTable(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
