package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/bubblescan/internal/form"
)

// questionColumn parses a question heading, "7" or "Q7", into a zero-based
// question index.
func questionColumn(name string) (int, bool) {
	name = strings.TrimPrefix(strings.TrimPrefix(name, "Q"), "q")
	n, err := strconv.Atoi(name)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func readHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadKeys parses answer keys from CSV in the layout KeysTable writes: an
// optional Source File column, field columns headed by their titles and one
// column per question headed "1" or "Q1". Rows without a Source File take
// source as their sheet name.
func ReadKeys(r io.Reader, source string) ([]*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	titles := make(map[string]form.Field, len(form.Fields))
	for _, f := range form.Fields {
		titles[f.Title()] = f
	}

	sourceCol := -1
	fieldCols := make(map[int]form.Field)
	questionCols := make(map[int]int)
	numQuestions := 0
	for i, name := range header {
		if name == SourceFileColumn {
			sourceCol = i
			continue
		}
		if f, ok := titles[name]; ok {
			fieldCols[i] = f
			continue
		}
		if q, ok := questionColumn(name); ok {
			questionCols[i] = q
			numQuestions = max(numQuestions, q+1)
		}
	}
	if len(questionCols) == 0 {
		return nil, errors.New("no question columns in header")
	}

	var keys []*Result
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		key := &Result{
			Sheet:   source,
			Fields:  map[form.Field]string{form.TestFormCode: ""},
			Answers: make([]string, numQuestions),
			IsKey:   true,
		}
		if s := cell(row, sourceCol); s != "" {
			key.Sheet = s
		}
		for i, f := range fieldCols {
			key.Fields[f] = cell(row, i)
		}
		for i, q := range questionCols {
			key.Answers[q] = cell(row, i)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// LoadKeys reads answer keys from a CSV file.
func LoadKeys(path string) ([]*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keys file: %w", err)
	}
	defer f.Close()

	keys, err := ReadKeys(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("invalid keys file %s: %w", filepath.Base(path), err)
	}
	return keys, nil
}

// Arrangement maps a test form code to the order of its questions in the
// master form. Position j of a rearranged answer list holds the form's answer
// to question Arrangement[code][j]+1.
type Arrangement map[string][]int

// ReadArrangement parses an arrangement CSV: a Test Form Code column and one
// column per master question headed "Q1" or "1", each cell naming the form's
// question number. Every row must hold each of 1..k exactly once, where k is
// the number of non-blank cells in the row.
func ReadArrangement(r io.Reader) (Arrangement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	codeCol := -1
	positions := make(map[int]int)
	for i, name := range header {
		if name == form.TestFormCode.Title() {
			codeCol = i
			continue
		}
		if q, ok := questionColumn(name); ok {
			positions[i] = q
		}
	}
	if codeCol < 0 {
		return nil, fmt.Errorf("missing %q column", form.TestFormCode.Title())
	}
	if len(positions) == 0 {
		return nil, errors.New("no question columns in header")
	}

	a := make(Arrangement)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		code := cell(row, codeCol)
		if _, dup := a[code]; dup {
			return nil, fmt.Errorf("line %d: duplicate entry for test form code %q", line, code)
		}
		order := make([]int, len(positions))
		used := 0
		for i, pos := range positions {
			v := cell(row, i)
			if v == "" {
				order[pos] = -1
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid question number %q", line, v)
			}
			order[pos] = n - 1
			used = max(used, pos+1)
		}
		order = order[:used]
		if err := checkPermutation(order); err != nil {
			return nil, fmt.Errorf("line %d: entry for %q %w", line, code, err)
		}
		a[code] = order
	}
	if len(a) == 0 {
		return nil, errors.New("no entries")
	}
	return a, nil
}

func checkPermutation(order []int) error {
	seen := make([]bool, len(order))
	for _, n := range order {
		if n < 0 || n >= len(order) || seen[n] {
			return fmt.Errorf("must hold each question from 1 to %d exactly once", len(order))
		}
		seen[n] = true
	}
	return nil
}

// LoadArrangement reads an arrangement CSV file.
func LoadArrangement(path string) (Arrangement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrangement file: %w", err)
	}
	defer f.Close()

	a, err := ReadArrangement(f)
	if err != nil {
		return nil, fmt.Errorf("invalid arrangement file %s: %w", filepath.Base(path), err)
	}
	return a, nil
}

// Rearrange returns copies of results with answers put in master order and
// the test form code cleared, so every copy grades against a single master
// key. Questions past the end of an entry keep their position.
func (a Arrangement) Rearrange(results []*Result) ([]*Result, error) {
	out := make([]*Result, 0, len(results))
	for _, r := range results {
		code := r.Fields[form.TestFormCode]
		order, ok := a[code]
		if !ok {
			return nil, fmt.Errorf("arrangement has no entry for test form code %q", code)
		}
		if len(order) > len(r.Answers) {
			return nil, fmt.Errorf("arrangement entry for %q has %d questions, sheet has %d",
				code, len(order), len(r.Answers))
		}

		c := *r
		c.Fields = make(map[form.Field]string, len(r.Fields))
		for f, v := range r.Fields {
			c.Fields[f] = v
		}
		c.Fields[form.TestFormCode] = ""
		c.Answers = append([]string(nil), r.Answers...)
		for j, q := range order {
			c.Answers[j] = r.Answers[q]
		}
		out = append(out, &c)
	}
	return out, nil
}
