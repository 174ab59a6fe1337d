package sheet

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/bubblescan/internal/form"
)

// MCTA tables feed Multiple Choice Test Analysis software, which expects one
// key file and one results file per test form code.

// MCTAKeyTable lists a key's answers up to its last non-blank one, one row
// per question.
func MCTAKeyTable(key *Result) *Table {
	t := &Table{Header: []string{"", "Answer", "Title", "Concept"}}
	n := len(key.Answers)
	for n > 0 && key.Answers[n-1] == "" {
		n--
	}
	for i, a := range key.Answers[:n] {
		q := "Q" + strconv.Itoa(i+1)
		t.Rows = append(t.Rows, []string{q, a, q, "unknown"})
	}
	return t
}

// MCTAResultsTables splits a results table by test form code. Students are
// named by their row in results, so the files carry no names.
func MCTAResultsTables(results *Table) map[string]*Table {
	codeCol, firstQuestion := -1, len(results.Header)
	for i, name := range results.Header {
		if name == form.TestFormCode.Title() {
			codeCol = i
		}
		if _, ok := questionColumn(name); ok && i < firstQuestion {
			firstQuestion = i
		}
	}

	header := []string{""}
	for q := 1; q <= len(results.Header)-firstQuestion; q++ {
		header = append(header, "Q"+strconv.Itoa(q))
	}

	out := make(map[string]*Table)
	for i, row := range results.Rows {
		code := cell(row, codeCol)
		t, ok := out[code]
		if !ok {
			t = &Table{Header: header}
			out[code] = t
		}
		t.Rows = append(t.Rows, append([]string{"Student" + strconv.Itoa(i)}, row[firstQuestion:]...))
	}
	return out
}

var mctaCodeReplacer = strings.NewReplacer("[", "", "]", "", "|", "")

// mctaFile names an MCTA report; kind is "key" or "results".
func mctaFile(code, kind string) string {
	code = mctaCodeReplacer.Replace(code)
	if code == "" {
		return "mcta_" + kind + ".csv"
	}
	return "mcta_" + code + "_" + kind + ".csv"
}

// mctaReports builds the per form code key and results files. Only the first
// key for a code is written, the one ScoreResults grades against.
func mctaReports(keys []*Result, results *Table) []report {
	var out []report
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		code := k.Fields[form.TestFormCode]
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, report{mctaFile(code, "key"), MCTAKeyTable(k)})
	}

	byCode := MCTAResultsTables(results)
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		out = append(out, report{mctaFile(code, "results"), byCode[code]})
	}
	return out
}
