package grid

import (
	"strings"

	"github.com/ironsheep/bubblescan/internal/form"
	"github.com/ironsheep/bubblescan/internal/geometry"
)

// MultiSentinel replaces an answer with more than one bubble marked when
// multi-answers are collapsed.
const MultiSentinel = "F"

// Cell is a grid address.
type Cell struct {
	Col, Row int
}

// Field is one character: Length consecutive cells starting at Start, one per
// possible value.
type Field struct {
	Start       Cell
	Length      int
	Orientation geometry.Orientation
	Kind        form.FieldKind
}

// Cells returns the cell addresses in value order.
func (f Field) Cells() []Cell {
	cells := make([]Cell, f.Length)
	for i := range cells {
		c := f.Start
		if f.Orientation == geometry.Vertical {
			c.Row += i
		} else {
			c.Col += i
		}
		cells[i] = c
	}
	return cells
}

// FieldGroup is a run of fields read as one string, such as a name or an
// answer.
type FieldGroup struct {
	grid   *Grid
	kind   form.FieldKind
	fields []Field
}

// Group builds the fields of a form group on g. Vertical groups lay out each
// field down a column with successive fields moving right; horizontal groups
// lay each field along a row with successive fields moving down.
func (g *Grid) Group(group form.Group) *FieldGroup {
	fg := &FieldGroup{grid: g, kind: group.Kind, fields: make([]Field, group.Count)}
	for i := range fg.fields {
		start := Cell{Col: group.Col, Row: group.Row}
		if group.Orientation == geometry.Vertical {
			start.Col += i
		} else {
			start.Row += i
		}
		fg.fields[i] = Field{
			Start:       start,
			Length:      group.Length,
			Orientation: group.Orientation,
			Kind:        group.Kind,
		}
	}
	return fg
}

// Fields returns the group's fields.
func (fg *FieldGroup) Fields() []Field {
	return append([]Field(nil), fg.fields...)
}

// FillRatios samples every cell of the group, one slice per field.
func (fg *FieldGroup) FillRatios() [][]float64 {
	out := make([][]float64, len(fg.fields))
	for i, f := range fg.fields {
		cells := f.Cells()
		ratios := make([]float64, len(cells))
		for j, c := range cells {
			ratios[j] = fg.grid.FillRatio(c.Col, c.Row)
		}
		out[i] = ratios
	}
	return out
}

// Read decodes precomputed fill ratios against threshold.
func (fg *FieldGroup) Read(ratios [][]float64, threshold float64) string {
	return Format(fg.kind, Hits(ratios, threshold))
}

// Hits returns, per field, the indexes whose ratio is strictly above
// threshold.
func Hits(ratios [][]float64, threshold float64) [][]int {
	out := make([][]int, len(ratios))
	for i, field := range ratios {
		hits := []int{}
		for j, r := range field {
			if r > threshold {
				hits = append(hits, j)
			}
		}
		out[i] = hits
	}
	return out
}

// Format renders decoded hits. A field with no hits is a space, one hit is
// its value and several are an alternation such as "[A|B]". Leading and
// trailing blanks are trimmed from the result.
func Format(kind form.FieldKind, hits [][]int) string {
	var b strings.Builder
	for _, field := range hits {
		switch len(field) {
		case 0:
			b.WriteByte(' ')
		case 1:
			b.WriteString(kind.Decode(field[0]))
		default:
			values := make([]string, len(field))
			for i, idx := range field {
				values[i] = kind.Decode(idx)
			}
			b.WriteString("[" + strings.Join(values, "|") + "]")
		}
	}
	return strings.TrimSpace(b.String())
}

// CollapseMulti replaces a value containing an alternation with
// MultiSentinel.
func CollapseMulti(value string) string {
	if strings.Contains(value, "|") {
		return MultiSentinel
	}
	return value
}
