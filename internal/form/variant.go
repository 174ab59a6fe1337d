package form

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

// Default grid dimensions of the printed sheets.
const (
	DefaultColumns = 36
	DefaultRows    = 48
)

// QuestionBlock generates evenly laid out questions: Count questions of
// Length letter bubbles each, PerColumn questions stacked down from (Col, Row)
// before the next column of questions starts ColumnStep cells to the right.
type QuestionBlock struct {
	Col        int `yaml:"col"`
	Row        int `yaml:"row"`
	Count      int `yaml:"count"`
	PerColumn  int `yaml:"per_column"`
	ColumnStep int `yaml:"column_step"`
	Length     int `yaml:"length"`
}

// Questions expands the block into one horizontal letter group per question.
func (b QuestionBlock) Questions() []Group {
	perColumn := b.PerColumn
	if perColumn <= 0 {
		perColumn = b.Count
	}
	length := b.Length
	if length <= 0 {
		length = 5
	}

	out := make([]Group, 0, b.Count)
	for i := 0; i < b.Count; i++ {
		out = append(out, Group{
			Col:         b.Col + b.ColumnStep*(i/perColumn),
			Row:         b.Row + i%perColumn,
			Count:       1,
			Kind:        Letter,
			Length:      length,
			Orientation: geometry.Horizontal,
		})
	}
	return out
}

// Variant is one printed version of the sheet.
type Variant struct {
	Name      string
	Columns   int
	Rows      int
	Layout    Layout
	Fields    map[Field]Group
	Questions []Group
}

// NumQuestions returns the number of questions on the sheet.
func (v *Variant) NumQuestions() int {
	return len(v.Questions)
}

// Field returns the group for f and whether the variant prints it.
func (v *Variant) Field(f Field) (Group, bool) {
	g, ok := v.Fields[f]
	return g, ok
}

// Validate checks that every field and question fits inside the grid.
func (v *Variant) Validate() error {
	if v.Columns <= 0 || v.Rows <= 0 {
		return fmt.Errorf("variant %q: grid must have positive dimensions, got %dx%d", v.Name, v.Columns, v.Rows)
	}
	if err := v.Layout.Validate(); err != nil {
		return fmt.Errorf("variant %q: %w", v.Name, err)
	}
	for f, g := range v.Fields {
		if err := v.checkGroup(g); err != nil {
			return fmt.Errorf("variant %q: field %s: %w", v.Name, f, err)
		}
	}
	for i, g := range v.Questions {
		if err := v.checkGroup(g); err != nil {
			return fmt.Errorf("variant %q: question %d: %w", v.Name, i+1, err)
		}
	}
	return nil
}

func (v *Variant) checkGroup(g Group) error {
	if g.Count <= 0 || g.Length <= 0 {
		return fmt.Errorf("group must have positive count and length")
	}
	if g.Kind == Digit && g.Length > 10 {
		return fmt.Errorf("digit fields have at most 10 bubbles, got %d", g.Length)
	}
	if g.Kind == Letter && g.Length > len(Letters) {
		return fmt.Errorf("letter fields have at most %d bubbles, got %d", len(Letters), g.Length)
	}
	cols, rows := g.Extent()
	if g.Col < 0 || g.Row < 0 || g.Col+cols > v.Columns || g.Row+rows > v.Rows {
		return fmt.Errorf("cells (%d,%d)+(%dx%d) fall outside the %dx%d grid",
			g.Col, g.Row, cols, rows, v.Columns, v.Rows)
	}
	return nil
}

// Form75 is the 75-question sheet with name fields.
var Form75 = &Variant{
	Name:    "75q",
	Columns: DefaultColumns,
	Rows:    DefaultRows,
	Layout:  DefaultLayout,
	Fields: map[Field]Group{
		LastName:   NewGroup(1, 3, 12, Letter),
		FirstName:  NewGroup(14, 3, 6, Letter),
		MiddleName: NewGroup(21, 3, 2, Letter),
		StudentID:  NewGroup(25, 3, 10, Digit),
		CourseID:   NewGroup(25, 16, 10, Digit),
		TestFormCode: {
			Col: 27, Row: 28, Count: 1, Kind: Letter, Length: 6,
			Orientation: geometry.Horizontal,
		},
	},
	Questions: QuestionBlock{Col: 2, Row: 32, Count: 75, PerColumn: 15, ColumnStep: 7, Length: 5}.Questions(),
}

// Form150 is the 150-question sheet without name fields.
var Form150 = &Variant{
	Name:    "150q",
	Columns: DefaultColumns,
	Rows:    DefaultRows,
	Layout:  DefaultLayout,
	Fields: map[Field]Group{
		StudentID: NewGroup(25, 3, 10, Digit),
		CourseID:  NewGroup(14, 3, 10, Digit),
		TestFormCode: {
			Col: 4, Row: 12, Count: 1, Kind: Letter, Length: 6,
			Orientation: geometry.Horizontal,
		},
	},
	Questions: QuestionBlock{Col: 2, Row: 17, Count: 150, PerColumn: 30, ColumnStep: 7, Length: 5}.Questions(),
}

// Builtin returns the built-in variant with the given name.
func Builtin(name string) (*Variant, bool) {
	switch strings.ToLower(name) {
	case "75", "75q":
		return Form75, true
	case "150", "150q":
		return Form150, true
	}
	return nil, false
}

// Lookup resolves name to a built-in variant, or loads it as a YAML variant
// file when it is not a built-in name.
func Lookup(name string) (*Variant, error) {
	if v, ok := Builtin(name); ok {
		return v, nil
	}
	return LoadVariant(name)
}

type groupFile struct {
	Col         int    `yaml:"col"`
	Row         int    `yaml:"row"`
	Count       int    `yaml:"count"`
	Kind        string `yaml:"kind"`
	Length      int    `yaml:"length"`
	Orientation string `yaml:"orientation"`
}

type variantFile struct {
	Name      string               `yaml:"name"`
	Columns   int                  `yaml:"columns"`
	Rows      int                  `yaml:"rows"`
	Layout    *Layout              `yaml:"layout"`
	Fields    map[string]groupFile `yaml:"fields"`
	Questions []QuestionBlock      `yaml:"questions"`
}

// LoadVariant reads a variant description from a YAML file.
//
// Example:
//
//	name: quiz-20
//	columns: 36
//	rows: 48
//	fields:
//	  student_id: {col: 25, row: 3, count: 10, kind: digit}
//	  test_form_code: {col: 4, row: 12, kind: letter, length: 6, orientation: horizontal}
//	questions:
//	  - {col: 2, row: 17, count: 20, per_column: 10, column_step: 7, length: 5}
//
// Omitted grid dimensions and layout fall back to the printed sheet's.
func LoadVariant(path string) (*Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variant: %w", err)
	}
	return ParseVariant(data)
}

// ParseVariant decodes a YAML variant description and validates it.
func ParseVariant(data []byte) (*Variant, error) {
	var vf variantFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("failed to parse variant: %w", err)
	}

	v := &Variant{
		Name:    vf.Name,
		Columns: vf.Columns,
		Rows:    vf.Rows,
		Layout:  DefaultLayout,
		Fields:  make(map[Field]Group, len(vf.Fields)),
	}
	if v.Columns == 0 {
		v.Columns = DefaultColumns
	}
	if v.Rows == 0 {
		v.Rows = DefaultRows
	}
	if vf.Layout != nil {
		v.Layout = *vf.Layout
	}

	for name, gf := range vf.Fields {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		g, err := gf.group()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		v.Fields[f] = g
	}
	for _, block := range vf.Questions {
		v.Questions = append(v.Questions, block.Questions()...)
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (gf groupFile) group() (Group, error) {
	kind, err := ParseFieldKind(gf.Kind)
	if err != nil {
		return Group{}, err
	}
	g := NewGroup(gf.Col, gf.Row, gf.Count, kind)
	if g.Count == 0 {
		g.Count = 1
	}
	if gf.Length > 0 {
		g.Length = gf.Length
	}
	switch strings.ToLower(gf.Orientation) {
	case "", "vertical":
	case "horizontal":
		g.Orientation = geometry.Horizontal
	default:
		return Group{}, fmt.Errorf("unknown orientation %q", gf.Orientation)
	}
	return g, nil
}
