package form

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

func TestFieldKind_Decode(t *testing.T) {
	tests := []struct {
		kind FieldKind
		i    int
		want string
	}{
		{Digit, 0, "0"},
		{Digit, 9, "9"},
		{Digit, 10, "?"},
		{Letter, 0, "A"},
		{Letter, 25, "Z"},
		{Letter, 26, "?"},
		{Letter, -1, "?"},
	}
	for _, tt := range tests {
		if got := tt.kind.Decode(tt.i); got != tt.want {
			t.Errorf("%s.Decode(%d) = %q, want %q", tt.kind, tt.i, got, tt.want)
		}
	}
}

func TestParseFieldKind(t *testing.T) {
	for in, want := range map[string]FieldKind{"": Digit, "digit": Digit, "Number": Digit, "LETTER": Letter} {
		got, err := ParseFieldKind(in)
		if err != nil || got != want {
			t.Errorf("ParseFieldKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFieldKind("emoji"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestField_Names(t *testing.T) {
	for _, f := range Fields {
		parsed, err := ParseField(f.String())
		if err != nil || parsed != f {
			t.Errorf("ParseField(%q) = %v, %v", f.String(), parsed, err)
		}
		if f.Title() == f.String() {
			t.Errorf("%s has no title", f)
		}
	}
	if StudentID.Title() != "Student ID" {
		t.Errorf("StudentID title: %q", StudentID.Title())
	}
	if _, err := ParseField("shoe_size"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestGroup_Extent(t *testing.T) {
	g := NewGroup(1, 3, 12, Letter)
	if cols, rows := g.Extent(); cols != 12 || rows != 26 {
		t.Errorf("vertical extent: got %dx%d, want 12x26", cols, rows)
	}
	g.Orientation = geometry.Horizontal
	if cols, rows := g.Extent(); cols != 26 || rows != 12 {
		t.Errorf("horizontal extent: got %dx%d, want 26x12", cols, rows)
	}
}

func TestQuestionBlock(t *testing.T) {
	qs := QuestionBlock{Col: 2, Row: 32, Count: 75, PerColumn: 15, ColumnStep: 7, Length: 5}.Questions()
	if len(qs) != 75 {
		t.Fatalf("got %d questions, want 75", len(qs))
	}

	tests := []struct {
		q        int
		col, row int
	}{
		{1, 2, 32},
		{15, 2, 46},
		{16, 9, 32},
		{75, 30, 46},
	}
	for _, tt := range tests {
		g := qs[tt.q-1]
		if g.Col != tt.col || g.Row != tt.row {
			t.Errorf("question %d at (%d,%d), want (%d,%d)", tt.q, g.Col, g.Row, tt.col, tt.row)
		}
		if g.Kind != Letter || g.Length != 5 || g.Count != 1 || g.Orientation != geometry.Horizontal {
			t.Errorf("question %d: unexpected group %+v", tt.q, g)
		}
	}
}

func TestBuiltinVariants(t *testing.T) {
	tests := []struct {
		name      string
		questions int
		fields    int
	}{
		{"75", 75, 6},
		{"75q", 75, 6},
		{"150Q", 150, 3},
	}
	for _, tt := range tests {
		v, ok := Builtin(tt.name)
		if !ok {
			t.Fatalf("Builtin(%q) not found", tt.name)
		}
		if err := v.Validate(); err != nil {
			t.Errorf("%s: %v", tt.name, err)
		}
		if v.NumQuestions() != tt.questions || len(v.Fields) != tt.fields {
			t.Errorf("%s: got %d questions and %d fields", tt.name, v.NumQuestions(), len(v.Fields))
		}
	}
	if _, ok := Builtin("300q"); ok {
		t.Error("unexpected builtin 300q")
	}
	if _, ok := Form150.Field(LastName); ok {
		t.Error("Form150 prints no last name")
	}
}

func TestVariant_ValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(v *Variant)
	}{
		{"empty grid", func(v *Variant) { v.Rows = 0 }},
		{"bad layout", func(v *Variant) { v.Layout.WindowTolerance = 1 }},
		{"field off grid", func(v *Variant) { v.Fields[StudentID] = NewGroup(30, 3, 10, Digit) }},
		{"long digit", func(v *Variant) {
			g := NewGroup(0, 0, 1, Digit)
			g.Length = 11
			v.Fields[CourseID] = g
		}},
		{"question off grid", func(v *Variant) { v.Questions = append(v.Questions, NewGroup(0, 47, 1, Letter)) }},
		{"empty group", func(v *Variant) { v.Fields[CourseID] = Group{Count: 0, Length: 10} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{
				Name:    "test",
				Columns: DefaultColumns,
				Rows:    DefaultRows,
				Layout:  DefaultLayout,
				Fields:  map[Field]Group{StudentID: NewGroup(25, 3, 10, Digit)},
			}
			tt.modify(v)
			if err := v.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

const quizYAML = `
name: quiz-20
fields:
  student_id: {col: 25, row: 3, count: 10, kind: digit}
  test_form_code: {col: 4, row: 12, kind: letter, length: 6, orientation: horizontal}
questions:
  - {col: 2, row: 17, count: 20, per_column: 10, column_step: 7, length: 4}
`

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant([]byte(quizYAML))
	if err != nil {
		t.Fatalf("ParseVariant failed: %v", err)
	}
	if v.Name != "quiz-20" || v.Columns != DefaultColumns || v.Rows != DefaultRows || v.Layout != DefaultLayout {
		t.Errorf("defaults not applied: %+v", v)
	}
	if v.NumQuestions() != 20 || v.Questions[10].Col != 9 || v.Questions[0].Length != 4 {
		t.Errorf("questions: %d, q11 col %d", v.NumQuestions(), v.Questions[10].Col)
	}

	code, ok := v.Field(TestFormCode)
	if !ok {
		t.Fatal("test form code missing")
	}
	want := Group{Col: 4, Row: 12, Count: 1, Kind: Letter, Length: 6, Orientation: geometry.Horizontal}
	if code != want {
		t.Errorf("test form code: got %+v, want %+v", code, want)
	}
	if id, _ := v.Field(StudentID); id.Length != 10 || id.Orientation != geometry.Vertical {
		t.Errorf("student id: %+v", id)
	}
}

func TestParseVariant_Errors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "fields: [",
		"unknown field":   "fields: {shoe_size: {col: 1, row: 1}}",
		"unknown kind":    "fields: {student_id: {col: 1, row: 1, kind: emoji}}",
		"bad orientation": "fields: {student_id: {col: 1, row: 1, orientation: diagonal}}",
		"off grid":        "fields: {student_id: {col: 35, row: 1, count: 10}}",
		"partial layout":  "layout: {width_units: 50}",
	}
	for name, doc := range tests {
		if _, err := ParseVariant([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLookup(t *testing.T) {
	v, err := Lookup("150q")
	if err != nil || v != Form150 {
		t.Errorf("Lookup(150q) = %v, %v", v, err)
	}

	path := filepath.Join(t.TempDir(), "quiz.yaml")
	if err := os.WriteFile(path, []byte(quizYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err = Lookup(path)
	if err != nil {
		t.Fatalf("Lookup(%s) failed: %v", path, err)
	}
	if v.Name != "quiz-20" {
		t.Errorf("got variant %q", v.Name)
	}

	if _, err := Lookup(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestField_JSONMapKeys(t *testing.T) {
	in := map[Field]string{StudentID: "4815162342", TestFormCode: "B"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"student_id":"4815162342","test_form_code":"B"}` {
		t.Errorf("got %s", data)
	}

	var out map[Field]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out[StudentID] != "4815162342" || out[TestFormCode] != "B" {
		t.Errorf("got %v", out)
	}
}
