// Package form describes the printed layout of a bubble sheet: where the
// registration marks sit relative to each other, how many grid cells the
// sheet is divided into, and which runs of cells make up each field and
// question.
//
// Every value in this package is an immutable description. A Variant is
// threaded explicitly into the corner locator and the grid, so sheets with a
// different question count can be swapped in at run time.
package form

import (
	"fmt"
	"strings"

	"github.com/ironsheep/bubblescan/internal/geometry"
)

// KeyStudentID is the student ID that marks a sheet as an answer key.
const KeyStudentID = "9999999999"

// Letters is the alphabet used by letter fields, in bubble order.
const Letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// FieldKind is the kind of character a single field encodes.
type FieldKind int

const (
	Digit FieldKind = iota
	Letter
)

func (k FieldKind) String() string {
	if k == Letter {
		return "letter"
	}
	return "digit"
}

// DefaultLength is the number of bubbles a field of this kind has when a
// layout does not override it.
func (k FieldKind) DefaultLength() int {
	if k == Letter {
		return len(Letters)
	}
	return 10
}

// Decode returns the character for bubble index i. Out of range indexes
// decode to "?".
func (k FieldKind) Decode(i int) string {
	switch k {
	case Letter:
		if i >= 0 && i < len(Letters) {
			return Letters[i : i+1]
		}
	default:
		if i >= 0 && i <= 9 {
			return fmt.Sprintf("%d", i)
		}
	}
	return "?"
}

// ParseFieldKind parses "digit"/"number" or "letter".
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(s) {
	case "", "digit", "number":
		return Digit, nil
	case "letter":
		return Letter, nil
	}
	return Digit, fmt.Errorf("unknown field kind %q", s)
}

// Field names a value printed on the sheet.
type Field int

const (
	LastName Field = iota
	FirstName
	MiddleName
	TestFormCode
	StudentID
	CourseID
)

// Fields lists every field in output order.
var Fields = []Field{LastName, FirstName, MiddleName, TestFormCode, StudentID, CourseID}

var fieldNames = map[Field]string{
	LastName:     "last_name",
	FirstName:    "first_name",
	MiddleName:   "middle_name",
	TestFormCode: "test_form_code",
	StudentID:    "student_id",
	CourseID:     "course_id",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

var fieldTitles = map[Field]string{
	LastName:     "Last Name",
	FirstName:    "First Name",
	MiddleName:   "Middle Name",
	TestFormCode: "Test Form Code",
	StudentID:    "Student ID",
	CourseID:     "Course ID",
}

// Title is the column heading used for the field in exported results.
func (f Field) Title() string {
	if title, ok := fieldTitles[f]; ok {
		return title
	}
	return f.String()
}

// MarshalText encodes the field by name, so maps keyed by Field serialize
// with readable keys.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a field name written by MarshalText.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseField parses a field name such as "student_id".
func ParseField(s string) (Field, error) {
	for f, name := range fieldNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// Group describes a run of fields starting at grid cell (Col, Row).
//
// With Vertical orientation each field is a column of Length bubbles running
// down from the start row, and successive fields move one column right. With
// Horizontal orientation each field is a row of bubbles running right and
// successive fields move one row down.
type Group struct {
	Col         int                  `yaml:"col"`
	Row         int                  `yaml:"row"`
	Count       int                  `yaml:"count"`
	Kind        FieldKind            `yaml:"-"`
	Length      int                  `yaml:"length"`
	Orientation geometry.Orientation `yaml:"-"`
}

// NewGroup returns a group of count fields of kind, with the kind's default
// length and vertical orientation.
func NewGroup(col, row, count int, kind FieldKind) Group {
	return Group{
		Col:         col,
		Row:         row,
		Count:       count,
		Kind:        kind,
		Length:      kind.DefaultLength(),
		Orientation: geometry.Vertical,
	}
}

// Extent returns the number of columns and rows the group covers.
func (g Group) Extent() (cols, rows int) {
	if g.Orientation == geometry.Horizontal {
		return g.Length, g.Count
	}
	return g.Count, g.Length
}

// Layout is the nominal placement of the registration marks, measured in
// L-mark unit lengths from the L-mark's outer corner.
type Layout struct {
	// WidthUnits is the distance to the outer (right) edge of the right-hand
	// square marks.
	WidthUnits float64 `yaml:"width_units"`

	// HeightUnits is the distance to the outer (bottom) edge of the bottom
	// square marks.
	HeightUnits float64 `yaml:"height_units"`

	// WindowTolerance is the half-size of each square's acceptance window as
	// a fraction of the nominal span along that axis.
	WindowTolerance float64 `yaml:"window_tolerance"`
}

// DefaultLayout is the mark placement of the printed sheets.
var DefaultLayout = Layout{WidthUnits: 50, HeightUnits: 64, WindowTolerance: 0.2}

// Validate reports whether the layout describes a usable sheet.
func (l Layout) Validate() error {
	if l.WidthUnits <= 1 || l.HeightUnits <= 1 {
		return fmt.Errorf("layout must be larger than one unit, got %gx%g", l.WidthUnits, l.HeightUnits)
	}
	if l.WindowTolerance <= 0 || l.WindowTolerance >= 1 {
		return fmt.Errorf("window tolerance must be in (0, 1), got %g", l.WindowTolerance)
	}
	return nil
}
