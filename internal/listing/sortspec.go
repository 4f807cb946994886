// Package listing implements the folder listing-and-sort engine: enumerate
// a directory's direct children, optionally sort them by display name or
// modification time, and return their locators.
package listing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSort is returned by ParseDirection and ParseField for tokens
// outside the accepted vocabulary.
var ErrInvalidSort = errors.New("listing: invalid sort token")

// Direction is the requested sort order.
type Direction int

// Sort directions. DirectionNone keeps enumeration order.
const (
	DirectionNone Direction = iota
	Ascending
	Descending
)

// Field is the entry attribute to sort by.
type Field int

// Sort fields. FieldNone keeps enumeration order.
const (
	FieldNone Field = iota
	FieldName
	FieldDate
)

// SortSpec pairs a direction with a field. The zero value requests
// enumeration order.
type SortSpec struct {
	Direction Direction
	Field     Field
}

// Active reports whether the spec requests a sort. Both halves must be
// non-none; either being none means enumeration order.
func (s SortSpec) Active() bool {
	return s.Direction != DirectionNone && s.Field != FieldNone
}

func (s SortSpec) String() string {
	return s.Direction.String() + "/" + s.Field.String()
}

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	case DirectionNone:
		return "none"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldDate:
		return "date"
	case FieldNone:
		return "none"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseDirection accepts "none", "asc", "desc", "ascending" and
// "descending", case-insensitively. The empty string means none.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return DirectionNone, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return DirectionNone, fmt.Errorf("%w: direction %q", ErrInvalidSort, s)
	}
}

// ParseField accepts "none", "name" and "date", case-insensitively. The
// empty string means none.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FieldNone, nil
	case "name":
		return FieldName, nil
	case "date":
		return FieldDate, nil
	default:
		return FieldNone, fmt.Errorf("%w: field %q", ErrInvalidSort, s)
	}
}

// ParseSortSpec parses both tokens. Errors from either half are joined.
func ParseSortSpec(direction, field string) (SortSpec, error) {
	d, dErr := ParseDirection(direction)
	f, fErr := ParseField(field)

	if err := errors.Join(dErr, fErr); err != nil {
		return SortSpec{Direction: d, Field: f}, err
	}

	return SortSpec{Direction: d, Field: f}, nil
}
