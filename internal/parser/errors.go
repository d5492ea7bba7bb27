package parser

import (
	"fmt"
)

// MissingAttributeError indicates a required XML attribute is absent
type MissingAttributeError struct {
	Element   string
	Attribute string
	Line      int
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("line %d: <%s> is missing required attribute %q", e.Line, e.Element, e.Attribute)
}

// FormatError indicates a value that does not parse as its expected type
type FormatError struct {
	Element   string
	Attribute string
	Value     string
	Line      int
	Err       error
}

func (e *FormatError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("line %d: <%s> has malformed content %q: %v", e.Line, e.Element, e.Value, e.Err)
	}
	return fmt.Sprintf("line %d: <%s %s=%q> is malformed: %v", e.Line, e.Element, e.Attribute, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// GeometryError indicates ring data that does not form a valid polygon
type GeometryError struct {
	WKT    string
	Reason string
	Line   int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("line %d: invalid polygon geometry: %s", e.Line, e.Reason)
}

// SyntaxError indicates input that is not well-formed XML or breaks the places/place/shape nesting
type SyntaxError struct {
	Element string
	Line    int
	Err     error
}

func (e *SyntaxError) Error() string {
	if e.Element == "" {
		return fmt.Sprintf("line %d: malformed document: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: malformed document at <%s>: %v", e.Line, e.Element, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
