package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"flickr-shapes/internal/models"

	"github.com/rs/zerolog/log"
)

// Machine is the streaming state machine that turns places XML events into
// features. A Machine handles a single document and is not safe for
// concurrent use.
type Machine struct {
	assembler *Assembler
	location  *time.Location
	progress  io.Writer

	stack    []*frame
	line     int
	features int
	skipped  int
}

// Option configures a Machine.
type Option func(*Machine)

// WithProgress sets where the "<label> (<woe_id>)" line of each place is written.
func WithProgress(w io.Writer) Option {
	return func(m *Machine) {
		m.progress = w
	}
}

// WithLocation sets the time zone shape creation dates are computed in.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) {
		m.location = loc
	}
}

// NewMachine creates a machine that hands finished ring sets to assembler.
func NewMachine(assembler *Assembler, opts ...Option) *Machine {
	m := &Machine{
		assembler: assembler,
		location:  time.Local,
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Features returns the number of features persisted so far.
func (m *Machine) Features() int {
	return m.features
}

// Skipped returns the number of polylines elements closed without any ring.
func (m *Machine) Skipped() int {
	return m.skipped
}

// Parse reads a whole document from r and feeds its events to the machine.
func (m *Machine) Parse(ctx context.Context, r io.Reader) error {
	decoder := xml.NewDecoder(r)
	sawRoot := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			line, _ := decoder.InputPos()
			return &SyntaxError{Element: m.current(), Line: line, Err: err}
		}
		m.line, _ = decoder.InputPos()

		switch t := token.(type) {
		case xml.StartElement:
			sawRoot = true
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = a.Value
			}
			err = m.StartElement(t.Name.Local, attrs)
		case xml.EndElement:
			err = m.EndElement(ctx, t.Name.Local)
		case xml.CharData:
			err = m.CharData(string(t))
		}
		if err != nil {
			return err
		}
	}

	if !sawRoot {
		return &SyntaxError{Line: m.line, Err: errors.New("document has no root element")}
	}
	if len(m.stack) > 0 {
		return &SyntaxError{Element: m.current(), Line: m.line, Err: io.ErrUnexpectedEOF}
	}
	return nil
}

// StartElement opens a new context for the element name.
func (m *Machine) StartElement(name string, attrs map[string]string) error {
	f := &frame{kind: kindOf(name), name: name, attrs: attrs}

	switch f.kind {
	case kindPlace:
		if m.enclosing(kindPlace) != nil {
			return m.syntaxError(name, "place elements cannot nest")
		}
		place, err := m.parsePlace(name, attrs)
		if err != nil {
			return err
		}
		f.place = place
		fmt.Fprintf(m.progress, "%s (%d)\n", place.Label, place.WoeID)

	case kindShape:
		if m.enclosing(kindPlace) == nil {
			return m.syntaxError(name, "shape outside of a place")
		}
		shape, err := m.parseShape(name, attrs)
		if err != nil {
			return err
		}
		f.shape = shape

	case kindShapefile:
		parent := m.enclosing(kindShape)
		if parent == nil {
			return m.syntaxError(name, "shapefile outside of a shape")
		}
		url, err := m.attr(name, attrs, "url")
		if err != nil {
			return err
		}
		parent.shape.URL = url

	case kindRingSet:
		if m.enclosing(kindShape) == nil {
			return m.syntaxError(name, "polylines outside of a shape")
		}
		bbox, err := m.attr(name, attrs, "bbox")
		if err != nil {
			return err
		}
		f.bbox = bbox
		f.rings = []string{}

	case kindRing:
		if m.enclosing(kindRingSet) == nil {
			return m.syntaxError(name, "polyline outside of polylines")
		}
	}

	m.stack = append(m.stack, f)
	return nil
}

// CharData appends text to the innermost polyline; any other text is ignored.
func (m *Machine) CharData(text string) error {
	if len(m.stack) == 0 {
		return nil
	}
	if top := m.stack[len(m.stack)-1]; top.kind == kindRing {
		top.text.WriteString(text)
	}
	return nil
}

// EndElement closes the innermost context, which must be name.
func (m *Machine) EndElement(ctx context.Context, name string) error {
	if len(m.stack) == 0 {
		return m.syntaxError(name, "close without matching open")
	}
	top := m.stack[len(m.stack)-1]
	if top.name != name {
		return m.syntaxError(name, fmt.Sprintf("expected </%s>", top.name))
	}
	m.stack = m.stack[:len(m.stack)-1]

	switch top.kind {
	case kindRing:
		ring, err := FinalizeRing(top.text.String())
		if err != nil {
			var ferr *FormatError
			if errors.As(err, &ferr) {
				ferr.Line = m.line
			}
			return err
		}
		parent := m.enclosing(kindRingSet)
		parent.rings = append(parent.rings, ring)

	case kindRingSet:
		return m.closeRingSet(ctx, top)
	}

	return nil
}

func (m *Machine) closeRingSet(ctx context.Context, f *frame) error {
	place := m.enclosing(kindPlace).place
	shape := m.enclosing(kindShape).shape

	if len(f.rings) == 0 {
		m.skipped++
		log.Warn().
			Int("woe_id", place.WoeID).
			Str("label", place.Label).
			Int("line", m.line).
			Msg("polylines without rings, no feature written")
		return nil
	}

	if _, err := m.assembler.Assemble(ctx, f.rings, *place, *shape); err != nil {
		var gerr *GeometryError
		if errors.As(err, &gerr) {
			gerr.Line = m.line
		}
		return err
	}
	m.features++
	return nil
}

func (m *Machine) parsePlace(name string, attrs map[string]string) (*models.Place, error) {
	var (
		place models.Place
		err   error
	)
	if place.PlaceTypeID, err = m.intAttr(name, attrs, "place_type_id"); err != nil {
		return nil, err
	}
	if place.WoeID, err = m.intAttr(name, attrs, "woe_id"); err != nil {
		return nil, err
	}
	if place.PlaceID, err = m.attr(name, attrs, "place_id"); err != nil {
		return nil, err
	}
	if place.PlaceType, err = m.attr(name, attrs, "place_type"); err != nil {
		return nil, err
	}
	if place.Label, err = m.attr(name, attrs, "label"); err != nil {
		return nil, err
	}
	return &place, nil
}

func (m *Machine) parseShape(name string, attrs map[string]string) (*models.Shape, error) {
	var (
		shape models.Shape
		err   error
	)
	if shape.Alpha, err = m.floatAttr(name, attrs, "alpha"); err != nil {
		return nil, err
	}
	if shape.IsDonuthole, err = m.intAttr(name, attrs, "is_donuthole"); err != nil {
		return nil, err
	}
	if shape.Points, err = m.intAttr(name, attrs, "points"); err != nil {
		return nil, err
	}
	if shape.Edges, err = m.intAttr(name, attrs, "edges"); err != nil {
		return nil, err
	}
	created, err := m.floatAttr(name, attrs, "created")
	if err != nil {
		return nil, err
	}
	if shape.Created, err = calendarDate(created, m.location); err != nil {
		return nil, &FormatError{Element: name, Attribute: "created", Value: attrs["created"], Line: m.line, Err: err}
	}
	return &shape, nil
}

// Timestamps must fall within years 1 to 9999.
var (
	minTimestamp = float64(time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix())
	maxTimestamp = float64(time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix())
)

// calendarDate returns midnight of the day the Unix timestamp ts falls on in loc.
func calendarDate(ts float64, loc *time.Location) (time.Time, error) {
	if math.IsNaN(ts) || ts < minTimestamp || ts > maxTimestamp {
		return time.Time{}, fmt.Errorf("timestamp %v out of range", ts)
	}
	sec, frac := math.Modf(ts)
	t := time.Unix(int64(sec), int64(frac*1e9)).In(loc)
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc), nil
}

func (m *Machine) attr(element string, attrs map[string]string, key string) (string, error) {
	v, ok := attrs[key]
	if !ok {
		return "", &MissingAttributeError{Element: element, Attribute: key, Line: m.line}
	}
	return v, nil
}

func (m *Machine) intAttr(element string, attrs map[string]string, key string) (int, error) {
	v, err := m.attr(element, attrs, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &FormatError{Element: element, Attribute: key, Value: v, Line: m.line, Err: err}
	}
	return n, nil
}

func (m *Machine) floatAttr(element string, attrs map[string]string, key string) (float64, error) {
	v, err := m.attr(element, attrs, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &FormatError{Element: element, Attribute: key, Value: v, Line: m.line, Err: err}
	}
	return f, nil
}

// enclosing returns the innermost open frame of kind k, or nil.
func (m *Machine) enclosing(k elementKind) *frame {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].kind == k {
			return m.stack[i]
		}
	}
	return nil
}

func (m *Machine) current() string {
	if len(m.stack) == 0 {
		return ""
	}
	return m.stack[len(m.stack)-1].name
}

func (m *Machine) syntaxError(element, msg string) error {
	return &SyntaxError{Element: element, Line: m.line, Err: errors.New(msg)}
}
