package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flickr-shapes/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// DefaultDateLayout groups features by calendar day.
const DefaultDateLayout = "2006-01-02"

// FeatureRouter interface for dependency injection
type FeatureRouter interface {
	Persist(ctx context.Context, key string, feature *models.Feature) error
}

// Assembler turns the finished rings of one polylines element into a feature
// and hands it to the router under its date key.
type Assembler struct {
	router     FeatureRouter
	dateLayout string
}

// NewAssembler creates an assembler keyed by dateLayout, DefaultDateLayout when empty.
func NewAssembler(router FeatureRouter, dateLayout string) *Assembler {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	return &Assembler{router: router, dateLayout: dateLayout}
}

// GroupKey returns the name of the group a shape created at t belongs to.
func (a *Assembler) GroupKey(t time.Time) string {
	return t.Format(a.dateLayout)
}

// Assemble builds the polygon from rings, the first being the outer boundary
// and the rest holes, and persists it together with place and shape.
func (a *Assembler) Assemble(ctx context.Context, rings []string, place models.Place, shape models.Shape) (*models.Feature, error) {
	polygon, err := ParsePolygon(BuildWKT(rings))
	if err != nil {
		return nil, err
	}

	feature := &models.Feature{
		Place:    place,
		Shape:    shape,
		Geometry: polygon,
	}

	if err := a.router.Persist(ctx, a.GroupKey(shape.Created), feature); err != nil {
		return nil, err
	}

	return feature, nil
}

// BuildWKT wraps each ring in its own parenthesis group inside one POLYGON.
func BuildWKT(rings []string) string {
	var b strings.Builder
	b.WriteString("POLYGON(")
	for i, ring := range rings {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		b.WriteString(ring)
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

// ParsePolygon parses a polygon description. Every ring needs at least three
// distinct points; open rings are closed on their first point.
func ParsePolygon(s string) (orb.Polygon, error) {
	polygon, err := wkt.UnmarshalPolygon(s)
	if err != nil {
		return nil, &GeometryError{WKT: s, Reason: err.Error()}
	}
	if len(polygon) == 0 {
		return nil, &GeometryError{WKT: s, Reason: "polygon has no rings"}
	}

	for i, ring := range polygon {
		distinct := make(map[orb.Point]struct{}, len(ring))
		for _, p := range ring {
			distinct[p] = struct{}{}
		}
		if len(distinct) < 3 {
			return nil, &GeometryError{
				WKT:    s,
				Reason: fmt.Sprintf("ring %d has %d distinct points, need at least 3", i, len(distinct)),
			}
		}
		if !ring.Closed() {
			polygon[i] = append(ring, ring[0])
		}
	}

	return polygon, nil
}
