package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"flickr-shapes/internal/models"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// dbfStringSize is the widest character column a dBASE table allows.
const dbfStringSize = 254

// Numeric column widths include the sign. A 64-bit integer needs 20 characters;
// a real keeps 15 decimals and up to 16 integer digits.
const (
	dbfIntegerSize   = 20
	dbfRealSize      = 33
	dbfRealPrecision = 15
)

var shapefileExtensions = []string{".shp", ".shx", ".dbf", ".prj"}

// ShapefileDataset writes every group as an ESRI shapefile in one directory.
// Groups are written into a hidden staging directory and moved into place on Close.
type ShapefileDataset struct {
	dir     string
	staging string
	groups  []*shapefileGroup
}

type shapefileGroup struct {
	name   string
	writer *shp.Writer
	schema models.Schema
	count  int
}

// OpenShapefileDataset creates dir if needed and prepares a staging area inside it.
func OpenShapefileDataset(dir string) (*ShapefileDataset, error) {
	if dir == "" {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("shapefile output path is empty")}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	staging, err := os.MkdirTemp(dir, ".partial-")
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	return &ShapefileDataset{dir: dir, staging: staging}, nil
}

// CreateGroup creates <name>.shp with its index, attribute table and projection.
func (d *ShapefileDataset) CreateGroup(ctx context.Context, name string, schema models.Schema) (Group, error) {
	if err := validateGroupName(name); err != nil {
		return nil, &StoreError{Op: "create group", Group: name, Err: err}
	}

	fields := make([]shp.Field, 0, len(schema))
	for _, f := range schema {
		fields = append(fields, dbfField(f))
	}

	base := filepath.Join(d.staging, name)
	writer, err := shp.Create(base+".shp", shp.POLYGON)
	if err != nil {
		return nil, &StoreError{Op: "create group", Group: name, Err: err}
	}
	if err := writer.SetFields(fields); err != nil {
		writer.Close()
		return nil, &StoreError{Op: "create group", Group: name, Err: err}
	}
	if err := os.WriteFile(base+".prj", []byte(models.SpatialReferenceWKT), 0o644); err != nil {
		writer.Close()
		return nil, &StoreError{Op: "create group", Group: name, Err: err}
	}

	g := &shapefileGroup{name: name, writer: writer, schema: schema}
	d.groups = append(d.groups, g)
	return g, nil
}

// Close finishes every shapefile and moves it out of the staging directory.
// Files are moved only once every writer is closed; if a move fails, the
// files already moved are removed along with the staging directory.
func (d *ShapefileDataset) Close(ctx context.Context) error {
	for _, g := range d.groups {
		g.writer.Close()
	}
	for _, g := range d.groups {
		if err := fixDbfName(filepath.Join(d.staging, g.name)); err != nil {
			d.discard(nil)
			return &StoreError{Op: "close", Group: g.name, Err: err}
		}
	}

	var moved []string
	for _, g := range d.groups {
		for _, ext := range shapefileExtensions {
			src := filepath.Join(d.staging, g.name+ext)
			dst := filepath.Join(d.dir, g.name+ext)
			if err := os.Rename(src, dst); err != nil {
				d.discard(moved)
				return &StoreError{Op: "close", Group: g.name, Err: err}
			}
			moved = append(moved, dst)
		}
	}
	if err := os.RemoveAll(d.staging); err != nil {
		return &StoreError{Op: "close", Err: err}
	}
	return nil
}

// discard removes the given output files and the staging directory.
func (d *ShapefileDataset) discard(moved []string) {
	for _, path := range moved {
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not remove partial output")
		}
	}
	if err := os.RemoveAll(d.staging); err != nil {
		log.Warn().Err(err).Str("path", d.staging).Msg("could not remove staging directory")
	}
}

// fixDbfName renames the attribute table go-shp stages as "<base>dbf" to "<base>.dbf".
func fixDbfName(base string) error {
	if _, err := os.Stat(base + "dbf"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Rename(base+"dbf", base+".dbf")
}

// Abort closes every writer and removes the staging directory.
func (d *ShapefileDataset) Abort(ctx context.Context) error {
	for _, g := range d.groups {
		g.writer.Close()
	}
	if err := os.RemoveAll(d.staging); err != nil {
		return &StoreError{Op: "abort", Err: err}
	}
	return nil
}

func (g *shapefileGroup) Name() string {
	return g.name
}

func (g *shapefileGroup) Append(ctx context.Context, feature *models.Feature) error {
	polygon := shp.Polygon(*shp.NewPolyLine(shapeParts(feature.Geometry)))
	row := int(g.writer.Write(&polygon))

	for i, v := range feature.Values() {
		if err := g.writer.WriteAttribute(row, i, dbfValue(v)); err != nil {
			return fmt.Errorf("field %s: %w", g.schema[i].Name, err)
		}
	}
	g.count++
	return nil
}

// shapeParts converts polygon into shapefile parts, outer ring clockwise and holes counter-clockwise.
func shapeParts(polygon orb.Polygon) [][]shp.Point {
	parts := make([][]shp.Point, 0, len(polygon))
	for _, ring := range orientRings(polygon, orb.CW) {
		points := make([]shp.Point, 0, len(ring))
		for _, p := range ring {
			points = append(points, shp.Point{X: p.Lon(), Y: p.Lat()})
		}
		parts = append(parts, points)
	}
	return parts
}

func dbfField(f models.Field) shp.Field {
	switch f.Type {
	case models.FieldInteger:
		return shp.NumberField(f.Name, dbfIntegerSize)
	case models.FieldReal:
		return shp.FloatField(f.Name, dbfRealSize, dbfRealPrecision)
	case models.FieldDate:
		return shp.DateField(f.Name)
	}
	return shp.StringField(f.Name, dbfStringSize)
}

// dbfValue converts a feature value into one WriteAttribute accepts.
func dbfValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.Format("20060102")
	case string:
		return truncateUTF8(t, dbfStringSize)
	}
	return v
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
