package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flickr-shapes/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONDataset keeps each group as a feature collection and writes it to
// <dir>/<group>.geojson on Close. Nothing is written before Close.
type GeoJSONDataset struct {
	dir    string
	groups []*geojsonGroup
}

type geojsonGroup struct {
	name       string
	schema     models.Schema
	collection *geojson.FeatureCollection
}

// OpenGeoJSONDataset creates dir if needed.
func OpenGeoJSONDataset(dir string) (*GeoJSONDataset, error) {
	if dir == "" {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("geojson output path is empty")}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	return &GeoJSONDataset{dir: dir}, nil
}

func (d *GeoJSONDataset) CreateGroup(ctx context.Context, name string, schema models.Schema) (Group, error) {
	if err := validateGroupName(name); err != nil {
		return nil, &StoreError{Op: "create group", Group: name, Err: err}
	}
	g := &geojsonGroup{
		name:       name,
		schema:     schema,
		collection: geojson.NewFeatureCollection(),
	}
	d.groups = append(d.groups, g)
	return g, nil
}

// Close writes every collection to a temporary file and renames it into place.
func (d *GeoJSONDataset) Close(ctx context.Context) error {
	for _, g := range d.groups {
		if err := d.write(g); err != nil {
			return &StoreError{Op: "close", Group: g.name, Err: err}
		}
	}
	return nil
}

func (d *GeoJSONDataset) write(g *geojsonGroup) error {
	data, err := g.collection.MarshalJSON()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, ".partial-*.geojson")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(d.dir, g.name+".geojson"))
}

// Abort drops the buffered collections.
func (d *GeoJSONDataset) Abort(ctx context.Context) error {
	d.groups = nil
	return nil
}

func (g *geojsonGroup) Name() string {
	return g.name
}

func (g *geojsonGroup) Append(ctx context.Context, feature *models.Feature) error {
	// RFC 7946: exterior rings counter-clockwise, holes clockwise.
	f := geojson.NewFeature(orientRings(feature.Geometry, orb.CCW))
	for i, v := range feature.Values() {
		if t, ok := v.(time.Time); ok {
			v = t.Format("2006-01-02")
		}
		f.Properties[g.schema[i].Name] = v
	}
	g.collection.Append(f)
	return nil
}
