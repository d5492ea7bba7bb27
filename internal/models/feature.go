package models

import (
	"time"

	"github.com/paulmach/orb"
)

// Place is a named location from the Flickr shapefiles dataset, identified by its Where On Earth ID.
type Place struct {
	PlaceTypeID int
	WoeID       int
	PlaceID     string
	PlaceType   string
	Label       string
}

// Shape holds the alpha shape parameters of one boundary computed for a place.
type Shape struct {
	Alpha       float64
	IsDonuthole int
	Points      int
	Edges       int
	Created     time.Time
	URL         string
}

// Feature is the join of a place, one of its shapes and the polygon assembled from the shape's rings.
type Feature struct {
	Place    Place
	Shape    Shape
	Geometry orb.Polygon
}

// Values returns the attribute values of the feature in FeatureSchema order.
func (f *Feature) Values() []interface{} {
	return []interface{}{
		f.Place.WoeID,
		f.Place.PlaceID,
		f.Place.PlaceType,
		f.Place.Label,
		f.Shape.Alpha,
		f.Shape.IsDonuthole,
		f.Shape.Points,
		f.Shape.Edges,
		f.Shape.Created,
	}
}
