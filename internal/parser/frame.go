package parser

import (
	"strings"

	"flickr-shapes/internal/models"
)

// elementKind is the kind of context an open element establishes.
type elementKind int

const (
	kindOther elementKind = iota
	kindPlaces
	kindPlace
	kindShape
	kindShapefile
	kindRingSet
	kindRing
)

func kindOf(name string) elementKind {
	switch name {
	case "places":
		return kindPlaces
	case "place":
		return kindPlace
	case "shape":
		return kindShape
	case "shapefile":
		return kindShapefile
	case "polylines":
		return kindRingSet
	case "polyline":
		return kindRing
	}
	return kindOther
}

func (k elementKind) String() string {
	switch k {
	case kindPlaces:
		return "places"
	case kindPlace:
		return "place"
	case kindShape:
		return "shape"
	case kindShapefile:
		return "shapefile"
	case kindRingSet:
		return "polylines"
	case kindRing:
		return "polyline"
	}
	return "other"
}

// frame is one open element. The fields used depend on kind and live exactly
// as long as the element is open.
type frame struct {
	kind  elementKind
	name  string
	attrs map[string]string

	place *models.Place // kindPlace
	shape *models.Shape // kindShape
	bbox  string        // kindRingSet
	rings []string      // kindRingSet
	text  strings.Builder
}
