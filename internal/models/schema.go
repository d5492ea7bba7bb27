package models

// FieldType is the storage type of an attribute column.
type FieldType int

const (
	FieldInteger FieldType = iota
	FieldString
	FieldReal
	FieldDate
)

func (t FieldType) String() string {
	switch t {
	case FieldInteger:
		return "integer"
	case FieldString:
		return "string"
	case FieldReal:
		return "real"
	case FieldDate:
		return "date"
	}
	return "unknown"
}

// Field is one attribute column of a group.
type Field struct {
	Name string
	Type FieldType
}

// Schema is the ordered attribute layout shared by every group of a dataset.
type Schema []Field

// FeatureSchema is the fixed layout of every group, in column order.
var FeatureSchema = Schema{
	{Name: "woe_id", Type: FieldInteger},
	{Name: "place_id", Type: FieldString},
	{Name: "place_type", Type: FieldString},
	{Name: "label", Type: FieldString},
	{Name: "alpha", Type: FieldReal},
	{Name: "donuthole", Type: FieldInteger},
	{Name: "points", Type: FieldInteger},
	{Name: "edges", Type: FieldInteger},
	{Name: "created", Type: FieldDate},
}

// PlaceholderGroup is the name of the empty group every dataset is created with.
const PlaceholderGroup = "Flickr Alpha Shapes"

// SpatialReferenceWKT describes the geographic WGS84 coordinate system (EPSG:4326).
const SpatialReferenceWKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// SRID is the EPSG code of SpatialReferenceWKT.
const SRID = 4326
