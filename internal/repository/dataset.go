package repository

import (
	"context"
	"fmt"
	"strings"

	"flickr-shapes/internal/models"
)

// Supported output drivers.
const (
	DriverShapefile = "shapefile"
	DriverGeoJSON   = "geojson"
	DriverPostGIS   = "postgis"
)

// Dataset is an output store made of named groups sharing one schema.
// Close flushes everything written; Abort releases the store and discards
// what it can. Exactly one of them is called, once.
type Dataset interface {
	CreateGroup(ctx context.Context, name string, schema models.Schema) (Group, error)
	Close(ctx context.Context) error
	Abort(ctx context.Context) error
}

// Group is an append-only partition of a dataset.
type Group interface {
	Name() string
	Append(ctx context.Context, feature *models.Feature) error
}

// StoreError indicates the output store rejected an operation
type StoreError struct {
	Op    string
	Group string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Group, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Options selects and locates the output dataset.
type Options struct {
	Driver   string
	Path     string
	DBSource string
}

// Open opens the dataset named by opts.Driver.
func Open(ctx context.Context, opts Options) (Dataset, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverShapefile:
		return OpenShapefileDataset(opts.Path)
	case DriverGeoJSON:
		return OpenGeoJSONDataset(opts.Path)
	case DriverPostGIS:
		return OpenPostgresDataset(ctx, opts.DBSource)
	}
	return nil, &StoreError{Op: "open", Err: fmt.Errorf("unknown output driver %q", opts.Driver)}
}

// validateGroupName rejects names that cannot be used as a file name.
func validateGroupName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid group name %q", name)
	}
	if strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("group name %q contains a path separator", name)
	}
	return nil
}
