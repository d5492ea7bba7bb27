package repository

import (
	"context"
	"errors"
	"sort"

	"flickr-shapes/internal/models"

	"github.com/rs/zerolog/log"
)

// Router maps group keys to the groups of a dataset, creating each group
// with models.FeatureSchema the first time its key is seen.
type Router struct {
	dataset Dataset
	groups  map[string]Group
}

// NewRouter creates a router over dataset.
func NewRouter(dataset Dataset) *Router {
	return &Router{
		dataset: dataset,
		groups:  make(map[string]Group),
	}
}

// GetOrCreateGroup returns the group registered under key, creating it if needed.
func (r *Router) GetOrCreateGroup(ctx context.Context, key string) (Group, error) {
	if g, ok := r.groups[key]; ok {
		return g, nil
	}

	g, err := r.dataset.CreateGroup(ctx, key, models.FeatureSchema)
	if err != nil {
		return nil, asStoreError("create group", key, err)
	}
	r.groups[key] = g
	log.Debug().Str("group", key).Msg("group created")

	return g, nil
}

// Persist appends feature to the group for key.
func (r *Router) Persist(ctx context.Context, key string, feature *models.Feature) error {
	g, err := r.GetOrCreateGroup(ctx, key)
	if err != nil {
		return err
	}
	if err := g.Append(ctx, feature); err != nil {
		return asStoreError("append feature", key, err)
	}
	return nil
}

// Groups returns the registered group names in sorted order.
func (r *Router) Groups() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func asStoreError(op, group string, err error) error {
	var serr *StoreError
	if errors.As(err, &serr) {
		return err
	}
	return &StoreError{Op: op, Group: group, Err: err}
}
