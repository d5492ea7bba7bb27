package parser

import (
	"context"
	"testing"
	"time"

	"flickr-shapes/internal/models"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFeatureRouter is a mock implementation of the FeatureRouter interface
type MockFeatureRouter struct {
	mock.Mock
}

func (m *MockFeatureRouter) Persist(ctx context.Context, key string, feature *models.Feature) error {
	args := m.Called(ctx, key, feature)
	return args.Error(0)
}

func TestBuildWKT(t *testing.T) {
	tests := []struct {
		name     string
		rings    []string
		expected string
	}{
		{
			name:     "single ring",
			rings:    []string{"0 0,1 0,1 1,0 0"},
			expected: "POLYGON((0 0,1 0,1 1,0 0))",
		},
		{
			name:     "outer ring and hole in order",
			rings:    []string{"0 0,10 0,10 10,0 0", "2 2,4 2,4 4,2 2"},
			expected: "POLYGON((0 0,10 0,10 10,0 0),(2 2,4 2,4 4,2 2))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildWKT(tt.rings))
		})
	}
}

func TestParsePolygon(t *testing.T) {
	t.Run("closed ring", func(t *testing.T) {
		polygon, err := ParsePolygon("POLYGON((0 0,1 0,1 1,0 1,0 0))")
		require.NoError(t, err)
		require.Len(t, polygon, 1)
		assert.Len(t, polygon[0], 5)
	})

	t.Run("open ring is closed", func(t *testing.T) {
		polygon, err := ParsePolygon("POLYGON((0 0,1 0,1 1))")
		require.NoError(t, err)
		require.Len(t, polygon, 1)
		assert.Equal(t, orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, polygon[0])
	})

	t.Run("too few distinct points", func(t *testing.T) {
		_, err := ParsePolygon("POLYGON((2 1,4 3,2 1))")
		var gerr *GeometryError
		require.ErrorAs(t, err, &gerr)
		assert.Contains(t, gerr.Reason, "ring 0")
	})

	t.Run("degenerate hole", func(t *testing.T) {
		_, err := ParsePolygon("POLYGON((0 0,10 0,10 10,0 0),(1 1,1 1,1 1))")
		var gerr *GeometryError
		require.ErrorAs(t, err, &gerr)
		assert.Contains(t, gerr.Reason, "ring 1")
	})

	t.Run("not a polygon", func(t *testing.T) {
		_, err := ParsePolygon("LINESTRING(0 0,1 1)")
		var gerr *GeometryError
		assert.ErrorAs(t, err, &gerr)
	})
}

func TestAssembler_Assemble(t *testing.T) {
	place := models.Place{PlaceTypeID: 7, WoeID: 123, PlaceID: "abc", PlaceType: "locality", Label: "Test"}
	shape := models.Shape{
		Alpha:   0.00015,
		Points:  5,
		Edges:   4,
		Created: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name        string
		layout      string
		rings       []string
		expectedKey string
		mockError   error
		expectError bool
	}{
		{
			name:        "default layout keys by day",
			rings:       []string{"0 0,1 0,1 1,0 1,0 0"},
			expectedKey: "1970-01-01",
		},
		{
			name:        "monthly layout",
			layout:      "2006-01",
			rings:       []string{"0 0,1 0,1 1,0 1,0 0"},
			expectedKey: "1970-01",
		},
		{
			name:        "router error",
			rings:       []string{"0 0,1 0,1 1,0 1,0 0"},
			expectedKey: "1970-01-01",
			mockError:   assert.AnError,
			expectError: true,
		},
		{
			name:        "invalid geometry never reaches the router",
			rings:       []string{"0 0,0 0"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mockRouter := new(MockFeatureRouter)
			assembler := NewAssembler(mockRouter, tt.layout)

			if tt.expectedKey != "" {
				mockRouter.On("Persist", mock.Anything, tt.expectedKey, mock.AnythingOfType("*models.Feature")).Return(tt.mockError)
			}

			// Execute
			feature, err := assembler.Assemble(context.Background(), tt.rings, place, shape)

			// Assert
			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, place, feature.Place)
				assert.Equal(t, shape, feature.Shape)
				assert.Len(t, feature.Geometry, len(tt.rings))
			}

			mockRouter.AssertExpectations(t)
		})
	}
}
