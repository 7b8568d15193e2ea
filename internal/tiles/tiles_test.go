package tiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
)

func TestNearbyTiles(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		zoom     int
		radius   float64
		want     []string
	}{
		{
			name: "corner point straddles four tiles",
			lat:  40.735803, lon: -74.0035627, zoom: 16, radius: 300,
			want: []string{
				"0320101101322020",
				"0320101101233131",
				"0320101101322002",
				"0320101101233113",
			},
		},
		{
			name: "centered point covers all eight neighbors",
			lat:  40.736771, lon: -74.0010207, zoom: 16, radius: 300,
			want: []string{
				"0320101101322020",
				"0320101101322021",
				"0320101101233131",
				"0320101101322022",
				"0320101101322002",
				"0320101101322003",
				"0320101101322023",
				"0320101101233133",
				"0320101101233113",
			},
		},
		{
			name: "small radius stays within one tile",
			lat:  40.736771, lon: -74.0010207, zoom: 16, radius: 100,
			want: []string{"0320101101322020"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NearbyTiles(tt.lat, tt.lon, tt.zoom, tt.radius)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, QuadKeys(got))
		})
	}
}

func TestNearbyTilesLargeArea(t *testing.T) {
	got, err := NearbyTiles(40.736771, -74.0010207, 16, 3000)
	require.NoError(t, err)
	assert.Len(t, got, 169)

	seen := make(map[string]struct{}, len(got))
	for _, tile := range got {
		seen[tile.QuadKey()] = struct{}{}
	}
	assert.Len(t, seen, len(got), "quadkeys must be unique")
}

func TestNearbyTilesContainsQueryPoint(t *testing.T) {
	lat, lon := 40.736771, -74.0010207
	center, err := PointToTile(lat, lon, 16)
	require.NoError(t, err)

	nearby, err := NearbyTiles(lat, lon, 16, 250)
	require.NoError(t, err)
	assert.Contains(t, nearby, center)
}

func TestNearbyTilesValidation(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		zoom     int
		radius   float64
		wantErr  error
	}{
		{"zero radius", 12, 23, 16, 0, errkind.ErrInvalidArgument},
		{"zero zoom", 12, 23, 0, 100, errkind.ErrInvalidArgument},
		{"latitude beyond the poles", 1623, 23, 16, 100, errkind.ErrInvalidState},
		{"longitude out of range", 12, 181, 16, 100, errkind.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NearbyTiles(tt.lat, tt.lon, tt.zoom, tt.radius)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuadKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tile Tile
	}{
		{"origin", Tile{X: 0, Y: 0, Zoom: 1}},
		{"manhattan zoom 16", Tile{X: 19296, Y: 24634, Zoom: 16}},
		{"max coordinate", Tile{X: 65535, Y: 65535, Zoom: 16}},
		{"mid zoom", Tile{X: 301, Y: 385, Zoom: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qk := tt.tile.QuadKey()
			assert.Len(t, qk, tt.tile.Zoom)

			back, err := FromQuadKey(qk)
			require.NoError(t, err)
			assert.Equal(t, tt.tile, back)
		})
	}
}

func TestFromQuadKeyRejectsBadDigits(t *testing.T) {
	_, err := FromQuadKey("0124")
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
}

func TestKnownQuadKey(t *testing.T) {
	tile, err := PointToTile(40.735803, -74.0035627, 16)
	require.NoError(t, err)
	assert.Equal(t, "0320101101322020", tile.QuadKey())
}

func TestGroundResolutionShrinksWithZoom(t *testing.T) {
	coarse := GroundResolution(40.7368, 10)
	fine := GroundResolution(40.7368, 16)
	assert.Greater(t, coarse, fine)
	assert.InDelta(t, coarse/64, fine, 1e-9)
}

func TestHaversineDistance(t *testing.T) {
	assert.Zero(t, HaversineDistance(40.7368, -74.0010, 40.7368, -74.0010))

	// One degree of latitude is roughly 111 km on the sphere.
	d := HaversineDistance(40.0, -74.0, 41.0, -74.0)
	assert.InDelta(t, 111300, d, 500)

	assert.InDelta(t,
		HaversineDistance(40.0, -74.0, 41.0, -73.0),
		HaversineDistance(41.0, -73.0, 40.0, -74.0), 1e-6, "symmetric")
}
