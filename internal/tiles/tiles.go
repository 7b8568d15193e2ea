// Package tiles implements the Web Mercator tile addressing scheme used by
// the tile provider: pixel and tile coordinate conversions, quadkey encoding,
// and enumeration of the tiles covering a radius around a point.
package tiles

import (
	"fmt"
	"math"
	"strings"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
)

const (
	earthRadiusMeters = 6378137.0
	tileSizePixels    = 256

	// Latitude is clipped to the Mercator projection's usable range before
	// any pixel conversion.
	minLatitude  = -85.05112878
	maxLatitude  = 85.05112878
	minLongitude = -180.0
	maxLongitude = 180.0
)

// Tile is one addressed map tile at a fixed zoom level.
type Tile struct {
	X    int
	Y    int
	Zoom int
}

// QuadKey returns the tile's quadkey: one base-4 digit per zoom level, most
// significant level first.
func (t Tile) QuadKey() string {
	var sb strings.Builder
	sb.Grow(t.Zoom)
	for level := t.Zoom; level > 0; level-- {
		digit := byte('0')
		mask := 1 << (level - 1)
		if t.X&mask != 0 {
			digit++
		}
		if t.Y&mask != 0 {
			digit += 2
		}
		sb.WriteByte(digit)
	}
	return sb.String()
}

func (t Tile) String() string {
	return fmt.Sprintf("tile(%d/%d/%d)", t.Zoom, t.X, t.Y)
}

// FromQuadKey decodes a quadkey back into tile coordinates. The zoom level is
// the key's length.
func FromQuadKey(quadKey string) (Tile, error) {
	t := Tile{Zoom: len(quadKey)}
	for level := t.Zoom; level > 0; level-- {
		mask := 1 << (level - 1)
		switch quadKey[t.Zoom-level] {
		case '0':
		case '1':
			t.X |= mask
		case '2':
			t.Y |= mask
		case '3':
			t.X |= mask
			t.Y |= mask
		default:
			return Tile{}, errkind.InvalidArgument(fmt.Sprintf("tiles: invalid quadkey digit in %q", quadKey))
		}
	}
	return t, nil
}

// MapSize returns the width and height of the world map in pixels at a zoom
// level.
func MapSize(zoom int) int {
	return tileSizePixels << zoom
}

// GroundResolution returns the ground distance in meters covered by a single
// pixel at the given latitude and zoom level.
func GroundResolution(latitude float64, zoom int) float64 {
	latitude = clip(latitude, minLatitude, maxLatitude)
	return math.Cos(latitude*math.Pi/180) * 2 * math.Pi * earthRadiusMeters / float64(MapSize(zoom))
}

// PointToTile returns the tile containing the given coordinate at the given
// zoom level.
func PointToTile(latitude, longitude float64, zoom int) (Tile, error) {
	if err := validate(latitude, longitude, zoom); err != nil {
		return Tile{}, err
	}
	px, py := pixelXY(latitude, longitude, zoom)
	return Tile{X: px / tileSizePixels, Y: py / tileSizePixels, Zoom: zoom}, nil
}

// NearbyTiles returns every tile overlapped by the square pixel bounding box
// of radiusMeters around the coordinate, ordered row-major from the
// north-west corner. The center tile is always included.
func NearbyTiles(latitude, longitude float64, zoom int, radiusMeters float64) ([]Tile, error) {
	if err := validate(latitude, longitude, zoom); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		return nil, errkind.InvalidArgument(fmt.Sprintf("tiles: radius must be positive, got %f", radiusMeters))
	}

	radiusPixels := int(radiusMeters / GroundResolution(latitude, zoom))
	px, py := pixelXY(latitude, longitude, zoom)
	maxPixel := MapSize(zoom) - 1

	minTileX := clipInt(px-radiusPixels, 0, maxPixel) / tileSizePixels
	maxTileX := clipInt(px+radiusPixels, 0, maxPixel) / tileSizePixels
	minTileY := clipInt(py-radiusPixels, 0, maxPixel) / tileSizePixels
	maxTileY := clipInt(py+radiusPixels, 0, maxPixel) / tileSizePixels

	nearby := make([]Tile, 0, (maxTileX-minTileX+1)*(maxTileY-minTileY+1))
	for y := minTileY; y <= maxTileY; y++ {
		for x := minTileX; x <= maxTileX; x++ {
			nearby = append(nearby, Tile{X: x, Y: y, Zoom: zoom})
		}
	}
	return nearby, nil
}

// HaversineDistance returns the great-circle distance in meters between two
// coordinates.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// QuadKeys maps a tile list to its quadkey strings, preserving order.
func QuadKeys(ts []Tile) []string {
	keys := make([]string, len(ts))
	for i, t := range ts {
		keys[i] = t.QuadKey()
	}
	return keys
}

// pixelXY converts a coordinate to absolute pixel coordinates at a zoom
// level. Latitude outside the Mercator range is clipped first.
func pixelXY(latitude, longitude float64, zoom int) (int, int) {
	latitude = clip(latitude, minLatitude, maxLatitude)
	longitude = clip(longitude, minLongitude, maxLongitude)

	x := (longitude + 180) / 360
	sinLat := math.Sin(latitude * math.Pi / 180)
	y := 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)

	mapSize := float64(MapSize(zoom))
	px := int(clip(x*mapSize+0.5, 0, mapSize-1))
	py := int(clip(y*mapSize+0.5, 0, mapSize-1))
	return px, py
}

// validate enforces the coordinate and zoom preconditions. A latitude beyond
// the poles means the caller's state is broken, not merely its arguments, and
// is classified accordingly.
func validate(latitude, longitude float64, zoom int) error {
	if latitude < -90 || latitude > 90 {
		return errkind.InvalidState(fmt.Sprintf("tiles: latitude %f is outside [-90, 90]", latitude))
	}
	if longitude < minLongitude || longitude > maxLongitude {
		return errkind.InvalidArgument(fmt.Sprintf("tiles: longitude %f is outside [-180, 180]", longitude))
	}
	if zoom <= 0 {
		return errkind.InvalidArgument(fmt.Sprintf("tiles: zoom must be positive, got %d", zoom))
	}
	return nil
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clipInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
