package sqlite

import (
	"database/sql/driver"
	"fmt"
	"math"
	"slices"

	"github.com/mmcloughlin/geohash"
	msqlite "modernc.org/sqlite"

	"github.com/neomorfeo/roomlist/internal/domain"
)

const (
	// geohashChars is the stored precision (about 5 m cells).
	geohashChars = 9
	// coverMargin widens the cap bounds so boundary rounding never drops a cell.
	coverMargin = 0.01

	withinCapFunc = "within_cap"
)

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(withinCapFunc, 5, withinCap)
}

// withinCap(lat, lng, centerLat, centerLng, angle) returns 1 when the point lies
// inside the spherical cap. NULL coordinates never match.
func withinCap(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	var v [5]float64
	for i, a := range args {
		switch x := a.(type) {
		case nil:
			return int64(0), nil
		case float64:
			v[i] = x
		case int64:
			v[i] = float64(x)
		default:
			return nil, fmt.Errorf("%s: unsupported argument %T", withinCapFunc, a)
		}
	}

	point := domain.GeoPoint{Lat: v[0], Lng: v[1]}
	center := domain.GeoPoint{Lat: v[2], Lng: v[3]}
	if domain.WithinCap(center, point, v[4]) {
		return int64(1), nil
	}
	return int64(0), nil
}

// encodePoint geohashes p, folding the +180 meridian and the north pole into range.
func encodePoint(p domain.GeoPoint, chars int) string {
	lat := math.Min(p.Lat, math.Nextafter(90, 0))
	return geohash.EncodeWithPrecision(lat, wrapLng(p.Lng), uint(chars))
}

// coverCells picks the finest precision whose 3x3 neighbourhood around the
// center contains the whole cap, and returns that neighbourhood. It returns
// zero when no precision works (caps touching a pole or wider than a cell).
func coverCells(g domain.GeoRadius) (int, []string) {
	angle := g.AngularRadius()
	dLat := angle * 180 / math.Pi
	if math.Abs(g.Center.Lat)+dLat >= 90 {
		return 0, nil
	}
	ratio := math.Sin(angle) / math.Cos(g.Center.Lat*math.Pi/180)
	if ratio >= 1 {
		return 0, nil
	}
	dLng := math.Asin(ratio) * 180 / math.Pi

	dLat *= 1 + coverMargin
	dLng *= 1 + coverMargin

	for chars := geohashChars; chars >= 1; chars-- {
		h, w := cellSize(chars)
		if h >= dLat && w >= dLng {
			return chars, neighbourhood(g.Center, chars)
		}
	}
	return 0, nil
}

// cellSize returns the height and width in degrees of a geohash cell.
func cellSize(chars int) (float64, float64) {
	bits := 5 * chars
	latBits := bits / 2
	lngBits := bits - latBits
	return 180 / math.Ldexp(1, latBits), 360 / math.Ldexp(1, lngBits)
}

// neighbourhood returns the center cell and its neighbours, wrapping across the
// antimeridian and skipping rows beyond the poles.
func neighbourhood(center domain.GeoPoint, chars int) []string {
	box := geohash.BoundingBox(encodePoint(center, chars))
	lat, lng := box.Center()
	h, w := box.MaxLat-box.MinLat, box.MaxLng-box.MinLng

	out := make([]string, 0, 9)
	for _, dy := range []float64{-1, 0, 1} {
		y := lat + dy*h
		if y <= -90 || y >= 90 {
			continue
		}
		for _, dx := range []float64{-1, 0, 1} {
			cell := geohash.EncodeWithPrecision(y, wrapLng(lng+dx*w), uint(chars))
			if !slices.Contains(out, cell) {
				out = append(out, cell)
			}
		}
	}
	return out
}

func wrapLng(x float64) float64 {
	for x < -180 {
		x += 360
	}
	for x >= 180 {
		x -= 360
	}
	return x
}
