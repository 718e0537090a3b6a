// Package geo projects incident geometry onto pluggable map backends.
package geo

import (
	"regexp"
	"strconv"

	"github.com/paulmach/orb"
)

var (
	// zSniff matches a geometry keyword followed by a Z marker, e.g. "POINT Z (" or "LINESTRINGZ(".
	zSniff      = regexp.MustCompile(`(?i)^\s*[a-z]+?\s*z\s*\(`)
	numberToken = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)
)

// Coord is a geographic coordinate.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point converts the coordinate to an orb point (lon, lat).
func (c Coord) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point to a coordinate.
func FromPoint(p orb.Point) Coord {
	return Coord{Lat: p.Lat(), Lon: p.Lon()}
}

// ParseWKT extracts the coordinates of a WKT geometry in order. It does not validate the
// geometry type: every numeric token is read and the tokens are grouped in pairs, or in triples
// when the keyword carries a Z marker, dropping the Z value. Input WKT is in (lon lat) order.
// A trailing incomplete group is dropped; malformed input yields nil.
func ParseWKT(wkt string) []Coord {
	if wkt == "" {
		return nil
	}

	stride := 2
	if zSniff.MatchString(wkt) {
		stride = 3
	}

	tokens := numberToken.FindAllString(wkt, -1)
	values := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}

	if len(values) < stride {
		return nil
	}

	coords := make([]Coord, 0, len(values)/stride)
	for i := 0; i+stride <= len(values); i += stride {
		coords = append(coords, Coord{Lat: values[i+1], Lon: values[i]})
	}
	return coords
}

// Bound returns the bounding box of coords.
func Bound(coords []Coord) orb.Bound {
	return toMultiPoint(coords).Bound()
}

// Center returns the single coordinate, or the center of the bounding box of several.
func Center(coords []Coord) Coord {
	if len(coords) == 1 {
		return coords[0]
	}
	return FromPoint(Bound(coords).Center())
}

// Geometry converts coords to an orb point or line string.
func Geometry(coords []Coord) orb.Geometry {
	if len(coords) == 1 {
		return coords[0].Point()
	}
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = c.Point()
	}
	return ls
}

func toMultiPoint(coords []Coord) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(coords))
	for i, c := range coords {
		mp[i] = c.Point()
	}
	return mp
}
