package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	dErrors "cargotrack/pkg/domain-errors"
)

// Location is a geographic point. It serializes as [lon, lat].
type Location struct {
	Lon float64
	Lat float64
}

// NewLocation validates coordinates. NaN and infinities are rejected.
func NewLocation(lon, lat float64) (Location, error) {
	if !finite(lon) || !finite(lat) {
		return Location{}, dErrors.New(dErrors.CodeValidation, "invalid location coordinates")
	}
	return Location{Lon: lon, Lat: lat}, nil
}

// ParseLocation coerces textual coordinates.
func ParseLocation(lon, lat string) (Location, error) {
	vals, err := parseFloats("invalid location coordinates", lon, lat)
	if err != nil {
		return Location{}, err
	}
	return NewLocation(vals[0], vals[1])
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{l.Lon, l.Lat})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return dErrors.New(dErrors.CodeValidation, "loc must be a (long, latt) pair")
	}
	l.Lon, l.Lat = pair[0], pair[1]
	return nil
}

// ViewRect restricts a tracker to a geographic rectangle.
// Top is the max latitude, Bottom the min latitude, Left the min longitude and
// Right the max longitude. All four edges are inclusive.
type ViewRect struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// NewViewRect validates view coordinates.
func NewViewRect(top, left, bottom, right float64) (ViewRect, error) {
	for _, v := range []float64{top, left, bottom, right} {
		if !finite(v) {
			return ViewRect{}, dErrors.New(dErrors.CodeValidation, "invalid view coordinates")
		}
	}
	return ViewRect{Top: top, Left: left, Bottom: bottom, Right: right}, nil
}

// ParseViewRect coerces textual view coordinates in top, left, bottom, right order.
func ParseViewRect(top, left, bottom, right string) (ViewRect, error) {
	vals, err := parseFloats("invalid view coordinates", top, left, bottom, right)
	if err != nil {
		return ViewRect{}, err
	}
	return NewViewRect(vals[0], vals[1], vals[2], vals[3])
}

// Contains reports whether loc lies inside the rectangle.
func (r ViewRect) Contains(loc Location) bool {
	return r.Left <= loc.Lon && loc.Lon <= r.Right &&
		r.Bottom <= loc.Lat && loc.Lat <= r.Top
}

func (r ViewRect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.Top, r.Left, r.Bottom, r.Right})
}

func parseFloats(msg string, raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, msg)
		}
		out[i] = v
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
