package eeg

import (
	"math"
)

// Location is a channel position in head coordinates. Only the direction
// matters for spherical interpolation; the radius is discarded.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Usable reports whether the location has finite coordinates and a non-zero
// radius.
func (l *Location) Usable() bool {
	if l == nil {
		return false
	}
	for _, v := range [...]float64{l.X, l.Y, l.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return l.X != 0 || l.Y != 0 || l.Z != 0
}

// Unit returns the location projected onto the unit sphere.
func (l Location) Unit() Location {
	r := math.Sqrt(l.X*l.X + l.Y*l.Y + l.Z*l.Z)
	return Location{X: l.X / r, Y: l.Y / r, Z: l.Z / r}
}

// noseRotation returns the in-plane rotation that maps the declared nose axis
// onto +X.
func noseRotation(dir string) (func(Location) Location, error) {
	switch dir {
	case "", "+X", "+x":
		return func(l Location) Location { return l }, nil
	case "-X", "-x":
		return func(l Location) Location { return Location{X: -l.X, Y: -l.Y, Z: l.Z} }, nil
	case "+Y", "+y":
		return func(l Location) Location { return Location{X: l.Y, Y: -l.X, Z: l.Z} }, nil
	case "-Y", "-y":
		return func(l Location) Location { return Location{X: -l.Y, Y: l.X, Z: l.Z} }, nil
	}
	return nil, invalidInput("unsupported nose direction %q", dir)
}

// CanonicalLocations returns the unit-sphere locations of the given 1-based
// channels in the +X nose convention. It fails with
// InvalidChannelLocationError on the first channel without a usable location.
func (r *Recording) CanonicalLocations(channels []int) ([]Location, error) {
	rotate, err := noseRotation(r.NoseDirection)
	if err != nil {
		return nil, err
	}
	out := make([]Location, len(channels))
	for i, ch := range channels {
		if ch < 1 || ch > len(r.Locations) {
			return nil, &InvalidChannelLocationError{Channel: ch, Reason: "no location recorded"}
		}
		loc := r.Locations[ch-1]
		if loc == nil {
			return nil, &InvalidChannelLocationError{Channel: ch, Reason: "location is missing"}
		}
		if !loc.Usable() {
			return nil, &InvalidChannelLocationError{Channel: ch, Reason: "coordinates are not finite or lie at the origin"}
		}
		out[i] = rotate(loc.Unit())
	}
	return out, nil
}
