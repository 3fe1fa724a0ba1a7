package model

import "math"

// Location represents a point in the world. X and Z are the horizontal
// axes the spatial grid indexes on; Y is vertical.
type Location struct {
	X, Y, Z float32
}

// DistanceSquared returns the squared distance to another point, avoiding
// a sqrt on the hot path.
func (l Location) DistanceSquared(other Location) float64 {
	dx := float64(l.X - other.X)
	dy := float64(l.Y - other.Y)
	dz := float64(l.Z - other.Z)
	return dx*dx + dy*dy + dz*dz
}

// Distance returns the Euclidean distance to another point.
func (l Location) Distance(other Location) float64 {
	return math.Sqrt(l.DistanceSquared(other))
}

// PlanarDistanceSquared ignores the vertical axis. The grid's range
// filter and interest areas use the full 3D DistanceSquared instead.
func (l Location) PlanarDistanceSquared(other Location) float64 {
	dx := float64(l.X - other.X)
	dz := float64(l.Z - other.Z)
	return dx*dx + dz*dz
}
