package types

// Box is a bounding box normalized to the [0,1] range of the image
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the middle of the box
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Empty reports whether the box has no area
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Point is a normalized position inside an image
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImageCenter returns the middle of any image
func ImageCenter() Point {
	return Point{X: 0.5, Y: 0.5}
}

// Contains reports whether p lies inside the box, edges included
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.W && p.Y >= b.Y && p.Y <= b.Y+b.H
}

// Nearest returns the point of the box closest to p
func (b Box) Nearest(p Point) Point {
	return Point{
		X: min(max(p.X, b.X), b.X+b.W),
		Y: min(max(p.Y, b.Y), b.Y+b.H),
	}
}

// Subject is the primary subject a vision model located in an image
type Subject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// AnalysisResult is the vision model's answer for one image
type AnalysisResult struct {
	Primary     Subject `json:"primary"`
	Description string  `json:"description"`
}

// FitOptions controls how an image is fitted into a ratio bucket
type FitOptions struct {
	// Zoom shrinks the crop window around the center, 1.0 keeps the largest window
	Zoom float64
	// Center is the normalized point the crop is placed around
	Center Point
}
