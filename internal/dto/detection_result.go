package dto

import "image"

// DetectionResult is one object found in a frame, in frame pixel coordinates.
type DetectionResult struct {
	ClassID    int
	Label      string
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
}

// Rect returns the bounding box as an image.Rectangle.
func (d DetectionResult) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

// FrameResult is the outcome of relaying one camera frame.
type FrameResult struct {
	CameraID   string
	Detections []DetectionResult
	Image      []byte // Annotated JPEG
}
