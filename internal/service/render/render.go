// Package render draws detections onto frames and encodes them as JPEG.
package render

import (
	"fmt"
	"image"
	"image/color"

	"framerelay/internal/dto"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// NoDetectionText is drawn centred on frames without detections.
	NoDetectionText      = "No smoke/fire detected"
	NoDetectionFontScale = 1.0
	NoDetectionThickness = 2

	// DefaultJPEGQuality matches the OpenCV encoder default.
	DefaultJPEGQuality = 95

	boxThickness   = 2
	labelFontScale = 0.5
	labelThickness = 1
	labelPadding   = 3
	font           = gocv.FontHersheySimplex
)

// NoDetectionColor is pure green.
var NoDetectionColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// palette colours boxes by class id.
var palette = []color.RGBA{
	{R: 255, G: 56, B: 56},
	{R: 255, G: 157, B: 151},
	{R: 255, G: 112, B: 31},
	{R: 255, G: 178, B: 29},
	{R: 207, G: 210, B: 49},
	{R: 72, G: 249, B: 10},
	{R: 146, G: 204, B: 23},
	{R: 61, G: 219, B: 134},
	{R: 26, G: 147, B: 52},
	{R: 0, G: 212, B: 187},
}

var labelTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// ClassColor returns the box colour used for a class id.
func ClassColor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Annotate draws every detection's box and label onto frame. With no
// detections it writes NoDetectionText in the centre instead.
func Annotate(frame *gocv.Mat, detections []dto.DetectionResult) error {
	if frame.Empty() {
		return errors.New("cannot annotate empty frame")
	}

	if len(detections) == 0 {
		return drawNoDetection(frame)
	}

	for _, detection := range detections {
		if err := drawDetection(frame, detection); err != nil {
			return err
		}
	}
	return nil
}

// drawDetection draws a box plus a filled label tab above it.
func drawDetection(frame *gocv.Mat, detection dto.DetectionResult) error {
	c := ClassColor(detection.ClassID)

	if err := gocv.Rectangle(frame, detection.Rect(), c, boxThickness); err != nil {
		return errors.Wrap(err, "failed to draw rectangle")
	}

	label := fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
	size, baseline := gocv.GetTextSizeWithBaseline(label, font, labelFontScale, labelThickness)
	tab := labelTab(detection.Rect().Min, size, baseline)

	if err := gocv.Rectangle(frame, tab, c, -1); err != nil {
		return errors.Wrap(err, "failed to draw label background")
	}

	origin := image.Pt(tab.Min.X+labelPadding, tab.Max.Y-baseline-labelPadding/2)
	if err := gocv.PutText(frame, label, origin, font, labelFontScale, labelTextColor, labelThickness); err != nil {
		return errors.Wrap(err, "failed to draw text")
	}
	return nil
}

// labelTab places the label background above the box corner, or just inside
// the box when there is no room above it.
func labelTab(corner, textSize image.Point, baseline int) image.Rectangle {
	w := textSize.X + 2*labelPadding
	h := textSize.Y + baseline + labelPadding

	top := corner.Y - h
	if top < 0 {
		top = corner.Y
	}
	return image.Rect(corner.X, top, corner.X+w, top+h)
}

func drawNoDetection(frame *gocv.Mat) error {
	textSize := gocv.GetTextSize(NoDetectionText, font, NoDetectionFontScale, NoDetectionThickness)
	origin := CenteredTextOrigin(image.Pt(frame.Cols(), frame.Rows()), textSize)

	if err := gocv.PutText(frame, NoDetectionText, origin, font, NoDetectionFontScale, NoDetectionColor, NoDetectionThickness); err != nil {
		return errors.Wrap(err, "failed to draw text")
	}
	return nil
}

// CenteredTextOrigin returns the baseline-left origin that centres text of
// textSize in a frame of frameSize.
func CenteredTextOrigin(frameSize, textSize image.Point) image.Point {
	return image.Pt((frameSize.X-textSize.X)/2, (frameSize.Y+textSize.Y)/2)
}

// EncodeJPEG serializes frame as JPEG at the given quality (1-100).
func EncodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	if frame.Empty() {
		return nil, errors.New("cannot encode empty frame")
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	defer buf.Close()

	encoded := make([]byte, buf.Len())
	copy(encoded, buf.GetBytes())
	return encoded, nil
}
