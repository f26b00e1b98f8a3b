package render

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"framerelay/internal/dto"

	"gocv.io/x/gocv"
)

func blackFrame(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
}

// pixelsMatching counts pixels inside r whose BGR value satisfies match.
func pixelsMatching(frame gocv.Mat, r image.Rectangle, match func(b, g, r uint8) bool) int {
	r = r.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	count := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := frame.GetVecbAt(y, x)
			if match(v[0], v[1], v[2]) {
				count++
			}
		}
	}
	return count
}

func isGreen(b, g, r uint8) bool { return g > 200 && b < 60 && r < 60 }

func isLit(b, g, r uint8) bool { return b > 0 || g > 0 || r > 0 }

func TestCenteredTextOrigin(t *testing.T) {
	tests := []struct {
		name  string
		frame image.Point
		text  image.Point
		want  image.Point
	}{
		{"640x480", image.Pt(640, 480), image.Pt(360, 22), image.Pt(140, 251)},
		{"odd sizes", image.Pt(101, 51), image.Pt(20, 10), image.Pt(40, 30)},
		{"text wider than frame", image.Pt(100, 100), image.Pt(300, 20), image.Pt(-100, 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CenteredTextOrigin(tt.frame, tt.text); got != tt.want {
				t.Errorf("CenteredTextOrigin(%v, %v) = %v, want %v", tt.frame, tt.text, got, tt.want)
			}
		})
	}
}

func TestAnnotate_NoDetectionsDrawsCenteredGreenText(t *testing.T) {
	frame := blackFrame(640, 480)
	defer frame.Close()

	if err := Annotate(&frame, nil); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	textSize, baseline := gocv.GetTextSizeWithBaseline(NoDetectionText, font, NoDetectionFontScale, NoDetectionThickness)
	origin := CenteredTextOrigin(image.Pt(640, 480), textSize)
	// Allow for strokes reaching past the nominal text box.
	textBox := image.Rect(origin.X, origin.Y-textSize.Y, origin.X+textSize.X, origin.Y+baseline).Inset(-8)

	if n := pixelsMatching(frame, textBox, isGreen); n == 0 {
		t.Errorf("Expected green text pixels inside %v", textBox)
	}

	total := pixelsMatching(frame, image.Rect(0, 0, 640, 480), isLit)
	inside := pixelsMatching(frame, textBox, isLit)
	if total != inside {
		t.Errorf("Expected all drawing inside %v, found %d pixels outside", textBox, total-inside)
	}
}

func TestAnnotate_DrawsBoxes(t *testing.T) {
	frame := blackFrame(320, 240)
	defer frame.Close()

	detections := []dto.DetectionResult{
		{ClassID: 0, Label: "fire", Confidence: 0.91, X: 40, Y: 60, Width: 100, Height: 80},
		{ClassID: 1, Label: "smoke", Confidence: 0.55, X: 200, Y: 10, Width: 60, Height: 60},
	}
	if err := Annotate(&frame, detections); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	for _, d := range detections {
		c := ClassColor(d.ClassID)
		// Left edge of the box, below any label tab.
		edge := image.Rect(d.X, d.Y+d.Height/2, d.X+1, d.Y+d.Height/2+1)
		n := pixelsMatching(frame, edge, func(b, g, r uint8) bool {
			return b == c.B && g == c.G && r == c.R
		})
		if n != 1 {
			t.Errorf("Expected %s box edge in class colour at %v", d.Label, edge.Min)
		}
	}

	if n := pixelsMatching(frame, image.Rect(0, 0, 320, 240), isGreen); n > 0 {
		t.Errorf("Expected no fallback text on annotated frame, found %d green pixels", n)
	}
}

func TestAnnotate_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	if err := Annotate(&frame, nil); err == nil {
		t.Error("Expected error for empty frame")
	}
}

func TestLabelTab(t *testing.T) {
	text := image.Pt(50, 10)

	above := labelTab(image.Pt(20, 40), text, 4)
	if above.Max.Y != 40 || above.Min.X != 20 {
		t.Errorf("Expected tab to sit on top of the box, got %v", above)
	}

	// Box touching the top edge gets its tab inside the box.
	inside := labelTab(image.Pt(20, 5), text, 4)
	if inside.Min.Y != 5 {
		t.Errorf("Expected tab inside the box, got %v", inside)
	}
	if inside.Dx() != above.Dx() || inside.Dy() != above.Dy() {
		t.Errorf("Tab size changed: %v vs %v", inside, above)
	}
}

func TestClassColor(t *testing.T) {
	if ClassColor(0) == ClassColor(1) {
		t.Error("Expected distinct colours for the first two classes")
	}
	if ClassColor(len(palette)) != ClassColor(0) {
		t.Error("Expected palette to wrap around")
	}
	if ClassColor(-1) != ClassColor(1) {
		t.Error("Expected negative class ids to map into the palette")
	}
}

func TestEncodeJPEG(t *testing.T) {
	frame := blackFrame(160, 120)
	defer frame.Close()

	if err := Annotate(&frame, nil); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	for _, quality := range []int{10, 95, 0, 500} {
		encoded, err := EncodeJPEG(frame, quality)
		if err != nil {
			t.Fatalf("EncodeJPEG(q=%d) failed: %v", quality, err)
		}
		if !bytes.HasPrefix(encoded, []byte{0xFF, 0xD8}) {
			t.Fatalf("EncodeJPEG(q=%d) output is not a JPEG", quality)
		}

		img, err := jpeg.Decode(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("Encoded image failed to decode: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 120 {
			t.Errorf("Decoded size %v, want 160x120", b)
		}
	}
}

func TestEncodeJPEG_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	if _, err := EncodeJPEG(frame, 90); err == nil {
		t.Error("Expected error for empty frame")
	}
}
