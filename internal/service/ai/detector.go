package ai

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"sort"
	"strings"

	"framerelay/internal/config"
	"framerelay/internal/dto"
	"framerelay/internal/logger"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultConfidenceThreshold is the minimum class score kept before NMS.
	DefaultConfidenceThreshold = 0.25
	// DefaultNMSThreshold is the IoU above which overlapping boxes are suppressed.
	DefaultNMSThreshold = 0.7
	// DefaultInputSize is the square input edge of YOLOv8 exports.
	DefaultInputSize = 640
)

// DefaultLabels are the class names of the smoke/fire model when no labels file is given.
var DefaultLabels = []string{"fire", "smoke"}

// candidate is a pre-NMS box in frame pixels.
type candidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// DetectorService owns the loaded detection network. gocv.Net is not safe for
// concurrent use, so every forward pass goes through a single-slot gate.
type DetectorService struct {
	net           gocv.Net
	gate          *semaphore.Weighted
	labels        []string
	inputSize     image.Point
	confThreshold float32
	nmsThreshold  float32
	modelPath     string
	logger        *logger.Logger
}

// LoadDetector loads the ONNX model and labels named by cfg and verifies the
// network produces YOLOv8-shaped output.
func LoadDetector(cfg *config.Config, logger *logger.Logger) (*DetectorService, error) {
	labels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	inputSize := cfg.ModelInputSize
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	conf := cfg.ConfidenceThreshold
	if conf <= 0 || conf >= 1 {
		conf = DefaultConfidenceThreshold
	}
	nms := cfg.NMSThreshold
	if nms <= 0 || nms > 1 {
		nms = DefaultNMSThreshold
	}

	service := &DetectorService{
		gate:          semaphore.NewWeighted(1),
		labels:        labels,
		inputSize:     image.Pt(inputSize, inputSize),
		confThreshold: float32(conf),
		nmsThreshold:  float32(nms),
		modelPath:     cfg.ModelPath,
		logger:        logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}
	if err := service.warmUp(); err != nil {
		service.net.Close()
		return nil, err
	}

	logger.Info("Detection network %s initialized (%d classes, input %dx%d)",
		service.modelPath, len(service.labels), inputSize, inputSize)
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return errors.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return errors.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return errors.New("failed to set preferable backend or target")
	}

	s.net = net
	return nil
}

// warmUp runs one forward pass over a blank frame and checks the output shape.
func (s *DetectorService) warmUp() error {
	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(114, 114, 114, 0), s.inputSize.Y, s.inputSize.X, gocv.MatTypeCV8UC3)
	defer blank.Close()

	output := s.forward(blank)
	defer output.Close()

	attrs, _, err := outputShape(output.Size())
	if err != nil {
		return errors.Wrapf(err, "incompatible model %s", s.modelPath)
	}
	if classes := attrs - 4; classes != len(s.labels) {
		s.logger.Warning("Model %s predicts %d classes but %d labels are configured", s.modelPath, classes, len(s.labels))
	}
	return nil
}

// forward converts the frame into a network blob and runs inference.
// Callers must hold the gate once the service is shared.
func (s *DetectorService) forward(frame gocv.Mat) gocv.Mat {
	blob := gocv.BlobFromImage(frame, 1.0/255.0, s.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	return s.net.Forward("")
}

// Detect runs the network over a decoded BGR frame and returns detections
// above the confidence threshold, strongest first.
func (s *DetectorService) Detect(ctx context.Context, frame gocv.Mat) ([]dto.DetectionResult, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "wait for detector")
	}
	defer s.gate.Release(1)

	output := s.forward(frame)
	defer output.Close()

	attrs, anchors, err := outputShape(output.Size())
	if err != nil {
		return nil, err
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read network output")
	}

	scaleX := float32(frame.Cols()) / float32(s.inputSize.X)
	scaleY := float32(frame.Rows()) / float32(s.inputSize.Y)
	candidates := decodeCandidates(data, attrs, anchors, scaleX, scaleY, s.confThreshold)

	detections := s.suppress(candidates, image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if len(detections) > 0 {
		s.logger.Debug("Detected %d object(s), top %s (%.2f)", len(detections), detections[0].Label, detections[0].Confidence)
	}
	return detections, nil
}

// suppress clamps candidates to the frame, runs NMS separately for each class
// and converts the survivors to DetectionResults.
func (s *DetectorService) suppress(candidates []candidate, bounds image.Rectangle) []dto.DetectionResult {
	byClass := make(map[int][]candidate)
	for _, c := range candidates {
		c.box = c.box.Intersect(bounds)
		if c.box.Empty() {
			continue
		}
		byClass[c.classID] = append(byClass[c.classID], c)
	}

	results := make([]dto.DetectionResult, 0, len(candidates))
	for classID, group := range byClass {
		boxes := make([]image.Rectangle, len(group))
		scores := make([]float32, len(group))
		for i, c := range group {
			boxes[i] = c.box
			scores[i] = c.score
		}

		for _, idx := range gocv.NMSBoxes(boxes, scores, s.confThreshold, s.nmsThreshold) {
			c := group[idx]
			results = append(results, dto.DetectionResult{
				ClassID:    classID,
				Label:      s.labelFor(classID),
				Confidence: float64(c.score),
				X:          c.box.Min.X,
				Y:          c.box.Min.Y,
				Width:      c.box.Dx(),
				Height:     c.box.Dy(),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].ClassID < results[j].ClassID
	})
	return results
}

// Labels returns the configured class names.
func (s *DetectorService) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Close waits for in-flight inference and releases the network.
func (s *DetectorService) Close() error {
	if err := s.gate.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer s.gate.Release(1)
	return s.net.Close()
}

func (s *DetectorService) labelFor(classID int) string {
	if classID >= 0 && classID < len(s.labels) {
		return s.labels[classID]
	}
	return fmt.Sprintf("class%d", classID)
}

// outputShape validates a YOLOv8 output of shape [1, 4+classes, anchors].
func outputShape(dims []int) (attrs, anchors int, err error) {
	if len(dims) != 3 || dims[0] != 1 {
		return 0, 0, errors.Errorf("unexpected output shape %v, want [1 4+classes anchors]", dims)
	}
	if dims[1] <= 4 || dims[2] <= 0 {
		return 0, 0, errors.Errorf("unexpected output shape %v, want [1 4+classes anchors]", dims)
	}
	return dims[1], dims[2], nil
}

// decodeCandidates reads the transposed YOLOv8 tensor (attribute-major:
// cx, cy, w, h, then one score per class) and keeps anchors whose best class
// score reaches threshold. Boxes are scaled from network input to frame pixels.
func decodeCandidates(data []float32, attrs, anchors int, scaleX, scaleY, threshold float32) []candidate {
	if len(data) < attrs*anchors {
		return nil
	}

	var out []candidate
	for i := 0; i < anchors; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < attrs; c++ {
			score := data[c*anchors+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < threshold {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)

		out = append(out, candidate{
			box:     image.Rect(x1, y1, x2, y2),
			score:   maxScore,
			classID: maxClassID,
		})
	}
	return out
}

// loadLabels reads one class name per line; blank lines are ignored.
func loadLabels(path string) ([]string, error) {
	if path == "" {
		return append([]string(nil), DefaultLabels...), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open labels file %s", path)
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if label := strings.TrimSpace(scanner.Text()); label != "" {
			labels = append(labels, label)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read labels file %s", path)
	}
	if len(labels) == 0 {
		return nil, errors.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}
