package detection

import (
	"fmt"
	"image"
	"image/color"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"sensor-fusion-go/internal/helpers"
	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/services/detection/pose"
)

var (
	boxColor      = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	keypointColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	limbColor     = color.RGBA{R: 0, G: 128, B: 255, A: 255}
)

// PoseModel runs a YOLOv8-pose ONNX network on the CPU and draws the
// detected people onto the frame. A PoseModel is not safe for concurrent use;
// each worker loads its own.
type PoseModel struct {
	net            gocv.Net
	inputSize      int
	scoreThreshold float32
	nmsThreshold   float32
	keypointConf   float32
}

// NewPoseModel loads the network weights from path
func NewPoseModel(path string, inputSize int, scoreThreshold, nmsThreshold float64) (*PoseModel, error) {
	net := gocv.ReadNet(path, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to load pose model from %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	log.Debug().Str("model", path).Int("input_size", inputSize).Msg("Pose model loaded")

	return &PoseModel{
		net:            net,
		inputSize:      inputSize,
		scoreThreshold: float32(scoreThreshold),
		nmsThreshold:   float32(nmsThreshold),
		keypointConf:   0.5,
	}, nil
}

// Annotate returns a copy of frame with boxes, keypoints and limbs drawn
func (m *PoseModel) Annotate(frame *models.Frame) (*models.Frame, error) {
	mat, err := helpers.FrameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	detections, err := m.detect(mat)
	if err != nil {
		return nil, err
	}

	for _, det := range detections {
		m.draw(&mat, det)
	}

	annotated, err := helpers.MatToFrame(mat)
	if err != nil {
		return nil, err
	}
	annotated.Timestamp = frame.Timestamp
	return annotated, nil
}

func (m *PoseModel) detect(mat gocv.Mat) ([]pose.Detection, error) {
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(m.inputSize, m.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 || dims[1] != pose.Attributes {
		return nil, fmt.Errorf("unexpected pose output shape %v", dims)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read pose output: %w", err)
	}

	scaleX := float32(mat.Cols()) / float32(m.inputSize)
	scaleY := float32(mat.Rows()) / float32(m.inputSize)
	candidates, err := pose.Decode(data, dims[2], scaleX, scaleY, m.scoreThreshold)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box
		scores[i] = c.Score
	}

	keep := gocv.NMSBoxes(boxes, scores, m.scoreThreshold, m.nmsThreshold)
	detections := make([]pose.Detection, 0, len(keep))
	for _, idx := range keep {
		detections = append(detections, candidates[idx])
	}
	return detections, nil
}

func (m *PoseModel) draw(mat *gocv.Mat, det pose.Detection) {
	gocv.Rectangle(mat, det.Box, boxColor, 2)

	for _, limb := range pose.Skeleton {
		a, b := det.Keypoints[limb[0]], det.Keypoints[limb[1]]
		if a.Conf < m.keypointConf || b.Conf < m.keypointConf {
			continue
		}
		gocv.Line(mat, a.Point(), b.Point(), limbColor, 2)
	}

	for _, kp := range det.Keypoints {
		if kp.Conf < m.keypointConf {
			continue
		}
		gocv.Circle(mat, kp.Point(), 4, keypointColor, -1)
	}
}

// Close frees the network
func (m *PoseModel) Close() error {
	return m.net.Close()
}
