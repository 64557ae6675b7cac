// Package pose decodes YOLOv8-pose output tensors into person detections
// with COCO keypoints.
package pose

import (
	"fmt"
	"image"
)

// NumKeypoints is the COCO person keypoint count
const NumKeypoints = 17

// Attributes per anchor: box (cx, cy, w, h), person score, then x, y, conf per keypoint
const Attributes = 4 + 1 + NumKeypoints*3

// Skeleton lists the keypoint pairs joined when drawing a person
var Skeleton = [][2]int{
	{15, 13}, {13, 11}, {16, 14}, {14, 12}, {11, 12},
	{5, 11}, {6, 12}, {5, 6}, {5, 7}, {6, 8},
	{7, 9}, {8, 10}, {1, 2}, {0, 1}, {0, 2},
	{1, 3}, {2, 4}, {3, 5}, {4, 6},
}

type Keypoint struct {
	X, Y float32
	Conf float32
}

// Point rounds the keypoint to pixel coordinates
func (k Keypoint) Point() image.Point {
	return image.Pt(int(k.X+0.5), int(k.Y+0.5))
}

type Detection struct {
	Box       image.Rectangle
	Score     float32
	Keypoints [NumKeypoints]Keypoint
}

// Decode reads a tensor laid out as [Attributes][anchors] and returns every
// anchor scoring at least threshold, scaled back to source pixels.
func Decode(data []float32, anchors int, scaleX, scaleY, threshold float32) ([]Detection, error) {
	if anchors <= 0 || len(data) != Attributes*anchors {
		return nil, fmt.Errorf("unexpected pose tensor: %d values for %d anchors (want %d)", len(data), anchors, Attributes*anchors)
	}

	at := func(attr, anchor int) float32 { return data[attr*anchors+anchor] }

	var detections []Detection
	for i := 0; i < anchors; i++ {
		score := at(4, i)
		if score < threshold {
			continue
		}

		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		det := Detection{
			Box: image.Rect(
				int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
				int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
			),
			Score: score,
		}
		for k := 0; k < NumKeypoints; k++ {
			base := 5 + k*3
			det.Keypoints[k] = Keypoint{
				X:    at(base, i) * scaleX,
				Y:    at(base+1, i) * scaleY,
				Conf: at(base+2, i),
			}
		}
		detections = append(detections, det)
	}
	return detections, nil
}
