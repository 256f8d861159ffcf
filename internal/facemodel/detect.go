package facemodel

import "sort"

// detectionStrides are the SCRFD feature map strides, matching the order of
// the model's score/bbox/keypoint output triplets.
var detectionStrides = []int{8, 16, 32}

// anchorsPerCell is the number of anchor centers per feature map position
const anchorsPerCell = 2

// decodeStride converts one stride's raw detector outputs into detections in
// detector-input coordinates. scores has one value per anchor, bboxes four
// (left/top/right/bottom distances in stride units), kps ten (x, y per
// landmark).
func decodeStride(scores, bboxes, kps []float32, stride, inputSize int, threshold float32) []Detection {
	fm := inputSize / stride
	var out []Detection

	// Bound the anchor index by every head so a model with mismatched
	// output lengths cannot cause an out-of-range read
	anchors := len(scores)
	if n := len(bboxes) / 4; n < anchors {
		anchors = n
	}
	if n := len(kps) / 10; n < anchors {
		anchors = n
	}

	for y := 0; y < fm; y++ {
		for x := 0; x < fm; x++ {
			for a := 0; a < anchorsPerCell; a++ {
				idx := (y*fm+x)*anchorsPerCell + a
				if idx >= anchors || scores[idx] < threshold {
					continue
				}

				cx := float32(x * stride)
				cy := float32(y * stride)
				s := float32(stride)

				det := Detection{
					Score: scores[idx],
					Box: [4]float32{
						cx - bboxes[idx*4]*s,
						cy - bboxes[idx*4+1]*s,
						cx + bboxes[idx*4+2]*s,
						cy + bboxes[idx*4+3]*s,
					},
				}
				for k := 0; k < 5; k++ {
					det.Keypoints[k][0] = cx + kps[idx*10+k*2]*s
					det.Keypoints[k][1] = cy + kps[idx*10+k*2+1]*s
				}
				out = append(out, det)
			}
		}
	}

	return out
}

// nms suppresses overlapping detections, keeping the highest-scoring box of
// each overlapping group.
func nms(dets []Detection, iouThreshold float32) []Detection {
	if len(dets) <= 1 {
		return dets
	}

	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	var kept []Detection
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if !suppressed[j] && iou(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

// iou computes intersection-over-union of two x1,y1,x2,y2 boxes
func iou(a, b [4]float32) float32 {
	x1 := maxf(a[0], b[0])
	y1 := maxf(a[1], b[1])
	x2 := minf(a[2], b[2])
	y2 := minf(a[3], b[3])

	iw := maxf(0, x2-x1)
	ih := maxf(0, y2-y1)
	inter := iw * ih
	if inter == 0 {
		return 0
	}

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}

	return inter / union
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
