package facemodel

import (
	"math"
	"testing"
)

func TestDecodeStride(t *testing.T) {
	// One-cell feature map: inputSize 32, stride 32, two anchors per cell
	inputSize := 32
	stride := 32
	scores := []float32{0.9, 0.1}
	bboxes := make([]float32, 2*4)
	kps := make([]float32, 2*10)
	for i := 0; i < 4; i++ {
		bboxes[i] = 0.5
	}
	for i := 0; i < 10; i++ {
		kps[i] = 0.25
	}

	dets := decodeStride(scores, bboxes, kps, stride, inputSize, 0.5)
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection above threshold, got %d", len(dets))
	}

	d := dets[0]
	if d.Score != 0.9 {
		t.Errorf("score = %f, want 0.9", d.Score)
	}
	// Anchor center is (0, 0); distances are 0.5 stride units = 16 px
	want := [4]float32{-16, -16, 16, 16}
	for i := range want {
		if math.Abs(float64(d.Box[i]-want[i])) > 1e-6 {
			t.Errorf("box[%d] = %f, want %f", i, d.Box[i], want[i])
		}
	}
	for k := 0; k < 5; k++ {
		if math.Abs(float64(d.Keypoints[k][0]-8)) > 1e-6 {
			t.Errorf("keypoint %d x = %f, want 8", k, d.Keypoints[k][0])
		}
	}
}

func TestDecodeStrideBelowThreshold(t *testing.T) {
	scores := []float32{0.2, 0.3}
	dets := decodeStride(scores, make([]float32, 8), make([]float32, 20), 32, 32, 0.5)
	if len(dets) != 0 {
		t.Fatalf("expected no detections, got %d", len(dets))
	}
}

func TestDecodeStrideTruncatedHeads(t *testing.T) {
	// Two anchors score above threshold but the bbox and keypoint heads only
	// carry data for the first; the second must be dropped, not read past the
	// end of the shorter heads
	scores := []float32{0.9, 0.9}
	bboxes := make([]float32, 4)
	kps := make([]float32, 10)

	dets := decodeStride(scores, bboxes, kps, 32, 32, 0.5)
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection from truncated heads, got %d", len(dets))
	}

	// Empty heads yield nothing regardless of scores
	if dets := decodeStride(scores, nil, nil, 32, 32, 0.5); len(dets) != 0 {
		t.Fatalf("expected no detections with empty heads, got %d", len(dets))
	}
}

func TestIOU(t *testing.T) {
	a := [4]float32{0, 0, 10, 10}

	if v := iou(a, a); math.Abs(float64(v-1)) > 1e-6 {
		t.Errorf("iou(a, a) = %f, want 1.0", v)
	}

	disjoint := [4]float32{20, 20, 30, 30}
	if v := iou(a, disjoint); v != 0 {
		t.Errorf("iou of disjoint boxes = %f, want 0", v)
	}

	half := [4]float32{5, 0, 15, 10}
	v := iou(a, half)
	// Intersection 50, union 150
	if math.Abs(float64(v)-50.0/150.0) > 1e-6 {
		t.Errorf("iou = %f, want %f", v, 50.0/150.0)
	}
}

func TestNMS(t *testing.T) {
	t.Run("SuppressesOverlapping", func(t *testing.T) {
		dets := []Detection{
			{Box: [4]float32{0, 0, 10, 10}, Score: 0.7},
			{Box: [4]float32{1, 1, 11, 11}, Score: 0.9},
		}
		kept := nms(dets, 0.4)
		if len(kept) != 1 {
			t.Fatalf("expected 1 kept detection, got %d", len(kept))
		}
		if kept[0].Score != 0.9 {
			t.Errorf("kept score = %f, want highest 0.9", kept[0].Score)
		}
	})

	t.Run("KeepsSeparateFaces", func(t *testing.T) {
		dets := []Detection{
			{Box: [4]float32{0, 0, 10, 10}, Score: 0.8},
			{Box: [4]float32{100, 100, 110, 110}, Score: 0.9},
		}
		kept := nms(dets, 0.4)
		if len(kept) != 2 {
			t.Fatalf("expected 2 kept detections, got %d", len(kept))
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if kept := nms(nil, 0.4); len(kept) != 0 {
			t.Fatalf("expected no detections, got %d", len(kept))
		}
	})
}
