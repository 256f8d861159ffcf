package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
	"github.com/Arch3nemy7/face-recognition-service/internal/facemodel"
)

type fakeBackend struct {
	face *facemodel.Face
	err  error
}

func (f *fakeBackend) ExtractFace(ctx context.Context, img image.Image) (*facemodel.Face, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.face, nil
}

func (f *fakeBackend) Info() facemodel.Info {
	return facemodel.Info{Name: "buffalo_l", EmbeddingSize: 512, Backend: "onnxruntime", Device: "cpu"}
}

func (f *fakeBackend) IsReady() bool { return true }
func (f *fakeBackend) Close() error  { return nil }

func writeTestImages(t *testing.T, dir string, count int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	for i := 0; i < count; i++ {
		path := filepath.Join(dir, string(rune('a'+i))+".png")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			t.Fatalf("failed to write test image: %v", err)
		}
	}
	// A non-image file that must be ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatalf("failed to write text file: %v", err)
	}
}

func newTestPipeline(t *testing.T, backend facemodel.Backend) *Pipeline {
	t.Helper()

	cfg := config.GetDefaults()
	log := zap.NewNop()
	model := facemodel.NewWithBackend(cfg.Model, backend, log)
	return NewPipeline(model, cfg.Image, &Config{Workers: 2, SkipFailures: true}, log)
}

func TestRunCSV(t *testing.T) {
	emb := make([]float32, 512)
	emb[0] = 1.0
	backend := &fakeBackend{face: &facemodel.Face{Embedding: emb, DetectionScore: 0.9}}

	inputDir := t.TempDir()
	writeTestImages(t, inputDir, 3)
	outputPath := filepath.Join(t.TempDir(), "out.csv")

	p := newTestPipeline(t, backend)
	result, err := p.Run(context.Background(), inputDir, outputPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Total != 3 || result.Succeeded != 3 || result.Failed != 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "path" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	for _, row := range rows[1:] {
		if row[1] != "true" {
			t.Errorf("expected face_detected true, got %q", row[1])
		}
		if row[3] == "" {
			t.Error("expected non-empty embedding column")
		}
	}
}

func TestRunRecordsFailures(t *testing.T) {
	backend := &fakeBackend{err: &facemodel.Error{
		Code:    facemodel.CodeNoFaceDetected,
		Message: "no face detected in image",
	}}

	inputDir := t.TempDir()
	writeTestImages(t, inputDir, 2)
	outputPath := filepath.Join(t.TempDir(), "out.csv")

	p := newTestPipeline(t, backend)
	result, err := p.Run(context.Background(), inputDir, outputPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Failed != 2 || result.Succeeded != 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	for _, row := range rows[1:] {
		if row[4] != facemodel.CodeNoFaceDetected {
			t.Errorf("expected error code NO_FACE_DETECTED, got %q", row[4])
		}
	}
}

func TestRunFailFast(t *testing.T) {
	backend := &fakeBackend{err: &facemodel.Error{
		Code:    facemodel.CodeNoFaceDetected,
		Message: "no face detected in image",
	}}

	inputDir := t.TempDir()
	writeTestImages(t, inputDir, 20)
	outputPath := filepath.Join(t.TempDir(), "out.csv")

	cfg := config.GetDefaults()
	log := zap.NewNop()
	model := facemodel.NewWithBackend(cfg.Model, backend, log)
	p := NewPipeline(model, cfg.Image, &Config{Workers: 2, SkipFailures: false}, log)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), inputDir, outputPath)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from first failed extraction")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after a writer failure")
	}
}

func TestRunJSON(t *testing.T) {
	emb := make([]float32, 512)
	emb[0] = 1.0
	backend := &fakeBackend{face: &facemodel.Face{Embedding: emb, DetectionScore: 0.9}}

	inputDir := t.TempDir()
	writeTestImages(t, inputDir, 2)
	outputPath := filepath.Join(t.TempDir(), "out.json")

	p := newTestPipeline(t, backend)
	result, err := p.Run(context.Background(), inputDir, outputPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Succeeded != 2 {
		t.Errorf("unexpected result: %+v", result)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var count int
	for decoder.More() {
		var rec Record
		if err := decoder.Decode(&rec); err != nil {
			t.Fatalf("failed to decode record: %v", err)
		}
		if !rec.FaceDetected || len(rec.Embedding) != 512 {
			t.Errorf("unexpected record: %+v", rec)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 records, got %d", count)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	emb := make([]float32, 512)
	emb[0] = 1.0
	p := newTestPipeline(t, &fakeBackend{face: &facemodel.Face{Embedding: emb, DetectionScore: 0.9}})

	_, err := p.Run(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "out.csv"))
	if err == nil {
		t.Fatal("expected error for empty input directory")
	}
}

func TestRunModelNotLoaded(t *testing.T) {
	p := newTestPipeline(t, nil)

	inputDir := t.TempDir()
	writeTestImages(t, inputDir, 1)

	_, err := p.Run(context.Background(), inputDir, filepath.Join(t.TempDir(), "out.csv"))
	if err == nil {
		t.Fatal("expected error when model is not loaded")
	}
}

func TestDetectOutputFormat(t *testing.T) {
	tests := []struct {
		path string
		want OutputFormat
	}{
		{"out.csv", FormatCSV},
		{"out.parquet", FormatParquet},
		{"out.json", FormatJSON},
		{"out.txt", FormatCSV},
	}
	for _, tt := range tests {
		if got := DetectOutputFormat(tt.path); got != tt.want {
			t.Errorf("DetectOutputFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
