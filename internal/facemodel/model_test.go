package facemodel

import (
	"context"
	"errors"
	"image"
	"testing"

	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// fakeBackend returns a fixed face for every extraction
type fakeBackend struct {
	face *Face
	err  error
}

func (f *fakeBackend) ExtractFace(ctx context.Context, img image.Image) (*Face, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.face, nil
}

func (f *fakeBackend) Info() Info {
	return Info{Name: "fake", EmbeddingSize: 512, Backend: "fake", Device: "cpu"}
}

func (f *fakeBackend) IsReady() bool { return true }
func (f *fakeBackend) Close() error  { return nil }

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 64))
}

func TestModel(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.GetDefaults().Model

	t.Run("NotLoadedWithoutBackend", func(t *testing.T) {
		m := NewWithBackend(cfg, nil, logger)
		if m.Loaded() {
			t.Error("model without backend reports loaded")
		}

		_, err := m.Embedding(context.Background(), testImage())
		var merr *Error
		if !errors.As(err, &merr) || merr.Code != CodeModelNotLoaded {
			t.Fatalf("expected MODEL_NOT_LOADED, got %v", err)
		}
	})

	t.Run("PassesThroughBackendFace", func(t *testing.T) {
		want := &Face{Embedding: make([]float32, 512), DetectionScore: 0.93}
		m := NewWithBackend(cfg, &fakeBackend{face: want}, logger)
		if !m.Loaded() {
			t.Fatal("model with ready backend reports not loaded")
		}

		face, err := m.Embedding(context.Background(), testImage())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if face.DetectionScore != 0.93 || len(face.Embedding) != 512 {
			t.Errorf("unexpected face result: score=%f len=%d", face.DetectionScore, len(face.Embedding))
		}
	})

	t.Run("RejectsWrongEmbeddingSize", func(t *testing.T) {
		m := NewWithBackend(cfg, &fakeBackend{face: &Face{Embedding: make([]float32, 10)}}, logger)
		_, err := m.Embedding(context.Background(), testImage())
		var merr *Error
		if !errors.As(err, &merr) || merr.Code != CodeInvalidEmbedding {
			t.Fatalf("expected INVALID_EMBEDDING, got %v", err)
		}
	})

	t.Run("PropagatesBackendErrors", func(t *testing.T) {
		backendErr := &Error{Code: CodeNoFaceDetected, Message: "no face detected in the image"}
		m := NewWithBackend(cfg, &fakeBackend{err: backendErr}, logger)
		_, err := m.Embedding(context.Background(), testImage())
		var merr *Error
		if !errors.As(err, &merr) || merr.Code != CodeNoFaceDetected {
			t.Fatalf("expected NO_FACE_DETECTED, got %v", err)
		}
	})

	t.Run("InfoWithoutBackend", func(t *testing.T) {
		m := NewWithBackend(cfg, nil, logger)
		info := m.Info()
		if info.Name != cfg.Name || info.EmbeddingSize != cfg.EmbeddingSize {
			t.Errorf("unexpected info: %+v", info)
		}
	})
}
