// Package facemodel wraps the face detection and embedding models behind a
// single provider loaded once at startup and injected into request handlers.
package facemodel

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// Model is the process-wide face recognition capability provider.
// It holds the read-only backend for the process lifetime.
type Model struct {
	cfg     config.ModelConfig
	backend Backend
	logger  *zap.Logger
}

// New creates a model using the backend compiled into this build.
// Without the 'onnx' build tag the backend is nil and the model reports
// itself as not loaded.
func New(cfg config.ModelConfig, logger *zap.Logger) *Model {
	backend := NewBackend(cfg, logger)
	if backend == nil {
		logger.Warn("No face model backend available in this build; model endpoints will return MODEL_NOT_LOADED",
			zap.String("model", cfg.Name))
	}
	return &Model{cfg: cfg, backend: backend, logger: logger}
}

// NewWithBackend creates a model with an explicit backend. Used by tests and
// alternative runtimes.
func NewWithBackend(cfg config.ModelConfig, backend Backend, logger *zap.Logger) *Model {
	return &Model{cfg: cfg, backend: backend, logger: logger}
}

// Loaded reports whether a backend is present and ready
func (m *Model) Loaded() bool {
	return m.backend != nil && m.backend.IsReady()
}

// Info returns metadata about the configured model
func (m *Model) Info() Info {
	if m.Loaded() {
		return m.backend.Info()
	}
	return Info{
		Name:          m.cfg.Name,
		EmbeddingSize: m.cfg.EmbeddingSize,
		Backend:       "onnxruntime",
		Device:        m.cfg.Device,
	}
}

// Embedding extracts the embedding of the single face in the image
func (m *Model) Embedding(ctx context.Context, img image.Image) (*Face, error) {
	if !m.Loaded() {
		return nil, &Error{
			Code:    CodeModelNotLoaded,
			Message: "face recognition model is not loaded",
		}
	}

	face, err := m.backend.ExtractFace(ctx, img)
	if err != nil {
		return nil, err
	}

	if len(face.Embedding) != m.cfg.EmbeddingSize {
		return nil, &Error{
			Code: CodeInvalidEmbedding,
			Message: fmt.Sprintf("invalid embedding extracted: expected size %d, got %d",
				m.cfg.EmbeddingSize, len(face.Embedding)),
		}
	}

	return face, nil
}

// Close releases backend resources
func (m *Model) Close() error {
	if m.backend != nil {
		return m.backend.Close()
	}
	return nil
}
