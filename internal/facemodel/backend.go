package facemodel

import (
	"context"
	"image"
)

// Backend defines a pluggable face detection and embedding engine.
// Implementations may use ONNX Runtime, TensorRT, or other runtimes.
type Backend interface {
	// ExtractFace detects faces in the image and returns the embedding of
	// the single detected face. It fails when zero or multiple faces are
	// found.
	ExtractFace(ctx context.Context, img image.Image) (*Face, error)
	// Info returns metadata about the loaded model.
	Info() Info
	// IsReady returns whether the backend is initialized and ready.
	IsReady() bool
	// Close releases any native resources.
	Close() error
}

// NewBackend creates a backend if supported by the current build.
// The default (no build tags) returns nil to avoid CGO dependencies.
// Note: Implementations are provided in build-tagged files, e.g., backend_onnx.go and backend_stub.go
