//go:build !onnx
// +build !onnx

package facemodel

import (
	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// Stub implementation used when the 'onnx' build tag is not set.
func NewBackend(cfg config.ModelConfig, logger *zap.Logger) Backend {
	return nil
}
