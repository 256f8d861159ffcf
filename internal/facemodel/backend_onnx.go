//go:build onnx
// +build onnx

package facemodel

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// nmsIOUThreshold is the overlap cutoff used to merge duplicate detections
const nmsIOUThreshold = 0.4

// OnnxBackend implements Backend using ONNX Runtime (via yalue/onnxruntime_go).
// It runs a SCRFD detection session followed by an ArcFace recognition session.
type OnnxBackend struct {
	det *ort.DynamicAdvancedSession
	rec *ort.DynamicAdvancedSession

	detInputName   string
	detOutputNames []string
	recInputName   string
	recOutputName  string

	cfg    config.ModelConfig
	logger *zap.Logger
	ready  bool
	mu     sync.RWMutex
}

// NewBackend initializes the ONNX Runtime backend. Requires build tag 'onnx'.
func NewBackend(cfg config.ModelConfig, logger *zap.Logger) Backend {
	// Allow user to provide shared library path via environment variable.
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		logger.Error("ONNX Runtime environment init failed", zap.Error(err))
		return nil
	}

	opts, err := sessionOptions(cfg, logger)
	if err != nil {
		logger.Error("ONNX Runtime session options failed", zap.Error(err))
		return nil
	}
	if opts != nil {
		defer opts.Destroy()
	}

	// Inspect detector IO. SCRFD declares one input and nine outputs: score,
	// bbox, and keypoint heads for strides 8/16/32, in that order.
	detInputs, detOutputs, err := ort.GetInputOutputInfo(cfg.DetectorPath)
	if err != nil {
		logger.Error("Failed to inspect detector model IO", zap.Error(err), zap.String("model", cfg.DetectorPath))
		return nil
	}
	if len(detInputs) != 1 || len(detOutputs) != 9 {
		logger.Error("Unexpected detector model IO layout",
			zap.Int("inputs", len(detInputs)), zap.Int("outputs", len(detOutputs)))
		return nil
	}
	detOutputNames := make([]string, 0, len(detOutputs))
	for _, oi := range detOutputs {
		detOutputNames = append(detOutputNames, oi.Name)
	}

	detSession, err := ort.NewDynamicAdvancedSession(cfg.DetectorPath, []string{detInputs[0].Name}, detOutputNames, opts)
	if err != nil {
		logger.Error("Detector session creation failed", zap.Error(err), zap.String("model", cfg.DetectorPath))
		return nil
	}

	// Inspect recognizer IO: one input, one 512-d embedding output.
	recInputs, recOutputs, err := ort.GetInputOutputInfo(cfg.RecognizerPath)
	if err != nil {
		logger.Error("Failed to inspect recognizer model IO", zap.Error(err), zap.String("model", cfg.RecognizerPath))
		detSession.Destroy()
		return nil
	}
	if len(recInputs) != 1 || len(recOutputs) == 0 {
		logger.Error("Unexpected recognizer model IO layout",
			zap.Int("inputs", len(recInputs)), zap.Int("outputs", len(recOutputs)))
		detSession.Destroy()
		return nil
	}

	recSession, err := ort.NewDynamicAdvancedSession(cfg.RecognizerPath, []string{recInputs[0].Name}, []string{recOutputs[0].Name}, opts)
	if err != nil {
		logger.Error("Recognizer session creation failed", zap.Error(err), zap.String("model", cfg.RecognizerPath))
		detSession.Destroy()
		return nil
	}

	logger.Info("ONNX Runtime face backend ready",
		zap.String("detector", cfg.DetectorPath),
		zap.String("recognizer", cfg.RecognizerPath),
		zap.String("device", cfg.Device))

	return &OnnxBackend{
		det:            detSession,
		rec:            recSession,
		detInputName:   detInputs[0].Name,
		detOutputNames: detOutputNames,
		recInputName:   recInputs[0].Name,
		recOutputName:  recOutputs[0].Name,
		cfg:            cfg,
		logger:         logger,
		ready:          true,
	}
}

// sessionOptions builds execution provider options for the configured device
func sessionOptions(cfg config.ModelConfig, logger *zap.Logger) (*ort.SessionOptions, error) {
	if cfg.Device != "cuda" {
		return nil, nil
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}

	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("CUDA provider unavailable: %w", err)
	}
	defer cudaOpts.Destroy()

	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("failed to enable CUDA execution provider: %w", err)
	}

	logger.Info("CUDA execution provider enabled")
	return opts, nil
}

// IsReady reports whether both sessions are initialized.
func (b *OnnxBackend) IsReady() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready && b.det != nil && b.rec != nil
}

// Info returns model metadata.
func (b *OnnxBackend) Info() Info {
	return Info{
		Name:          b.cfg.Name,
		EmbeddingSize: b.cfg.EmbeddingSize,
		Backend:       "onnxruntime",
		Device:        b.cfg.Device,
	}
}

// Close releases sessions and environment resources.
func (b *OnnxBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.det != nil {
		b.det.Destroy()
		b.det = nil
	}
	if b.rec != nil {
		b.rec.Destroy()
		b.rec = nil
	}
	ort.DestroyEnvironment()
	b.ready = false
	return nil
}

// ExtractFace runs detection, alignment, and recognition for a single face.
func (b *OnnxBackend) ExtractFace(ctx context.Context, img image.Image) (*Face, error) {
	if !b.IsReady() {
		return nil, &Error{Code: CodeModelNotLoaded, Message: "onnx backend not ready"}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	rgba := toRGBA(img)

	detections, err := b.detect(rgba)
	if err != nil {
		return nil, err
	}

	if len(detections) == 0 {
		return nil, &Error{
			Code:    CodeNoFaceDetected,
			Message: "no face detected in the image",
		}
	}
	if len(detections) > 1 {
		return nil, &Error{
			Code: CodeMultipleFacesDetected,
			Message: fmt.Sprintf("multiple faces detected (%d); provide an image with a single face",
				len(detections)),
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	face := detections[0]
	transform := estimateSimilarityTransform(face.Keypoints, arcfaceTemplate)
	aligned := warpAlign(rgba, transform, AlignSize)

	embedding, err := b.recognize(aligned)
	if err != nil {
		return nil, err
	}

	return &Face{Embedding: embedding, DetectionScore: face.Score}, nil
}

// detect runs the SCRFD session and decodes detections back into source
// image coordinates.
func (b *OnnxBackend) detect(src *image.RGBA) ([]Detection, error) {
	inputSize := b.cfg.DetectionSize
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()

	// Letterbox: scale to fit, pad bottom/right with zeros
	scale := float64(inputSize) / float64(sw)
	if s := float64(inputSize) / float64(sh); s < scale {
		scale = s
	}
	rw := int(float64(sw)*scale + 0.5)
	rh := int(float64(sh)*scale + 0.5)
	resized := resizeBilinear(src, rw, rh)

	// CHW float32 input, RGB order, (x - 127.5) / 128
	data := make([]float32, 3*inputSize*inputSize)
	plane := inputSize * inputSize
	for y := 0; y < rh; y++ {
		for x := 0; x < rw; x++ {
			pi := resized.PixOffset(x, y)
			oi := y*inputSize + x
			data[oi] = (float32(resized.Pix[pi]) - 127.5) / 128.0
			data[plane+oi] = (float32(resized.Pix[pi+1]) - 127.5) / 128.0
			data[2*plane+oi] = (float32(resized.Pix[pi+2]) - 127.5) / 128.0
		}
	}

	shape := ort.NewShape(1, 3, int64(inputSize), int64(inputSize))
	input, err := ort.NewTensor[float32](shape, data)
	if err != nil {
		return nil, &Error{Code: CodeProcessingError, Message: fmt.Sprintf("failed to create detector input tensor: %v", err)}
	}
	defer input.Destroy()

	outputs := make([]ort.Value, len(b.detOutputNames))
	if err := b.det.Run([]ort.Value{input}, outputs); err != nil {
		return nil, &Error{Code: CodeProcessingError, Message: fmt.Sprintf("detector run failed: %v", err)}
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	raw := make([][]float32, len(outputs))
	for i, o := range outputs {
		t, ok := o.(*ort.Tensor[float32])
		if !ok {
			return nil, &Error{Code: CodeProcessingError, Message: "unexpected detector output type (want float32 tensor)"}
		}
		raw[i] = t.GetData()
	}

	// Outputs are score/bbox/kps triplets for strides 8, 16, 32
	var all []Detection
	for i, stride := range detectionStrides {
		all = append(all, decodeStride(raw[i], raw[i+3], raw[i+6], stride, inputSize, b.cfg.DetectionThreshold)...)
	}
	all = nms(all, nmsIOUThreshold)

	// Map back to source image coordinates
	inv := float32(1.0 / scale)
	for i := range all {
		for j := 0; j < 4; j++ {
			all[i].Box[j] *= inv
		}
		for k := 0; k < 5; k++ {
			all[i].Keypoints[k][0] *= inv
			all[i].Keypoints[k][1] *= inv
		}
	}

	return all, nil
}

// recognize runs the ArcFace session on an aligned 112x112 crop.
func (b *OnnxBackend) recognize(aligned *image.RGBA) ([]float32, error) {
	// CHW float32 input, RGB order, (x - 127.5) / 127.5
	plane := AlignSize * AlignSize
	data := make([]float32, 3*plane)
	for y := 0; y < AlignSize; y++ {
		for x := 0; x < AlignSize; x++ {
			pi := aligned.PixOffset(x, y)
			oi := y*AlignSize + x
			data[oi] = (float32(aligned.Pix[pi]) - 127.5) / 127.5
			data[plane+oi] = (float32(aligned.Pix[pi+1]) - 127.5) / 127.5
			data[2*plane+oi] = (float32(aligned.Pix[pi+2]) - 127.5) / 127.5
		}
	}

	shape := ort.NewShape(1, 3, AlignSize, AlignSize)
	input, err := ort.NewTensor[float32](shape, data)
	if err != nil {
		return nil, &Error{Code: CodeProcessingError, Message: fmt.Sprintf("failed to create recognizer input tensor: %v", err)}
	}
	defer input.Destroy()

	outputs := make([]ort.Value, 1)
	if err := b.rec.Run([]ort.Value{input}, outputs); err != nil {
		return nil, &Error{Code: CodeProcessingError, Message: fmt.Sprintf("recognizer run failed: %v", err)}
	}
	if outputs[0] == nil {
		return nil, &Error{Code: CodeProcessingError, Message: "recognizer returned no outputs"}
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, &Error{Code: CodeProcessingError, Message: "unexpected recognizer output type (want float32 tensor)"}
	}

	outData := out.GetData()
	if len(outData) != b.cfg.EmbeddingSize {
		return nil, &Error{
			Code: CodeProcessingError,
			Message: fmt.Sprintf("unexpected embedding length %d (want %d)",
				len(outData), b.cfg.EmbeddingSize),
		}
	}

	embedding := make([]float32, b.cfg.EmbeddingSize)
	copy(embedding, outData)
	return embedding, nil
}
