package server

import (
	"github.com/Arch3nemy7/face-recognition-service/internal/audit"
	"github.com/Arch3nemy7/face-recognition-service/internal/cache"
	"github.com/Arch3nemy7/face-recognition-service/internal/compare"
	"github.com/Arch3nemy7/face-recognition-service/internal/facemodel"
)

// codeInvalidRequest reports a request body that could not be parsed at all
const codeInvalidRequest = "INVALID_REQUEST"

// contextKey is a private type for request context values
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyMeta      contextKey = "request_meta"
)

// requestMeta collects per-request details filled in by handlers so the
// logging middleware can audit and broadcast them after completion.
type requestMeta struct {
	Operation string
	Metric    string
	ErrorCode string
}

// embedRequest is the body of POST /api/v1/embed
type embedRequest struct {
	Image string `json:"image"`
}

// embedResponse is the result of a successful embedding extraction
type embedResponse struct {
	Embedding      []float32 `json:"embedding"`
	FaceDetected   bool      `json:"face_detected"`
	DetectionScore float32   `json:"detection_score"`
}

// compareRequest is the body of POST /api/v1/compare
type compareRequest struct {
	QueryEmbedding      []float32           `json:"query_embedding"`
	ReferenceEmbeddings []compare.Reference `json:"reference_embeddings"`
	DistanceMetric      string              `json:"distance_metric"`
}

// comparePhotosRequest is the body of POST /api/v1/compare-photos.
// Image fields accept base64 data, data URIs, or http(s) URLs.
type comparePhotosRequest struct {
	Image1         string `json:"image1"`
	Image2         string `json:"image2"`
	DistanceMetric string `json:"distance_metric"`
}

// comparePhotosResponse is the result of a direct photo comparison
type comparePhotosResponse struct {
	Match                bool    `json:"match"`
	Similarity           float64 `json:"similarity"`
	Distance             float64 `json:"distance"`
	DistanceMetric       string  `json:"distance_metric"`
	Image1DetectionScore float32 `json:"image1_detection_score"`
	Image2DetectionScore float32 `json:"image2_detection_score"`
}

// healthResponse is the body of GET /api/v1/health
type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelName   string `json:"model_name,omitempty"`
}

// modelInfoResponse is the body of GET /api/v1/model-info
type modelInfoResponse = facemodel.Info

// statsResponse is the body of GET /api/v1/stats. Sections for disabled
// subsystems are omitted.
type statsResponse struct {
	CacheEnabled bool          `json:"cache_enabled"`
	Cache        *cache.Stats  `json:"cache,omitempty"`
	AuditEnabled bool          `json:"audit_enabled"`
	AuditRecent  []audit.Entry `json:"audit_recent,omitempty"`
}

// rootResponse is the body of GET /
type rootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// errorResponse is the body of every error reply
type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	ErrorCode string `json:"error_code"`
}
