package facemodel

// Face is the result of detecting and embedding a single face
type Face struct {
	Embedding      []float32 `json:"embedding"`
	DetectionScore float32   `json:"detection_score"`
}

// Info describes the loaded model
type Info struct {
	Name          string `json:"name"`
	EmbeddingSize int    `json:"embedding_size"`
	Backend       string `json:"backend"`
	Device        string `json:"device"`
}

// Detection is a candidate face reported by the detector
type Detection struct {
	// Box is x1, y1, x2, y2 in input-image coordinates
	Box [4]float32
	// Keypoints are left eye, right eye, nose tip, left and right mouth
	// corners, each as x, y
	Keypoints [5][2]float32
	Score     float32
}

// Error is a face model failure with a machine-readable code
type Error struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Face model error codes
const (
	CodeModelNotLoaded        = "MODEL_NOT_LOADED"
	CodeNoFaceDetected        = "NO_FACE_DETECTED"
	CodeMultipleFacesDetected = "MULTIPLE_FACES_DETECTED"
	CodeInvalidEmbedding      = "INVALID_EMBEDDING"
	CodeProcessingError       = "PROCESSING_ERROR"
)
