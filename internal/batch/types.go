package batch

import "time"

// Record is the extraction outcome for a single image file
type Record struct {
	Path           string    `csv:"path" parquet:"path" json:"path"`
	FaceDetected   bool      `csv:"face_detected" parquet:"face_detected" json:"face_detected"`
	DetectionScore float32   `csv:"detection_score" parquet:"detection_score" json:"detection_score"`
	Embedding      []float32 `csv:"embedding" parquet:"embedding" json:"embedding,omitempty"`
	ErrorCode      string    `csv:"error_code" parquet:"error_code" json:"error_code,omitempty"`
	Error          string    `csv:"error" parquet:"error" json:"error,omitempty"`
}

// Result summarizes a completed batch run
type Result struct {
	Total     int64         `json:"total"`
	Succeeded int64         `json:"succeeded"`
	Failed    int64         `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Config contains batch pipeline configuration
type Config struct {
	Workers        int  `yaml:"workers" mapstructure:"workers"`                 // 4
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 100
	SkipFailures   bool `yaml:"skip_failures" mapstructure:"skip_failures"`     // true
}

// OutputFormat represents supported output file formats
type OutputFormat string

const (
	FormatCSV     OutputFormat = "csv"
	FormatParquet OutputFormat = "parquet"
	FormatJSON    OutputFormat = "json"
)

// DetectOutputFormat detects the output format from the file extension
func DetectOutputFormat(filename string) OutputFormat {
	switch {
	case len(filename) >= 8 && filename[len(filename)-8:] == ".parquet":
		return FormatParquet
	case len(filename) >= 5 && filename[len(filename)-5:] == ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// imageExtensions lists the file extensions picked up from an input directory
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}
