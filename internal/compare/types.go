package compare

// EmbeddingSize is the expected length of every face embedding.
const EmbeddingSize = 512

// Metric selects the distance function used for comparison
type Metric string

const (
	// MetricCosine is cosine distance: 1 - cosine similarity
	MetricCosine Metric = "cosine"
	// MetricEuclidean is the L2 norm of the vector difference
	MetricEuclidean Metric = "euclidean"
)

// Thresholds contains the static match-decision cutoffs per metric
type Thresholds struct {
	Cosine    float64
	Euclidean float64
}

// DefaultThresholds returns the standard match cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{Cosine: 0.4, Euclidean: 1.0}
}

// ForMetric returns the cutoff for the given metric
func (t Thresholds) ForMetric(m Metric) float64 {
	if m == MetricEuclidean {
		return t.Euclidean
	}
	return t.Cosine
}

// Reference is a candidate embedding tagged with an opaque identifier
type Reference struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
}

// Match is the comparison outcome for a single reference
type Match struct {
	ID         string  `json:"id"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Match      bool    `json:"match"`
}

// Result contains all matches sorted by ascending distance plus the best one
type Result struct {
	Matches   []Match `json:"matches"`
	BestMatch Match   `json:"best_match"`
	Metric    Metric  `json:"distance_metric"`
}

// Error is a comparison failure with a machine-readable code
type Error struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Comparison error codes
const (
	CodeInvalidEmbedding  = "INVALID_EMBEDDING"
	CodeDegenerateVector  = "DEGENERATE_VECTOR"
	CodeEmptyReferenceSet = "EMPTY_REFERENCE_SET"
	CodeInvalidMetric     = "INVALID_METRIC"
)
