// Package compare implements face embedding distance computation and matching.
// All functions are pure: no I/O, no hidden state, inputs are never mutated.
package compare

import (
	"fmt"
	"math"
	"sort"
)

// ParseMetric normalizes and validates a metric selector string.
// An empty string defaults to cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricCosine:
		return MetricCosine, nil
	case MetricEuclidean:
		return MetricEuclidean, nil
	default:
		return "", &Error{
			Code:    CodeInvalidMetric,
			Message: fmt.Sprintf("distance metric must be 'cosine' or 'euclidean', got %q", s),
		}
	}
}

// ValidateEmbedding checks that a vector has exactly EmbeddingSize finite elements
func ValidateEmbedding(embedding []float32) error {
	if len(embedding) != EmbeddingSize {
		return &Error{
			Code:    CodeInvalidEmbedding,
			Message: fmt.Sprintf("embedding must have %d elements, got %d", EmbeddingSize, len(embedding)),
		}
	}
	for i, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &Error{
				Code:    CodeInvalidEmbedding,
				Message: fmt.Sprintf("embedding element %d is not finite", i),
			}
		}
	}
	return nil
}

// Distance computes the distance between two validated embeddings.
// Cosine distance is 1 - cos(q, e) in [0, 2]; euclidean is the L2 norm of q - e.
func Distance(query, reference []float32, metric Metric) (float64, error) {
	if err := ValidateEmbedding(query); err != nil {
		return 0, err
	}
	if err := ValidateEmbedding(reference); err != nil {
		return 0, err
	}

	switch metric {
	case MetricCosine:
		return cosineDistance(query, reference)
	case MetricEuclidean:
		return euclideanDistance(query, reference), nil
	default:
		return 0, &Error{
			Code:    CodeInvalidMetric,
			Message: fmt.Sprintf("unsupported distance metric: %q", metric),
		}
	}
}

// Similarity converts a distance into a score in [0, 1], higher is more similar.
// Cosine uses 1 - distance clamped to [0, 1]; euclidean uses 1 / (1 + distance).
func Similarity(distance float64, metric Metric) float64 {
	var s float64
	if metric == MetricEuclidean {
		s = 1.0 / (1.0 + distance)
	} else {
		s = 1.0 - distance
	}
	return math.Max(0.0, math.Min(1.0, s))
}

// FindBestMatch compares a query embedding against every reference and returns
// all matches sorted by ascending distance plus the single best entry. Ties on
// distance keep input order (stable sort), so the best match among equals is
// the first reference supplied.
func FindBestMatch(query []float32, references []Reference, metric Metric, thresholds Thresholds) (*Result, error) {
	if len(references) == 0 {
		return nil, &Error{
			Code:    CodeEmptyReferenceSet,
			Message: "reference embedding list must not be empty",
		}
	}

	if err := ValidateEmbedding(query); err != nil {
		return nil, err
	}

	cutoff := thresholds.ForMetric(metric)
	matches := make([]Match, 0, len(references))
	for _, ref := range references {
		distance, err := Distance(query, ref.Embedding, metric)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{
			ID:         ref.ID,
			Distance:   distance,
			Similarity: Similarity(distance, metric),
			Match:      distance < cutoff,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	return &Result{
		Matches:   matches,
		BestMatch: matches[0],
		Metric:    metric,
	}, nil
}

// cosineDistance computes 1 - cos(a, b), failing on zero-norm inputs
func cosineDistance(a, b []float32) (float64, error) {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, &Error{
			Code:    CodeDegenerateVector,
			Message: "cosine distance is undefined for zero-norm vectors",
		}
	}

	cosine := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Absorb floating-point error outside [-1, 1]
	cosine = math.Max(-1.0, math.Min(1.0, cosine))

	return 1.0 - cosine, nil
}

// euclideanDistance computes the L2 norm of a - b
func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
