package compare

import (
	"errors"
	"math"
	"testing"
)

// oneHot returns a 512-dimensional vector with a single 1.0 at index i
func oneHot(i int) []float32 {
	v := make([]float32, EmbeddingSize)
	v[i] = 1.0
	return v
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *compare.Error, got %T: %v", err, err)
	}
	if cerr.Code != code {
		t.Fatalf("expected error code %s, got %s", code, cerr.Code)
	}
}

func TestParseMetric(t *testing.T) {
	t.Run("Cosine", func(t *testing.T) {
		m, err := ParseMetric("cosine")
		if err != nil || m != MetricCosine {
			t.Fatalf("expected cosine, got %q err=%v", m, err)
		}
	})

	t.Run("Euclidean", func(t *testing.T) {
		m, err := ParseMetric("euclidean")
		if err != nil || m != MetricEuclidean {
			t.Fatalf("expected euclidean, got %q err=%v", m, err)
		}
	})

	t.Run("EmptyDefaultsToCosine", func(t *testing.T) {
		m, err := ParseMetric("")
		if err != nil || m != MetricCosine {
			t.Fatalf("expected cosine default, got %q err=%v", m, err)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseMetric("manhattan")
		assertCode(t, err, CodeInvalidMetric)
	})
}

func TestDistance(t *testing.T) {
	t.Run("SelfDistanceIsZero", func(t *testing.T) {
		e := oneHot(7)
		for _, m := range []Metric{MetricCosine, MetricEuclidean} {
			d, err := Distance(e, e, m)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", m, err)
			}
			if d != 0 {
				t.Errorf("%s: distance(e, e) = %f, want 0", m, d)
			}
		}
	})

	t.Run("Symmetry", func(t *testing.T) {
		a := oneHot(0)
		b := make([]float32, EmbeddingSize)
		for i := range b {
			b[i] = float32(i%5) - 2.0
		}
		for _, m := range []Metric{MetricCosine, MetricEuclidean} {
			dab, err := Distance(a, b, m)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", m, err)
			}
			dba, err := Distance(b, a, m)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", m, err)
			}
			if dab != dba {
				t.Errorf("%s: distance not symmetric: %f vs %f", m, dab, dba)
			}
		}
	})

	t.Run("CosineRange", func(t *testing.T) {
		a := oneHot(0)
		opposite := make([]float32, EmbeddingSize)
		opposite[0] = -1.0

		d, err := Distance(a, opposite, MetricCosine)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d < 0 || d > 2 {
			t.Errorf("cosine distance %f outside [0, 2]", d)
		}
		if math.Abs(d-2.0) > 1e-6 {
			t.Errorf("opposite vectors: distance = %f, want 2.0", d)
		}
	})

	t.Run("OrthogonalCosine", func(t *testing.T) {
		d, err := Distance(oneHot(0), oneHot(1), MetricCosine)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(d-1.0) > 1e-6 {
			t.Errorf("orthogonal vectors: distance = %f, want 1.0", d)
		}
	})

	t.Run("EuclideanNonNegative", func(t *testing.T) {
		d, err := Distance(oneHot(0), oneHot(1), MetricEuclidean)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d < 0 {
			t.Errorf("euclidean distance %f is negative", d)
		}
		if math.Abs(d-math.Sqrt2) > 1e-6 {
			t.Errorf("distinct one-hot vectors: distance = %f, want sqrt(2)", d)
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		short := make([]float32, 511)
		_, err := Distance(short, oneHot(0), MetricCosine)
		assertCode(t, err, CodeInvalidEmbedding)
	})

	t.Run("NonFinite", func(t *testing.T) {
		bad := oneHot(0)
		bad[100] = float32(math.NaN())
		_, err := Distance(oneHot(0), bad, MetricEuclidean)
		assertCode(t, err, CodeInvalidEmbedding)
	})

	t.Run("ZeroNormCosine", func(t *testing.T) {
		zero := make([]float32, EmbeddingSize)
		_, err := Distance(zero, oneHot(0), MetricCosine)
		assertCode(t, err, CodeDegenerateVector)
	})

	t.Run("ZeroNormEuclideanAllowed", func(t *testing.T) {
		zero := make([]float32, EmbeddingSize)
		d, err := Distance(zero, oneHot(0), MetricEuclidean)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(d-1.0) > 1e-6 {
			t.Errorf("distance = %f, want 1.0", d)
		}
	})
}

func TestSimilarity(t *testing.T) {
	t.Run("CosineIdentical", func(t *testing.T) {
		if s := Similarity(0.0, MetricCosine); s != 1.0 {
			t.Errorf("similarity(0) = %f, want 1.0", s)
		}
	})

	t.Run("CosineOrthogonal", func(t *testing.T) {
		if s := Similarity(1.0, MetricCosine); s != 0.0 {
			t.Errorf("similarity(1) = %f, want 0.0", s)
		}
	})

	t.Run("CosineClamped", func(t *testing.T) {
		// Distances above 1 clamp down to 0 similarity
		if s := Similarity(1.7, MetricCosine); s != 0.0 {
			t.Errorf("similarity(1.7) = %f, want 0.0", s)
		}
	})

	t.Run("EuclideanInverse", func(t *testing.T) {
		if s := Similarity(0.0, MetricEuclidean); s != 1.0 {
			t.Errorf("similarity(0) = %f, want 1.0", s)
		}
		if s := Similarity(1.0, MetricEuclidean); math.Abs(s-0.5) > 1e-9 {
			t.Errorf("similarity(1) = %f, want 0.5", s)
		}
	})
}

func TestFindBestMatch(t *testing.T) {
	thresholds := DefaultThresholds()

	t.Run("IdenticalReferenceMatches", func(t *testing.T) {
		q := oneHot(0)
		res, err := FindBestMatch(q, []Reference{{ID: "alice", Embedding: oneHot(0)}}, MetricCosine, thresholds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.BestMatch.ID != "alice" {
			t.Errorf("best match id = %s, want alice", res.BestMatch.ID)
		}
		if res.BestMatch.Distance != 0.0 || res.BestMatch.Similarity != 1.0 {
			t.Errorf("best match distance=%f similarity=%f, want 0.0/1.0",
				res.BestMatch.Distance, res.BestMatch.Similarity)
		}
		if !res.BestMatch.Match {
			t.Error("identical embeddings should match")
		}
	})

	t.Run("OrthogonalReferenceDoesNotMatch", func(t *testing.T) {
		res, err := FindBestMatch(oneHot(0), []Reference{{ID: "bob", Embedding: oneHot(1)}}, MetricCosine, thresholds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(res.BestMatch.Distance-1.0) > 1e-6 {
			t.Errorf("distance = %f, want 1.0", res.BestMatch.Distance)
		}
		if res.BestMatch.Similarity != 0.0 {
			t.Errorf("similarity = %f, want 0.0", res.BestMatch.Similarity)
		}
		if res.BestMatch.Match {
			t.Error("orthogonal embeddings should not match (1.0 >= 0.4)")
		}
	})

	t.Run("SingleReferenceIsBest", func(t *testing.T) {
		res, err := FindBestMatch(oneHot(3), []Reference{{ID: "only", Embedding: oneHot(9)}}, MetricEuclidean, thresholds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Matches) != 1 || res.BestMatch.ID != "only" {
			t.Errorf("single reference must be the best match, got %+v", res)
		}
	})

	t.Run("BestMatchHasMinimumDistance", func(t *testing.T) {
		q := oneHot(0)
		refs := []Reference{
			{ID: "far", Embedding: oneHot(1)},
			{ID: "near", Embedding: q},
			{ID: "also-far", Embedding: oneHot(2)},
		}
		res, err := FindBestMatch(q, refs, MetricCosine, thresholds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.BestMatch.ID != "near" {
			t.Errorf("best match id = %s, want near", res.BestMatch.ID)
		}
		for _, m := range res.Matches {
			if res.BestMatch.Distance > m.Distance {
				t.Errorf("best match distance %f exceeds %s at %f",
					res.BestMatch.Distance, m.ID, m.Distance)
			}
		}
	})

	t.Run("MatchesSortedAscending", func(t *testing.T) {
		q := oneHot(0)
		refs := []Reference{
			{ID: "b", Embedding: oneHot(1)},
			{ID: "a", Embedding: q},
		}
		res, err := FindBestMatch(q, refs, MetricEuclidean, thresholds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := 1; i < len(res.Matches); i++ {
			if res.Matches[i-1].Distance > res.Matches[i].Distance {
				t.Errorf("matches not sorted ascending at %d", i)
			}
		}
	})

	t.Run("TieBreakKeepsInputOrder", func(t *testing.T) {
		q := oneHot(0)
		refs := []Reference{
			{ID: "first", Embedding: oneHot(5)},
			{ID: "second", Embedding: oneHot(5)},
		}
		res, err := FindBestMatch(q, refs, MetricCosine, thresholds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.BestMatch.ID != "first" {
			t.Errorf("equal-distance tie should keep input order, got %s", res.BestMatch.ID)
		}
	})

	t.Run("EmptyReferenceSet", func(t *testing.T) {
		_, err := FindBestMatch(oneHot(0), nil, MetricCosine, thresholds)
		assertCode(t, err, CodeEmptyReferenceSet)
	})

	t.Run("ShortQueryEmbedding", func(t *testing.T) {
		_, err := FindBestMatch(make([]float32, 511), []Reference{{ID: "x", Embedding: oneHot(0)}}, MetricCosine, thresholds)
		assertCode(t, err, CodeInvalidEmbedding)
	})

	t.Run("ShortReferenceEmbedding", func(t *testing.T) {
		_, err := FindBestMatch(oneHot(0), []Reference{{ID: "x", Embedding: make([]float32, 511)}}, MetricCosine, thresholds)
		assertCode(t, err, CodeInvalidEmbedding)
	})

	t.Run("InputsNotMutated", func(t *testing.T) {
		q := oneHot(0)
		ref := oneHot(1)
		if _, err := FindBestMatch(q, []Reference{{ID: "x", Embedding: ref}}, MetricCosine, thresholds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q[0] != 1.0 || ref[1] != 1.0 {
			t.Error("comparison mutated its inputs")
		}
	})
}
