package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/cache"
	"github.com/Arch3nemy7/face-recognition-service/internal/compare"
	"github.com/Arch3nemy7/face-recognition-service/internal/events"
	"github.com/Arch3nemy7/face-recognition-service/internal/facemodel"
	"github.com/Arch3nemy7/face-recognition-service/internal/imaging"
)

// handleRoot returns basic service identification
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !s.model.Loaded() {
		status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, rootResponse{
		Service: "face-recognition-service",
		Version: Version,
		Status:  status,
	})
}

// handleHealth reports service and model readiness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		ModelLoaded: s.model.Loaded(),
	}
	if resp.ModelLoaded {
		resp.ModelName = s.config.Model.Name
	} else {
		resp.Status = "unhealthy"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleModelInfo returns metadata about the configured model
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, modelInfoResponse(s.model.Info()))
}

// handleStats reports embedding cache counters and the most recent audit
// entries for the enabled subsystems
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		CacheEnabled: s.cache != nil,
		AuditEnabled: s.audit != nil,
	}

	if s.cache != nil {
		stats := s.cache.Stats()
		resp.Cache = &stats
	}

	if s.audit != nil {
		entries, err := s.audit.RecentEntries(r.Context(), 50)
		if err != nil {
			s.logger.WithRequestID(requestIDFrom(r.Context())).
				Warn("Failed to load recent audit entries", zap.Error(err))
		} else {
			resp.AuditRecent = entries
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleEmbed extracts the embedding of the single face in the supplied image
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	img, err := s.resolveImage(r.Context(), req.Image)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	face, err := s.extractFace(r.Context(), []byte(req.Image), img)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, embedResponse{
		Embedding:      face.Embedding,
		FaceDetected:   true,
		DetectionScore: face.DetectionScore,
	})
}

// handleCompare compares a query embedding against a set of references
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	metric, err := compare.ParseMetric(req.DistanceMetric)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	metaFrom(r.Context()).Metric = string(metric)

	thresholds := compare.Thresholds{
		Cosine:    s.config.Compare.CosineThreshold,
		Euclidean: s.config.Compare.EuclideanThreshold,
	}

	result, err := compare.FindBestMatch(req.QueryEmbedding, req.ReferenceEmbeddings, metric, thresholds)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.broadcastComparison(r.Context(), "compare", metric, result.BestMatch.Distance,
		result.BestMatch.Similarity, result.BestMatch.Match, len(req.ReferenceEmbeddings))

	s.writeJSON(w, http.StatusOK, result)
}

// handleComparePhotos extracts faces from two images and compares them
func (s *Server) handleComparePhotos(w http.ResponseWriter, r *http.Request) {
	var req comparePhotosRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	metric, err := compare.ParseMetric(req.DistanceMetric)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	metaFrom(r.Context()).Metric = string(metric)

	img1, err := s.resolveImage(r.Context(), req.Image1)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	img2, err := s.resolveImage(r.Context(), req.Image2)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.comparePhotos(w, r, metric, []byte(req.Image1), img1, []byte(req.Image2), img2)
}

// handleComparePhotosUpload is the multipart variant of compare-photos
func (s *Server) handleComparePhotosUpload(w http.ResponseWriter, r *http.Request) {
	// Two images plus form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Image.MaxBytes*2+1<<20)
	if err := r.ParseMultipartForm(s.config.Image.MaxBytes); err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidRequest,
			"invalid multipart form: "+err.Error())
		return
	}

	metric, err := compare.ParseMetric(r.FormValue("distance_metric"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	metaFrom(r.Context()).Metric = string(metric)

	data1, img1, err := s.readUpload(r, "image1")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data2, img2, err := s.readUpload(r, "image2")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.comparePhotos(w, r, metric, data1, img1, data2, img2)
}

// comparePhotos runs the shared extraction and comparison flow for both
// photo comparison endpoints
func (s *Server) comparePhotos(w http.ResponseWriter, r *http.Request, metric compare.Metric,
	key1 []byte, img1 image.Image, key2 []byte, img2 image.Image) {

	face1, err := s.extractFace(r.Context(), key1, img1)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	face2, err := s.extractFace(r.Context(), key2, img2)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	distance, err := compare.Distance(face1.Embedding, face2.Embedding, metric)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	thresholds := compare.Thresholds{
		Cosine:    s.config.Compare.CosineThreshold,
		Euclidean: s.config.Compare.EuclideanThreshold,
	}
	similarity := compare.Similarity(distance, metric)
	match := distance < thresholds.ForMetric(metric)

	s.broadcastComparison(r.Context(), "compare-photos", metric, distance, similarity, match, 0)

	s.writeJSON(w, http.StatusOK, comparePhotosResponse{
		Match:                match,
		Similarity:           similarity,
		Distance:             distance,
		DistanceMetric:       string(metric),
		Image1DetectionScore: face1.DetectionScore,
		Image2DetectionScore: face2.DetectionScore,
	})
}

// resolveImage turns an image input string, either base64 data or an http(s)
// URL, into a decoded image
func (s *Server) resolveImage(ctx context.Context, input string) (image.Image, error) {
	if imaging.IsURL(input) {
		return s.fetcher.Fetch(ctx, input)
	}
	return imaging.DecodeBase64(input, s.config.Image)
}

// extractFace runs the model on an image, consulting the embedding cache
// keyed by the raw input payload when enabled
func (s *Server) extractFace(ctx context.Context, cacheKey []byte, img image.Image) (*facemodel.Face, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Lookup(ctx, cacheKey); ok {
			return &facemodel.Face{
				Embedding:      cached.Embedding,
				DetectionScore: cached.DetectionScore,
			}, nil
		}
	}

	face, err := s.model.Embedding(ctx, img)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Store(ctx, cacheKey, &cache.CachedFace{
			Embedding:      face.Embedding,
			DetectionScore: face.DetectionScore,
		})
	}
	return face, nil
}

// readUpload reads and decodes one multipart file field
func (s *Server) readUpload(r *http.Request, field string) ([]byte, image.Image, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, nil, &imaging.Error{
			Code:    imaging.CodeInvalidImage,
			Message: "missing or unreadable file field: " + field,
		}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.config.Image.MaxBytes+1))
	if err != nil {
		return nil, nil, &imaging.Error{
			Code:    imaging.CodeInvalidImage,
			Message: "failed to read uploaded file: " + err.Error(),
		}
	}

	img, err := imaging.Decode(data, s.config.Image)
	if err != nil {
		return nil, nil, err
	}
	return data, img, nil
}

// broadcastComparison pushes a comparison outcome to monitoring clients
func (s *Server) broadcastComparison(ctx context.Context, operation string, metric compare.Metric,
	distance, similarity float64, match bool, references int) {

	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeComparison,
		Timestamp: time.Now(),
		RequestID: requestIDFrom(ctx),
		Data: events.ComparisonEvent{
			RequestID:  requestIDFrom(ctx),
			Operation:  operation,
			Metric:     string(metric),
			Distance:   distance,
			Similarity: similarity,
			Match:      match,
			References: references,
		},
	})
}

// decodeJSON parses a JSON request body, writing an error response on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Image.MaxBytes*3)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidRequest,
			"invalid JSON request body: "+err.Error())
		return false
	}
	return true
}

// writeJSON serializes a successful response
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError writes the error envelope and records the code for auditing
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	metaFrom(r.Context()).ErrorCode = code
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Error:     http.StatusText(status),
		Detail:    detail,
		ErrorCode: code,
	})
}

// respondError maps a typed domain error to an HTTP response
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := facemodel.CodeProcessingError
	message := "internal server error"

	var imgErr *imaging.Error
	var modelErr *facemodel.Error
	var cmpErr *compare.Error
	switch {
	case errors.As(err, &imgErr):
		code, message = imgErr.Code, imgErr.Message
	case errors.As(err, &modelErr):
		code, message = modelErr.Code, modelErr.Message
	case errors.As(err, &cmpErr):
		code, message = cmpErr.Code, cmpErr.Message
	default:
		s.logger.WithRequestID(requestIDFrom(r.Context())).
			Error("Unclassified request error", zap.Error(err))
	}

	status := http.StatusBadRequest
	switch code {
	case facemodel.CodeModelNotLoaded:
		status = http.StatusServiceUnavailable
	case facemodel.CodeProcessingError:
		status = http.StatusInternalServerError
	}

	s.writeError(w, r, status, code, message)
}
