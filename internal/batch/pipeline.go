// Package batch extracts face embeddings from a directory of images using a
// worker pool and writes the results to CSV, Parquet, or JSON.
package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
	"github.com/Arch3nemy7/face-recognition-service/internal/facemodel"
	"github.com/Arch3nemy7/face-recognition-service/internal/imaging"
)

// Pipeline runs embedding extraction over a set of image files
type Pipeline struct {
	model  *facemodel.Model
	limits config.ImageConfig
	config *Config
	logger *zap.Logger
}

// NewPipeline creates a new batch extraction pipeline
func NewPipeline(model *facemodel.Model, limits config.ImageConfig, cfg *Config, logger *zap.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ProgressReport <= 0 {
		cfg.ProgressReport = 100
	}
	return &Pipeline{
		model:  model,
		limits: limits,
		config: cfg,
		logger: logger,
	}
}

// Run extracts embeddings from every image in inputDir and writes the
// results to outputPath. The output format is chosen by file extension.
func (p *Pipeline) Run(ctx context.Context, inputDir, outputPath string) (*Result, error) {
	if !p.model.Loaded() {
		return nil, errors.New("face recognition model is not loaded")
	}

	files, err := p.listImages(inputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files found in %s", inputDir)
	}

	format := DetectOutputFormat(outputPath)
	p.logger.Info("Starting batch extraction",
		zap.Int("files", len(files)),
		zap.Int("workers", p.config.Workers),
		zap.String("output", outputPath),
		zap.String("format", string(format)))

	start := time.Now()
	result := &Result{Total: int64(len(files))}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	records := make(chan Record, p.config.Workers)

	var workers sync.WaitGroup
	for i := 0; i < p.config.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for path := range jobs {
				records <- p.extractOne(ctx, path)
			}
		}()
	}

	// On writer failure, stop feeding and drain the channel so blocked
	// workers can finish and Wait below returns.
	writeErr := make(chan error, 1)
	go func() {
		err := p.writeRecords(outputPath, format, records, result)
		if err != nil {
			cancel()
			for range records {
			}
		}
		writeErr <- err
	}()

	go func() {
		defer close(jobs)
		for _, path := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- path:
			}
		}
	}()

	workers.Wait()
	close(records)

	if err := <-writeErr; err != nil {
		return result, err
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	result.Duration = time.Since(start)
	p.logger.Info("Batch extraction completed",
		zap.Int64("total", result.Total),
		zap.Int64("succeeded", result.Succeeded),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// listImages collects image file paths from a directory, non-recursive
func (p *Pipeline) listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// extractOne processes a single image file into a record. Failures are
// captured in the record rather than aborting the run.
func (p *Pipeline) extractOne(ctx context.Context, path string) Record {
	rec := Record{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		rec.ErrorCode = imaging.CodeInvalidImage
		rec.Error = err.Error()
		return rec
	}

	img, err := imaging.Decode(data, p.limits)
	if err != nil {
		fillError(&rec, err)
		return rec
	}

	face, err := p.model.Embedding(ctx, img)
	if err != nil {
		fillError(&rec, err)
		return rec
	}

	rec.FaceDetected = true
	rec.DetectionScore = face.DetectionScore
	rec.Embedding = face.Embedding
	return rec
}

// fillError copies a typed error's code and message into a record
func fillError(rec *Record, err error) {
	var imgErr *imaging.Error
	var modelErr *facemodel.Error
	switch {
	case errors.As(err, &imgErr):
		rec.ErrorCode = imgErr.Code
	case errors.As(err, &modelErr):
		rec.ErrorCode = modelErr.Code
	default:
		rec.ErrorCode = facemodel.CodeProcessingError
	}
	rec.Error = err.Error()
}

// writeRecords drains the record channel into the output file
func (p *Pipeline) writeRecords(outputPath string, format OutputFormat, records <-chan Record, result *Result) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	var write func(Record) error
	var flush func() error

	switch format {
	case FormatParquet:
		writer := parquet.NewWriter(file)
		write = func(rec Record) error { return writer.Write(&rec) }
		flush = writer.Close

	case FormatJSON:
		encoder := json.NewEncoder(file)
		write = func(rec Record) error { return encoder.Encode(rec) }
		flush = func() error { return nil }

	default:
		writer := csv.NewWriter(file)
		if err := writer.Write([]string{"path", "face_detected", "detection_score", "embedding", "error_code", "error"}); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		write = func(rec Record) error { return writer.Write(csvRow(rec)) }
		flush = func() error {
			writer.Flush()
			return writer.Error()
		}
	}

	var written int64
	for rec := range records {
		if rec.Error != "" {
			atomic.AddInt64(&result.Failed, 1)
			if !p.config.SkipFailures {
				return fmt.Errorf("extraction failed for %s: %s", rec.Path, rec.Error)
			}
		} else {
			atomic.AddInt64(&result.Succeeded, 1)
		}

		if err := write(rec); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", rec.Path, err)
		}

		written++
		if written%int64(p.config.ProgressReport) == 0 {
			p.logger.Info("Extraction progress",
				zap.Int64("written", written),
				zap.Int64("total", result.Total))
		}
	}

	return flush()
}

// csvRow serializes a record for CSV output. The embedding is encoded as a
// semicolon-separated float list.
func csvRow(rec Record) []string {
	var embedding strings.Builder
	for i, v := range rec.Embedding {
		if i > 0 {
			embedding.WriteByte(';')
		}
		embedding.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	return []string{
		rec.Path,
		strconv.FormatBool(rec.FaceDetected),
		strconv.FormatFloat(float64(rec.DetectionScore), 'g', -1, 32),
		embedding.String(),
		rec.ErrorCode,
		rec.Error,
	}
}
