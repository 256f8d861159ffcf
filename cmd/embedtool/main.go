package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Arch3nemy7/face-recognition-service/internal/batch"
	"github.com/Arch3nemy7/face-recognition-service/internal/config"
	"github.com/Arch3nemy7/face-recognition-service/internal/facemodel"
	"github.com/Arch3nemy7/face-recognition-service/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputDir   = flag.String("input", "", "Directory of images to process")
		outputPath = flag.String("output", "embeddings.csv", "Output file (.csv, .parquet, or .json)")
		workers    = flag.Int("workers", 4, "Number of worker goroutines")
		failFast   = flag.Bool("fail-fast", false, "Abort on the first extraction failure")
	)
	flag.Parse()

	if *inputDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input ./photos --output embeddings.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input ./photos --output embeddings.csv --workers 8\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting batch embedding extraction",
		zap.String("input", *inputDir),
		zap.String("output", *outputPath),
		zap.Int("workers", *workers))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling extraction...")
		cancel()
	}()

	model := facemodel.New(cfg.Model, log.WithComponent("facemodel").Logger)
	defer model.Close()

	pipeline := batch.NewPipeline(model, cfg.Image, &batch.Config{
		Workers:      *workers,
		SkipFailures: !*failFast,
	}, log.Logger)

	result, err := pipeline.Run(ctx, *inputDir, *outputPath)
	if err != nil {
		log.Fatal("Batch extraction failed", zap.Error(err))
	}

	log.Info("Batch extraction finished",
		zap.Int64("total", result.Total),
		zap.Int64("succeeded", result.Succeeded),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	fmt.Printf("Processed %d images: %d succeeded, %d failed (%.1fs)\n",
		result.Total, result.Succeeded, result.Failed, result.Duration.Seconds())
}
