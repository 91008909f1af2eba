// Command yolonas runs YOLO-NAS object detection on image files and writes
// annotated copies.
//
// Usage:
//
//	yolonas -config config.yml -output ./out photos/ street.jpg
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/nvr-ai/yolo-nas/benchmark"
	"github.com/nvr-ai/yolo-nas/config"
	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/images/cvutil"
	"github.com/nvr-ai/yolo-nas/inference"
	"github.com/nvr-ai/yolo-nas/inference/providers"
	"github.com/nvr-ai/yolo-nas/logger"
	"github.com/nvr-ai/yolo-nas/models"
	"github.com/nvr-ai/yolo-nas/models/postprocess"
	"github.com/nvr-ai/yolo-nas/models/yolonas"
	"github.com/nvr-ai/yolo-nas/tensor"
)

func main() {
	var (
		configPath string
		modelPath  string
		outputDir  string
		backend    string
		provider   string
		logLevel   string
		threshold  float64
		bench      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&modelPath, "model", "", "Path to the YOLO-NAS ONNX model (overrides config)")
	flag.StringVar(&outputDir, "output", "", "Directory for annotated images (overrides config)")
	flag.StringVar(&backend, "backend", "", "Image pipeline: go or opencv (overrides config)")
	flag.StringVar(&provider, "provider", "", "Execution provider: cpu, cuda, coreml or openvino (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	flag.Float64Var(&threshold, "confidence", -1, "Score threshold in [0, 1] (overrides config)")
	flag.BoolVar(&bench, "benchmark", false, "Run the resolution benchmark on the inputs")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: yolonas [flags] <image or directory>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if modelPath != "" {
		cfg.Model.Path = modelPath
		cfg.Engine.ModelPath = modelPath
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if backend != "" {
		cfg.Output.Backend = config.Backend(backend)
	}
	if provider != "" {
		b, err := providers.ParseBackend(provider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "provider: %v\n", err)
			os.Exit(2)
		}
		cfg.Engine.Provider = b
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if threshold >= 0 {
		cfg.Model.Decoder.ScoreThreshold = float32(threshold)
	}
	if bench {
		cfg.Benchmark.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, _, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Args(), log); err != nil {
		log.Error("yolonas failed", zap.Error(err))
		log.Sync() //nolint:errcheck
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, log *zap.Logger) error {
	paths, err := collectInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %v", args)
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	engine, err := inference.NewEngine(cfg.Engine, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn("closing engine", zap.Error(err))
		}
	}()

	// A model with a fixed input size wins over the configured one.
	if size, ok := engine.InputSize(); ok && (size.X != cfg.Model.Width || size.Y != cfg.Model.Height) {
		log.Warn("using model input size",
			zap.Int("width", size.X), zap.Int("height", size.Y),
			zap.Int("configured_width", cfg.Model.Width), zap.Int("configured_height", cfg.Model.Height),
		)
		cfg.Model.Width, cfg.Model.Height = size.X, size.Y
	}

	m, err := models.NewModel(cfg.Model)
	if err != nil {
		return err
	}
	detector := yolonas.NewDetector(engine, m,
		yolonas.WithLogger(log),
		yolonas.WithLabels(models.LabelsFor(cfg.Model.Family)),
		yolonas.WithConcurrency(cfg.Concurrency),
	)

	var corpus []image.Image
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		var results []postprocess.Result
		switch cfg.Output.Backend {
		case config.BackendOpenCV:
			results, err = detectOpenCV(ctx, detector, cfg, path)
		default:
			var img image.Image
			img, results, err = detectGo(ctx, detector, cfg, path)
			if img != nil && cfg.Benchmark.Enabled {
				corpus = append(corpus, img)
			}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		log.Info("detections", zap.String("image", path), zap.Int("count", len(results)))
		for _, r := range results {
			log.Debug("detection", zap.String("image", path), zap.Stringer("result", r))
		}
	}

	stats := engine.Stats()
	log.Info("inference summary",
		zap.Int("images", len(paths)),
		zap.Int64("runs", stats.Runs),
		zap.Duration("mean", stats.Mean()),
	)

	if !cfg.Benchmark.Enabled {
		return nil
	}
	return runBenchmark(ctx, detector, cfg, corpus, paths, log)
}

// detectGo runs the pure-Go pipeline and saves an annotated copy.
func detectGo(ctx context.Context, d *yolonas.Detector, cfg *config.Config, path string) (image.Image, []postprocess.Result, error) {
	img, err := images.Load(path)
	if err != nil {
		return nil, nil, err
	}
	results, err := d.Predict(ctx, img)
	if err != nil {
		return nil, nil, err
	}

	canvas := imaging.Clone(img)
	images.DrawDetections(canvas, postprocess.Annotations(results), cfg.Output.Thickness)
	if err := images.Save(outputPath(cfg.Output.Dir, path), canvas); err != nil {
		return nil, nil, err
	}
	return img, results, nil
}

// detectOpenCV letterboxes and draws with OpenCV, sharing the engine and
// decoding with the Go pipeline.
func detectOpenCV(ctx context.Context, d *yolonas.Detector, cfg *config.Config, path string) ([]postprocess.Result, error) {
	frame, err := cvutil.Read(path)
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	base := d.Model().Options()
	boxed, lb, err := cvutil.Letterbox(frame, base.Input.X, base.Input.Y)
	if err != nil {
		return nil, err
	}
	defer boxed.Close()

	blob, err := cvutil.BlobTensor(boxed, base.Precision.Quantized())
	if err != nil {
		return nil, err
	}
	defer blob.Release()

	batches, err := d.Detect(ctx, []*tensor.Tensor{blob}, []images.Letterbox{lb})
	if err != nil {
		return nil, err
	}
	results := batches[0]

	cvutil.DrawDetections(&frame, postprocess.Annotations(results), cfg.Output.Thickness)
	if err := cvutil.Write(outputPath(cfg.Output.Dir, path), frame); err != nil {
		return nil, err
	}
	return results, nil
}

func runBenchmark(ctx context.Context, d *yolonas.Detector, cfg *config.Config, corpus []image.Image, paths []string, log *zap.Logger) error {
	suite := benchmark.NewSuite(d, cfg.Benchmark.OutputDir, log)
	if len(corpus) > 0 {
		suite.AddImages(corpus...)
	} else {
		for _, p := range paths {
			if err := suite.LoadImages(p); err != nil {
				return err
			}
		}
	}

	// Single-image latency at the model's own resolution.
	first, err := images.Load(paths[0])
	if err != nil {
		return err
	}
	mean, err := benchmark.MeasureMsecsWithWarmup(cfg.Benchmark.Iterations, cfg.Benchmark.Warmup, func() error {
		_, err := d.Predict(ctx, first)
		return err
	})
	if err != nil {
		return fmt.Errorf("measure predict: %w", err)
	}
	log.Info("predict latency", zap.String("image", paths[0]), zap.Float64("mean_ms", mean))

	for _, s := range benchmark.ResolutionScenarios(cfg.Engine.BatchSize, cfg.Benchmark.Iterations, cfg.Benchmark.Warmup) {
		suite.AddScenario(s)
	}
	results, err := suite.Run(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		log.Info("scenario",
			zap.String("name", r.Scenario.Name),
			zap.Float64("fps", r.FramesPerSecond),
			zap.Float64("p50_ms", r.Latency.P50),
			zap.Float64("p99_ms", r.Latency.P99),
			zap.Float64("error_rate", r.ErrorRate),
		)
	}

	file, err := suite.SaveResults()
	if err != nil {
		return err
	}
	log.Info("benchmark results saved", zap.String("file", file))
	return nil
}
