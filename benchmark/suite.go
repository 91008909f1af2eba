package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/models/postprocess"
)

// Predictor runs detection on a batch of images.
type Predictor interface {
	PredictBatch(ctx context.Context, imgs []image.Image) ([][]postprocess.Result, error)
}

// Suite manages and executes benchmark scenarios over a corpus of images.
type Suite struct {
	predictor Predictor
	outputDir string
	logger    *zap.Logger

	mu        sync.RWMutex
	corpus    []image.Image
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - predictor: The detector under test.
//   - outputDir: Where SaveResults writes. May be empty.
//   - logger: The logger. May be nil.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(predictor Predictor, outputDir string, logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		predictor: predictor,
		outputDir: outputDir,
		logger:    logger,
	}
}

// AddScenario adds a test scenario to the benchmark suite
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// AddImages appends images to the corpus.
func (bs *Suite) AddImages(imgs ...image.Image) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.corpus = append(bs.corpus, imgs...)
}

// LoadImages adds an image file, or every supported image in a directory, to the
// corpus.
func (bs *Suite) LoadImages(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat image path: %w", err)
	}

	paths := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("failed to read directory: %w", err)
		}
		paths = paths[:0]
		for _, e := range entries {
			if _, ok := images.FormatFromPath(e.Name()); ok && !e.IsDir() {
				paths = append(paths, filepath.Join(path, e.Name()))
			}
		}
	}

	loaded := 0
	for _, p := range paths {
		img, err := images.Load(p)
		if err != nil {
			bs.logger.Warn("skipping image", zap.String("path", p), zap.Error(err))
			continue
		}
		bs.AddImages(img)
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no valid images found at %s", path)
	}
	return nil
}

// Results returns the metrics recorded so far.
func (bs *Suite) Results() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]PerformanceMetrics(nil), bs.results...)
}

// Run executes every added scenario in order. It stops at the first scenario
// that cannot run.
func (bs *Suite) Run(ctx context.Context) ([]PerformanceMetrics, error) {
	bs.mu.RLock()
	scenarios := append([]Scenario(nil), bs.scenarios...)
	bs.mu.RUnlock()

	out := make([]PerformanceMetrics, 0, len(scenarios))
	for _, s := range scenarios {
		m, err := bs.RunScenario(ctx, s)
		if err != nil {
			return out, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// RunScenario executes a single benchmark scenario. The corpus is resized to the
// scenario resolution, warmed up, then timed per batch. Failed batches count
// toward ErrorRate and do not abort the run.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	frames := bs.frames(scenario.Resolution)
	if len(frames) == 0 {
		return nil, fmt.Errorf("scenario %s: empty corpus", scenario.Name)
	}

	batch := func(i int) []image.Image {
		out := make([]image.Image, scenario.BatchSize)
		for j := range out {
			out[j] = frames[(i*scenario.BatchSize+j)%len(frames)]
		}
		return out
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := bs.predictor.PredictBatch(ctx, batch(i)); err != nil {
			bs.logger.Debug("warmup failed", zap.String("scenario", scenario.Name), zap.Error(err))
		}
	}

	var startMem, endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	samples := make([]float64, 0, scenario.Iterations)
	detections, failures := 0, 0
	start := time.Now()

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var results [][]postprocess.Result
		ms, err := MeasureMsecs(1, func() error {
			var err error
			results, err = bs.predictor.PredictBatch(ctx, batch(i))
			return err
		})
		if err != nil {
			failures++
			continue
		}
		samples = append(samples, ms)
		for _, r := range results {
			detections += len(r)
		}
	}

	total := time.Since(start)
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics := &PerformanceMetrics{
		Scenario:        scenario,
		Timestamp:       start,
		TotalDuration:   total,
		Latency:         Summarize(samples),
		FramesPerSecond: float64(len(samples)*scenario.BatchSize) / total.Seconds(),
		MemoryStats:     memoryDelta(startMem, endMem),
		NumCPU:          runtime.NumCPU(),
		DetectionCount:  detections,
		ErrorRate:       float64(failures) / float64(scenario.Iterations),
	}

	bs.logger.Info("scenario complete",
		zap.String("scenario", scenario.Name),
		zap.Float64("mean_ms", metrics.Latency.Mean),
		zap.Float64("p90_ms", metrics.Latency.P90),
		zap.Float64("fps", metrics.FramesPerSecond),
		zap.Float64("error_rate", metrics.ErrorRate),
	)

	bs.mu.Lock()
	bs.results = append(bs.results, *metrics)
	bs.mu.Unlock()
	return metrics, nil
}

// frames resizes the corpus to res.
func (bs *Suite) frames(res images.Resolution) []image.Image {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	out := make([]image.Image, len(bs.corpus))
	for i, img := range bs.corpus {
		b := img.Bounds()
		if b.Dx() == res.Pixels.Width && b.Dy() == res.Pixels.Height {
			out[i] = img
			continue
		}
		out[i] = imaging.Resize(img, res.Pixels.Width, res.Pixels.Height, imaging.Linear)
	}
	return out
}

// SaveResults writes the recorded metrics as JSON into the output directory.
//
// Returns:
//   - string: The written file path.
//   - error: An error if no output directory is set or writing fails.
func (bs *Suite) SaveResults() (string, error) {
	if bs.outputDir == "" {
		return "", fmt.Errorf("no output directory configured")
	}
	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(bs.Results(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	path := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}
