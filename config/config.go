// Package config - Application configuration loaded from YAML and environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/nvr-ai/yolo-nas/inference"
	"github.com/nvr-ai/yolo-nas/logger"
	"github.com/nvr-ai/yolo-nas/models"
	"github.com/nvr-ai/yolo-nas/models/model"
	"github.com/nvr-ai/yolo-nas/models/postprocess"
	"github.com/nvr-ai/yolo-nas/models/yolonas"
)

// EnvPrefix prefixes every environment override, e.g. YOLONAS_MODEL_PATH.
const EnvPrefix = "YOLONAS"

// Backend selects the image pipeline used by the CLI.
type Backend string

const (
	// BackendGo letterboxes and draws with pure-Go image libraries.
	BackendGo Backend = "go"
	// BackendOpenCV letterboxes and draws with OpenCV.
	BackendOpenCV Backend = "opencv"
)

// OutputConfig controls rendered results.
type OutputConfig struct {
	// Dir receives annotated images.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
	// Thickness is the box outline width in pixels.
	Thickness int `json:"thickness" yaml:"thickness" mapstructure:"thickness"`
	// Backend is go or opencv.
	Backend Backend `json:"backend" yaml:"backend" mapstructure:"backend"`
}

// BenchmarkConfig controls the optional timing run.
type BenchmarkConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Iterations int    `json:"iterations" yaml:"iterations" mapstructure:"iterations"`
	Warmup     int    `json:"warmup" yaml:"warmup" mapstructure:"warmup"`
	OutputDir  string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// Config is the complete application configuration.
type Config struct {
	Model       model.NewModelArgs `json:"model" yaml:"model" mapstructure:"model"`
	Engine      inference.Config   `json:"engine" yaml:"engine" mapstructure:"engine"`
	Log         logger.Config      `json:"log" yaml:"log" mapstructure:"log"`
	Output      OutputConfig       `json:"output" yaml:"output" mapstructure:"output"`
	Benchmark   BenchmarkConfig    `json:"benchmark" yaml:"benchmark" mapstructure:"benchmark"`
	Concurrency int                `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// setDefaults registers a default for every key so that each one can be
// overridden from the environment.
func setDefaults(v *viper.Viper) {
	m := yolonas.DefaultArgs(model.ModelNameYOLONASS, "yolo_nas_s.onnx")
	v.SetDefault("model.name", string(m.Name))
	v.SetDefault("model.path", m.Path)
	v.SetDefault("model.family", string(m.Family))
	v.SetDefault("model.width", m.Width)
	v.SetDefault("model.height", m.Height)
	v.SetDefault("model.precision", string(m.Precision))
	v.SetDefault("model.decoder.score_threshold", m.Decoder.ScoreThreshold)
	v.SetDefault("model.decoder.multi_label", m.Decoder.MultiLabel)
	v.SetDefault("model.nms.iou_threshold", m.NMS.IoUThreshold)
	v.SetDefault("model.nms.max_candidates_per_class", postprocess.DefaultMaxCandidatesPerClass)
	v.SetDefault("model.nms.max_detections", postprocess.DefaultMaxDetections)
	v.SetDefault("model.nms.class_agnostic", m.NMS.ClassAgnostic)

	e := inference.DefaultConfig("")
	v.SetDefault("engine.model_path", e.ModelPath)
	v.SetDefault("engine.shared_library_path", e.SharedLibraryPath)
	v.SetDefault("engine.batch_size", e.BatchSize)
	v.SetDefault("engine.num_threads", e.NumThreads)
	v.SetDefault("engine.num_streams", e.NumStreams)
	v.SetDefault("engine.scheduler", string(e.Scheduler))
	v.SetDefault("engine.provider", string(e.Provider))
	v.SetDefault("engine.graph_optimization", string(e.GraphOptimization))
	v.SetDefault("engine.warmup", e.Warmup)
	v.SetDefault("engine.cuda.device_id", 0)
	v.SetDefault("engine.openvino.device_type", "")

	l := logger.DefaultConfig()
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.dir", l.Dir)
	v.SetDefault("log.file", l.File)
	v.SetDefault("log.console", l.Console)
	v.SetDefault("log.max_size_mb", l.MaxSizeMB)
	v.SetDefault("log.max_backups", l.MaxBackups)
	v.SetDefault("log.max_age_days", l.MaxAgeDays)

	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.thickness", 2)
	v.SetDefault("output.backend", string(BackendGo))

	v.SetDefault("benchmark.enabled", false)
	v.SetDefault("benchmark.iterations", 100)
	v.SetDefault("benchmark.warmup", 10)
	v.SetDefault("benchmark.output_dir", "./benchmark_results")

	v.SetDefault("concurrency", 4)
}

// Load reads configuration from path, or from defaults and the environment
// alone when path is empty, and validates it.
//
// Arguments:
//   - path: A YAML file, or "".
//
// Returns:
//   - *Config: The configuration.
//   - error: A read, decode or validation error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Engine.ModelPath == "" {
		cfg.Engine.ModelPath = cfg.Model.Path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if _, err := models.NewModel(c.Model); err != nil {
		errs = append(errs, fmt.Errorf("model: %w", err))
	}
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	switch c.Output.Backend {
	case BackendGo, BackendOpenCV:
	default:
		errs = append(errs, fmt.Errorf("output: unknown backend %q", c.Output.Backend))
	}
	if c.Output.Thickness < 1 {
		errs = append(errs, fmt.Errorf("output: thickness %d", c.Output.Thickness))
	}
	if c.Benchmark.Iterations < 0 || c.Benchmark.Warmup < 0 {
		errs = append(errs, fmt.Errorf("benchmark: iterations %d, warmup %d", c.Benchmark.Iterations, c.Benchmark.Warmup))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency %d", c.Concurrency))
	}
	return errors.Join(errs...)
}
