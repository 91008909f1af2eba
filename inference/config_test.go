package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/yolo-nas/inference/providers"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("model.onnx")
	assert.Equal(t, "model.onnx", cfg.ModelPath)
	assert.Equal(t, 1, cfg.BatchSize)
	assert.Equal(t, 1, cfg.NumThreads)
	assert.Equal(t, 1, cfg.Streams())
	assert.Equal(t, SchedulerSingleStream, cfg.Scheduler)
	assert.Equal(t, providers.CPUProviderBackend, cfg.Provider)
	assert.Equal(t, providers.GraphOptimizationExtended, cfg.GraphOptimization)

	o := cfg.SessionOptions()
	assert.Equal(t, 1, o.IntraOpNumThreads)
	assert.False(t, o.Parallel)
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig("model.onnx")
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no model", func(c *Config) { c.ModelPath = "" }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"negative threads", func(c *Config) { c.NumThreads = -2 }},
		{"zero streams", func(c *Config) { c.NumStreams = 0 }},
		{"negative warmup", func(c *Config) { c.Warmup = -1 }},
		{"unknown scheduler", func(c *Config) { c.Scheduler = "round_robin" }},
		{"empty scheduler", func(c *Config) { c.Scheduler = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "tpu" }},
		{"unknown graph level", func(c *Config) { c.GraphOptimization = "max" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigStreams(t *testing.T) {
	cfg := DefaultConfig("model.onnx")
	cfg.NumStreams = 4
	assert.Equal(t, 1, cfg.Streams(), "single_stream forces one session")

	cfg.Scheduler = SchedulerMultiStream
	assert.Equal(t, 4, cfg.Streams())

	cfg.Scheduler = SchedulerElastic
	assert.Equal(t, 4, cfg.Streams())
}

func TestConfigSessionOptions(t *testing.T) {
	cfg := DefaultConfig("model.onnx")
	cfg.NumThreads = 8
	cfg.NumStreams = 4
	cfg.Provider = providers.CUDAProviderBackend
	cfg.CUDA.DeviceID = 1

	o := cfg.SessionOptions()
	assert.Equal(t, 8, o.IntraOpNumThreads)
	assert.False(t, o.Parallel)
	assert.Equal(t, providers.CUDAProviderBackend, o.Backend)
	assert.Equal(t, 1, o.CUDA.DeviceID)
	assert.Equal(t, providers.GraphOptimizationExtended, o.GraphOptimization)

	cfg.Scheduler = SchedulerMultiStream
	o = cfg.SessionOptions()
	assert.Equal(t, 2, o.IntraOpNumThreads)
	assert.False(t, o.Parallel)

	cfg.NumThreads = 2
	o = cfg.SessionOptions()
	assert.Equal(t, 1, o.IntraOpNumThreads, "each stream keeps at least one thread")

	cfg.NumThreads = 0
	o = cfg.SessionOptions()
	assert.Equal(t, 0, o.IntraOpNumThreads, "zero defers to the runtime")

	cfg.Scheduler = SchedulerElastic
	cfg.NumThreads = 8
	o = cfg.SessionOptions()
	assert.Equal(t, 8, o.IntraOpNumThreads)
	assert.True(t, o.Parallel)
}
