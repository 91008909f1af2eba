package benchmark

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvr-ai/yolo-nas/images"
)

// Scenario defines a specific test configuration.
type Scenario struct {
	Name       string            `json:"name"`
	Resolution images.Resolution `json:"resolution"`
	BatchSize  int               `json:"batch_size"`
	Iterations int               `json:"iterations"`
	WarmupRuns int               `json:"warmup_runs"`
}

// Validate checks that the scenario can run.
func (s Scenario) Validate() error {
	if s.Resolution.Pixels.Width <= 0 || s.Resolution.Pixels.Height <= 0 {
		return fmt.Errorf("scenario %s: invalid resolution %dx%d",
			s.Name, s.Resolution.Pixels.Width, s.Resolution.Pixels.Height)
	}
	if s.BatchSize < 1 || s.Iterations < 1 || s.WarmupRuns < 0 {
		return fmt.Errorf("scenario %s: batch %d, iterations %d, warmup %d",
			s.Name, s.BatchSize, s.Iterations, s.WarmupRuns)
	}
	return nil
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a scenario builder with a 640x640 source, batch 1,
// 100 iterations and 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	res, _ := images.GetResolutionByType(images.ResolutionTypeSquare640)
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Resolution: res,
			BatchSize:  1,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution sets the source image resolution.
func (sb *ScenarioBuilder) WithResolution(res images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = res
	return sb
}

// WithBatchSize sets the number of images per call.
func (sb *ScenarioBuilder) WithBatchSize(batchSize int) *ScenarioBuilder {
	sb.scenario.BatchSize = batchSize
	return sb
}

// WithIterations sets the number of timed iterations.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of untimed iterations.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ResolutionScenarios returns one scenario per known source resolution.
func ResolutionScenarios(batchSize, iterations, warmup int) []Scenario {
	all := images.GetAllResolutions()
	out := make([]Scenario, 0, len(all))
	for _, res := range all {
		out = append(out, NewScenarioBuilder(fmt.Sprintf("%dx%d_b%d", res.Pixels.Width, res.Pixels.Height, batchSize)).
			WithResolution(res).
			WithBatchSize(batchSize).
			WithIterations(iterations).
			WithWarmupRuns(warmup).
			Build())
	}
	return out
}

// SaveScenarios writes scenarios to a JSON file.
func SaveScenarios(scenarios []Scenario, filename string) error {
	data, err := json.MarshalIndent(scenarios, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenarios: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}
	return nil
}

// LoadScenarios reads scenarios from a JSON file.
func LoadScenarios(filename string) ([]Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenarios: %w", err)
	}
	return scenarios, nil
}
