package inference

import (
	"fmt"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/yolo-nas/tensor"
)

// session wraps one onnxruntime session with run statistics. A session is
// never used by two goroutines at once.
type session struct {
	id      int
	session *ort.DynamicAdvancedSession

	mu        sync.Mutex
	runs      int64
	totalTime time.Duration
}

func newSession(id int, cfg Config, inputs, outputs []TensorInfo, options *ort.SessionOptions) (*session, error) {
	s, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, names(inputs), names(outputs), options)
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}
	return &session{id: id, session: s}, nil
}

// run executes the model once. Inputs are shared with the runtime for the
// duration of the call. Outputs with a known shape are written in place into
// aligned tensors; the rest are allocated by the runtime and copied out.
func (s *session) run(inputs []*tensor.Tensor, outputs []TensorInfo) ([]*tensor.Tensor, error) {
	inValues := make([]ort.Value, 0, len(inputs))
	defer func() { destroyAll(inValues) }()
	for _, in := range inputs {
		v, err := newValue(in)
		if err != nil {
			return nil, err
		}
		inValues = append(inValues, v)
	}

	var batch int64
	if len(inputs) > 0 && inputs[0].Rank() > 0 {
		batch = inputs[0].Dims().Int64s()[0]
	}

	results := make([]*tensor.Tensor, len(outputs))
	outValues := make([]ort.Value, len(outputs))
	defer func() { destroyAll(outValues) }()

	fail := func(err error) ([]*tensor.Tensor, error) {
		releaseAll(results)
		return nil, err
	}

	for i, info := range outputs {
		shape, ok := resolveShape(info.Shape, batch)
		if !ok || !info.ElementType.Valid() || info.ElementType == tensor.Bool {
			continue
		}
		dims, err := tensor.DimensionsFromShape(shape)
		if err != nil {
			return fail(err)
		}
		out, err := tensor.Create(info.ElementType, dims)
		if err != nil {
			return fail(err)
		}
		results[i] = out
		if outValues[i], err = newValue(out); err != nil {
			return fail(err)
		}
	}

	start := time.Now()
	if err := s.session.Run(inValues, outValues); err != nil {
		return fail(fmt.Errorf("error running ORT session: %w", err))
	}
	s.observe(time.Since(start))

	for i, v := range outValues {
		if results[i] != nil {
			continue
		}
		if v == nil {
			return fail(fmt.Errorf("output %s was not produced", outputs[i].Name))
		}
		out, err := copyValue(v)
		if err != nil {
			return fail(fmt.Errorf("output %s: %w", outputs[i].Name, err))
		}
		results[i] = out
	}
	return results, nil
}

func (s *session) observe(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.totalTime += d
}

func (s *session) stats() (int64, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.totalTime
}

// Close releases the native session.
func (s *session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	if err != nil {
		return fmt.Errorf("error destroying ORT session: %w", err)
	}
	return nil
}

func names(infos []TensorInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

func destroyAll(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Destroy()
		}
	}
}

func releaseAll(ts []*tensor.Tensor) {
	for _, t := range ts {
		if t != nil {
			t.Release()
		}
	}
}
