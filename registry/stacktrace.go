package registry

import (
	"encoding/json"
	"fmt"
)

type jsonPoint struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

type jsonRange struct {
	Start jsonPoint `json:"start"`
	Stop  jsonPoint `json:"stop"`
}

type jsonFrame struct {
	Path  []string  `json:"path"`
	Range jsonRange `json:"range"`
}

// StackTraceJSON renders frames in the remote side's stack-trace format:
// one object per frame holding a single-element path and a one-line range.
func StackTraceJSON(frames []Frame) ([]byte, error) {
	out := make([]jsonFrame, len(frames))
	for i, f := range frames {
		p := jsonPoint{Line: f.Line, Col: 1}
		out[i] = jsonFrame{Path: []string{f.Path}, Range: jsonRange{Start: p, Stop: p}}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("registry: encode stack trace: %w", err)
	}
	return data, nil
}

// ParseStackTraceJSON is the inverse of StackTraceJSON.
func ParseStackTraceJSON(data []byte) ([]Frame, error) {
	var in []jsonFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: stack trace: %v", ErrCorruptStream, err)
	}
	frames := make([]Frame, len(in))
	for i, f := range in {
		if len(f.Path) != 1 {
			return nil, fmt.Errorf("%w: stack frame %d has %d path elements", ErrCorruptStream, i, len(f.Path))
		}
		frames[i] = Frame{Path: f.Path[0], Line: f.Range.Start.Line}
	}
	return frames, nil
}
