package library

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// TimingEvent is one line of the scan timing log.
type TimingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// timingRecorder appends scan events as JSON lines. A nil or disabled
// recorder drops events.
type timingRecorder struct {
	start  time.Time
	mu     sync.Mutex
	events []TimingEvent
	file   *os.File
	enc    *json.Encoder
}

func newTimingRecorder(start time.Time, path string) (*timingRecorder, error) {
	tr := &timingRecorder{start: start}
	if path == "" {
		return tr, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr, nil
}

func (tr *timingRecorder) Close() error {
	if tr == nil || tr.file == nil {
		return nil
	}
	return tr.file.Close()
}

func (tr *timingRecorder) record(phase, kind, file, status string, start time.Time, d time.Duration) {
	if tr == nil {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(d)
	event := TimingEvent{
		Phase:      phase,
		Kind:       kind,
		File:       file,
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, event)
	if tr.enc != nil {
		_ = tr.enc.Encode(event)
	}
}

// Stage records a whole scan phase.
func (tr *timingRecorder) Stage(phase, status string, start time.Time) {
	tr.record(phase, "stage", "", status, start, time.Since(start))
}

// File records the work done on one document file.
func (tr *timingRecorder) File(phase, file, status string, start time.Time) {
	tr.record(phase, "file", file, status, start, time.Since(start))
}

// Events returns a copy of the recorded events.
func (tr *timingRecorder) Events() []TimingEvent {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]TimingEvent(nil), tr.events...)
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}
