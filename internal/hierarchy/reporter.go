package hierarchy

import (
	"log/slog"
	"sync"
)

// Reporter receives the messages of a walk. Errors mark skipped branches,
// notices are informational.
type Reporter interface {
	Error(msg string)
	Notice(msg string)
}

// SlogReporter forwards walk messages to a structured logger.
type SlogReporter struct {
	logger *slog.Logger
}

func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger.With(slog.String("component", "hierarchy"))}
}

func (r *SlogReporter) Error(msg string) {
	r.logger.Error(msg)
}

func (r *SlogReporter) Notice(msg string) {
	r.logger.Info(msg)
}

// Severity of a recorded message.
type Severity string

const (
	SeverityError  Severity = "error"
	SeverityNotice Severity = "notice"
)

// Message is one recorded walk message.
type Message struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Text     string   `json:"text" yaml:"text"`
}

// Recorder keeps every message in arrival order.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Error(msg string) {
	r.add(SeverityError, msg)
}

func (r *Recorder) Notice(msg string) {
	r.add(SeverityNotice, msg)
}

func (r *Recorder) add(s Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Severity: s, Text: msg})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Errors returns the text of the recorded errors.
func (r *Recorder) Errors() []string {
	return r.texts(SeverityError)
}

// Notices returns the text of the recorded notices.
func (r *Recorder) Notices() []string {
	return r.texts(SeverityNotice)
}

func (r *Recorder) texts(s Severity) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		if m.Severity == s {
			out = append(out, m.Text)
		}
	}
	return out
}

// Tee sends every message to all reporters.
type Tee []Reporter

func (t Tee) Error(msg string) {
	for _, r := range t {
		r.Error(msg)
	}
}

func (t Tee) Notice(msg string) {
	for _, r := range t {
		r.Notice(msg)
	}
}
