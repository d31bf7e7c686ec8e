// Package notify abstracts the user-facing notification channel (the toast
// surface of the UI). The core never renders; it emits warnings and errors
// here and the embedding application decides how to show them.
package notify

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier receives user-visible notifications. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Warn(msg string)
	Error(msg string)
	Success(msg string)
}

// LogNotifier writes notifications to a zerolog logger. Used when the core
// runs headless.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier writing to stderr.
func NewLogNotifier() *LogNotifier {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return &LogNotifier{
		log: zerolog.New(out).With().Timestamp().Str("component", "notify").Logger(),
	}
}

func (n *LogNotifier) Warn(msg string)    { n.log.Warn().Msg(msg) }
func (n *LogNotifier) Error(msg string)   { n.log.Error().Msg(msg) }
func (n *LogNotifier) Success(msg string) { n.log.Info().Msg(msg) }

// Recorder captures notifications for inspection in tests.
type Recorder struct {
	mu        sync.Mutex
	Warnings  []string
	Errors    []string
	Successes []string
}

func (r *Recorder) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, msg)
}

func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Successes = append(r.Successes, msg)
}

// ErrorCount returns the number of error notifications seen so far.
func (r *Recorder) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors)
}

// WarningCount returns the number of warning notifications seen so far.
func (r *Recorder) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Warnings)
}
