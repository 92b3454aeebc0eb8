package reaper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"syscall"
	"time"

	"file-reaper/internal/fsops"
	"file-reaper/internal/metrics"
	"file-reaper/internal/scheduler"
)

// Logger is the sink for deletion outcomes
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Recorder receives every outcome after it has been logged
type Recorder interface {
	RecordOutcome(o Outcome) error
}

// Service deletes files immediately or after a delay.
// All three deletion operations are fire-and-forget: outcomes are logged and
// handed to recorders, never returned.
type Service struct {
	deleter   fsops.Deleter
	logger    Logger
	recorders []Recorder
	sched     *scheduler.Scheduler
	now       func() time.Time
}

type Option func(*Service)

// WithDeleter sets the filesystem used for existence checks and removal
func WithDeleter(d fsops.Deleter) Option {
	return func(s *Service) { s.deleter = d }
}

// WithLogger sets the outcome log sink
func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRecorder adds an outcome recorder, e.g. the history database
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorders = append(s.recorders, r) }
}

// New creates a Service. Delayed work is abandoned when ctx is cancelled or Close is called.
func New(ctx context.Context, opts ...Option) *Service {
	s := &Service{
		deleter: fsops.NewOSDeleter(),
		logger:  nopLogger{},
		sched:   scheduler.New(ctx),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sched.OnPendingChange(metrics.SetPending)
	return s
}

// DeleteImmediately deletes the file at path if it exists and logs the outcome
func (s *Service) DeleteImmediately(path string) {
	metrics.RecordRequest("immediate", 0)
	s.execute(path, false, 0)
}

// DeleteWithDelay deletes the file at path once delaySeconds have elapsed.
// Returns without waiting.
func (s *Service) DeleteWithDelay(path string, delaySeconds float64) {
	delay := secondsToDuration(delaySeconds)
	metrics.RecordRequest("delayed", delay)

	if !s.sched.After(delay, func() { s.execute(path, true, delay) }) {
		s.logger.Warn("Service closed, deletion dropped", "path", path)
	}
}

// DeleteMultipleWithDelay waits delaySeconds once, then deletes every path in
// order with no delay between them. Returns without waiting.
func (s *Service) DeleteMultipleWithDelay(paths []string, delaySeconds float64) {
	delay := secondsToDuration(delaySeconds)
	metrics.RecordRequest("batch", delay)

	batch := make([]string, len(paths))
	copy(batch, paths)

	ok := s.sched.After(delay, func() {
		for _, p := range batch {
			s.execute(p, true, delay)
		}
	})
	if !ok {
		s.logger.Warn("Service closed, batch deletion dropped", "paths", len(batch))
	}
}

// Pending returns the number of delayed requests not yet finished
func (s *Service) Pending() int64 {
	return s.sched.Pending()
}

// Wait blocks until every delayed request has run or been abandoned
func (s *Service) Wait() {
	s.sched.Wait()
}

// Close abandons pending delayed deletions. Deletions already running finish first.
func (s *Service) Close() {
	s.sched.Stop()
}

func (s *Service) execute(path string, delayed bool, delay time.Duration) {
	out := Outcome{
		Path:    path,
		Delayed: delayed,
		Delay:   delay,
		At:      s.now(),
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				out.Action = ActionError
				out.Size = 0
				out.Err = fmt.Errorf("panic: %v", r)
			}
		}()
		out.Action, out.Size, out.Err = s.remove(path)
	}()
	out.Took = time.Since(out.At)

	switch out.Action {
	case ActionDeleted:
		s.logger.Info("File deleted", "path", path)
	case ActionNotFound:
		s.logger.Warn("File not found", "path", path)
	default:
		s.logger.Error("Failed to delete file", "path", path, "error", out.ErrorMessage())
	}

	metrics.RecordOutcome(out.Action.MetricLabel(), out.Size, out.Took)

	for _, r := range s.recorders {
		if err := r.RecordOutcome(out); err != nil {
			s.logger.Error("Failed to record deletion outcome", "path", path, "error", err.Error())
			metrics.RecordError()
		}
	}
}

// remove checks for a regular file at path and deletes it.
// Directories count as "no file here".
func (s *Service) remove(path string) (Action, int64, error) {
	info, err := s.deleter.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return ActionNotFound, 0, nil
		}
		return ActionError, 0, err
	}
	if info.IsDir() {
		return ActionNotFound, 0, nil
	}

	if err := s.deleter.Remove(path); err != nil {
		// Lost a race with another deleter of the same path
		if isNotExist(err) {
			return ActionNotFound, 0, nil
		}
		return ActionError, 0, err
	}
	return ActionDeleted, info.Size(), nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// secondsToDuration converts caller-supplied seconds. NaN and negative values
// become zero; values beyond the Duration range saturate.
func secondsToDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	ns := seconds * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
