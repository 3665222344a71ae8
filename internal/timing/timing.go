package timing

import (
	"time"

	"pearldb/pkg/logger"
)

// Span measures the wall time of one named pipeline stage.
type Span struct {
	name  string
	start time.Time
}

// Start begins timing a stage and logs that it started.
func Start(name string) *Span {
	logger.Debug("stage started", "stage", name)
	return &Span{
		name:  name,
		start: time.Now(),
	}
}

// Done logs the elapsed time for the stage together with any extra
// keyvals and returns the duration.
func (s *Span) Done(keyvals ...any) time.Duration {
	elapsed := time.Since(s.start)
	args := append([]any{"stage", s.name, "took", elapsed.Round(time.Millisecond)}, keyvals...)
	logger.Info("stage finished", args...)
	return elapsed
}
