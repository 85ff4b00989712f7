// Package progress defines the sink that long-running stack operations
// report completion through. The sink is an injected capability with no
// contract beyond accepting updates; callers that do not care get a
// no-op default rather than nil checks in the hot path.
package progress

import "github.com/beamline-data/fluxnorm/internal/monitoring"

// Sink receives completion updates from a stack operation. done counts
// frames finished so far, total the frame count of the whole run; done
// never decreases and equals total exactly once on a successful run.
type Sink interface {
	Update(done, total int)
}

// Discard is the no-op sink used when the caller supplies none.
var Discard Sink = discard{}

type discard struct{}

func (discard) Update(int, int) {}

// LogSink writes progress lines through monitoring.Logf, at most one
// line per Every frames so large stacks do not flood the log. Updates
// are reported from the operation's collector goroutine, so LogSink
// does no locking of its own.
type LogSink struct {
	Label string // subsystem tag; "ifc" when empty
	Every int    // minimum frame gap between lines; <= 1 logs every update

	last int
}

func (s *LogSink) Update(done, total int) {
	if s.Every > 1 && done != total && done-s.last < s.Every {
		return
	}
	s.last = done
	label := s.Label
	if label == "" {
		label = "ifc"
	}
	monitoring.Logf("[%s] %d/%d frames", label, done, total)
}
