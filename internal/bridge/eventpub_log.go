package bridge

import "github.com/rs/zerolog"

// LogPublisher writes events to a zerolog logger. Timeouts and spawn failures
// log at warn, everything else at debug.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) *LogPublisher { return &LogPublisher{log: l} }

func (p *LogPublisher) Publish(e Event) {
	var ev *zerolog.Event
	switch e.Name {
	case EventTimeout, EventSpawnError:
		ev = p.log.Warn()
	default:
		ev = p.log.Debug()
	}
	if e.PID > 0 {
		ev = ev.Int("pid", e.PID)
	}
	ev.Fields(e.Fields).Str("event", e.Name).Msg("cli " + e.Name)
}
