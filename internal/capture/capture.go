package capture

import "context"

// Chunk is one bounded segment of recorded audio, written to disk by a
// source. Seq starts at 1 and increases by one per chunk within a session.
// Final marks the last chunk of a session.
type Chunk struct {
	Path  string
	Seq   int
	Final bool
}

// Callbacks receive everything a Source has to say about a session.
// OnChunk fires zero or more times, in increasing Seq order, with at most
// one Final chunk. OnStopped fires exactly once after Stop, even when the
// session produced no chunks. OnError reports a fatal capture failure.
// OnAdvisory reports non-fatal conditions (e.g. the microphone looks muted).
type Callbacks struct {
	OnChunk    func(Chunk)
	OnStopped  func()
	OnError    func(error)
	OnAdvisory func(string)
}

// Source records audio and emits chunks. Start returns synchronously with
// an accept/reject result; all outcomes after that arrive via Callbacks.
// A Source supports at most one recording at a time but may be reused for
// many sessions. Close releases long-lived resources (worker process,
// connection); it is not called between sessions.
type Source interface {
	Start(ctx context.Context, cb Callbacks) error
	Stop() error
	Validate() error
	Recording() bool
	Close() error
}

func (c Callbacks) chunk(ch Chunk) {
	if c.OnChunk != nil {
		c.OnChunk(ch)
	}
}

func (c Callbacks) stopped() {
	if c.OnStopped != nil {
		c.OnStopped()
	}
}

func (c Callbacks) error(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func (c Callbacks) advisory(msg string) {
	if c.OnAdvisory != nil {
		c.OnAdvisory(msg)
	}
}
