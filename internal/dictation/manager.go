package dictation

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/dmgerman/whisperdict/internal/capture"
	"github.com/dmgerman/whisperdict/internal/language"
	"github.com/dmgerman/whisperdict/internal/transcriber"
)

// Config wires a Manager to its collaborators. Deliver receives the
// assembled document when a session completes; Advise receives non-fatal
// capture advisories. Both are optional.
type Config struct {
	Source     capture.Source
	Provider   transcriber.Provider
	Deliver    func(text string)
	Advise     func(msg string)
	KeepChunks bool
}

// Manager is the single source of truth for dictation session state. It
// owns one capture source and one transcription provider, dispatches each
// incoming chunk to an asynchronous transcription job, and finalizes the
// session once the capture source has confirmed it stopped and every
// dispatched job has settled. Public methods validate against the state
// machine and return immediately; outcomes arrive via the collaborators'
// callbacks, all of which are serialized through m.mu.
type Manager struct {
	cfg Config

	mu            sync.Mutex
	state         State
	session       uint64 // bumped per session; stale callbacks are dropped
	lang          string
	results       map[int]string
	maxSeq        int
	pending       int
	recordingDone bool
	lastErr       error
}

func New(cfg Config) *Manager {
	return &Manager{
		cfg:     cfg,
		state:   Idle,
		results: make(map[int]string),
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the number of transcription jobs dispatched but not yet
// settled.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Err returns the error that drove the machine into the error state, if
// any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Start begins a new recording session. It fails when a session is
// already in flight; a previous session's error state is recovered
// automatically.
func (m *Manager) Start(ctx context.Context, lang string) error {
	if lang == "" {
		return fmt.Errorf("dictation: language required (use %q for auto-detect)", language.Auto)
	}
	if lang != language.Auto && !language.Valid(lang) {
		return fmt.Errorf("dictation: unsupported language %q", lang)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Failed {
		log.Printf("manager: recovering from previous error: %v", m.lastErr)
		m.resetLocked()
	}
	if m.state != Idle {
		return &StateError{Op: "start recording", State: m.state}
	}
	if !m.cfg.Provider.SupportsLanguage(lang) {
		return fmt.Errorf("dictation: provider %s does not support language %q", m.cfg.Provider.Name(), lang)
	}

	m.session++
	sess := m.session
	m.lang = lang
	m.setStateLocked(Recording)

	cb := capture.Callbacks{
		OnChunk:    func(c capture.Chunk) { m.onChunk(ctx, sess, c) },
		OnStopped:  func() { m.onCaptureStopped(sess) },
		OnError:    func(err error) { m.onCaptureError(sess, err) },
		OnAdvisory: func(msg string) { m.onAdvisory(sess, msg) },
	}
	if err := m.cfg.Source.Start(ctx, cb); err != nil {
		err = fmt.Errorf("dictation: capture start: %w", err)
		m.failLocked(err)
		return err
	}

	log.Printf("manager: recording started (language %s)", lang)
	return nil
}

// Stop requests the end of the active recording. The session is not
// finished when Stop returns: chunks may still be in flight, and the
// completion predicate is evaluated only as their jobs settle and the
// capture source acknowledges the stop.
func (m *Manager) Stop() error {
	m.mu.Lock()

	if m.state != Recording {
		defer m.mu.Unlock()
		return &StateError{Op: "stop recording", State: m.state}
	}
	m.setStateLocked(Transcribing)

	if m.recordingDone {
		// The source already confirmed it stopped on its own (e.g. the
		// recorder process exited); no further capture events will come.
		done, text := m.completeIfReadyLocked()
		m.mu.Unlock()
		if done {
			m.deliver(text)
		}
		return nil
	}

	if err := m.cfg.Source.Stop(); err != nil {
		err = fmt.Errorf("dictation: capture stop: %w", err)
		m.failLocked(err)
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	log.Printf("manager: stop requested, waiting for outstanding chunks")
	return nil
}

// Reset forces the machine out of the error state.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Failed {
		return &StateError{Op: "reset", State: m.state}
	}
	m.resetLocked()
	return nil
}

func (m *Manager) onChunk(ctx context.Context, sess uint64, c capture.Chunk) {
	m.mu.Lock()
	if sess != m.session || (m.state != Recording && m.state != Transcribing) {
		m.mu.Unlock()
		log.Printf("manager: dropping chunk %d from stale session", c.Seq)
		return
	}
	if c.Seq > m.maxSeq {
		m.maxSeq = c.Seq
	}
	m.pending++
	lang := m.lang
	m.mu.Unlock()

	log.Printf("manager: chunk %d received (final=%v), dispatching", c.Seq, c.Final)
	err := m.cfg.Provider.Transcribe(ctx, c.Path, lang, func(text string, err error) {
		m.onSettled(sess, c, text, err)
	})
	if err != nil {
		// Rejected synchronously; no callback will come, settle now.
		m.onSettled(sess, c, "", err)
	}
}

func (m *Manager) onSettled(sess uint64, c capture.Chunk, text string, err error) {
	if !m.cfg.KeepChunks {
		if rmErr := os.Remove(c.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("manager: cleanup of %s failed: %v", c.Path, rmErr)
		}
	}

	m.mu.Lock()
	if sess != m.session {
		m.mu.Unlock()
		return
	}
	if err != nil {
		log.Printf("manager: chunk %d failed: %v", c.Seq, err)
		m.results[c.Seq] = errorPlaceholder(c.Seq, err.Error())
	} else {
		m.results[c.Seq] = text
	}
	m.pending--
	done, out := m.completeIfReadyLocked()
	m.mu.Unlock()

	if done {
		m.deliver(out)
	}
}

func (m *Manager) onCaptureStopped(sess uint64) {
	m.mu.Lock()
	if sess != m.session {
		m.mu.Unlock()
		return
	}
	m.recordingDone = true
	done, out := m.completeIfReadyLocked()
	m.mu.Unlock()

	if done {
		m.deliver(out)
	}
}

func (m *Manager) onCaptureError(sess uint64, err error) {
	m.mu.Lock()
	if sess != m.session || (m.state != Recording && m.state != Transcribing) {
		m.mu.Unlock()
		log.Printf("manager: capture error after session end: %v", err)
		return
	}
	if m.cfg.Source.Recording() {
		if stopErr := m.cfg.Source.Stop(); stopErr != nil {
			log.Printf("manager: stopping capture after error: %v", stopErr)
		}
	}
	m.failLocked(fmt.Errorf("dictation: capture: %w", err))
	m.mu.Unlock()
}

func (m *Manager) onAdvisory(sess uint64, msg string) {
	m.mu.Lock()
	stale := sess != m.session
	m.mu.Unlock()
	if stale {
		return
	}
	log.Printf("manager: capture advisory: %s", msg)
	if m.cfg.Advise != nil {
		m.cfg.Advise(msg)
	}
}

// completeIfReadyLocked evaluates the completion predicate: the capture
// source confirmed it stopped AND every dispatched job settled. Called
// from every event handler that can change either operand, and nowhere
// else. On completion the session is assembled and the machine reset to
// Idle; the assembled text is returned for delivery outside the lock.
func (m *Manager) completeIfReadyLocked() (bool, string) {
	if m.state != Transcribing || !m.recordingDone || m.pending != 0 {
		return false, ""
	}
	text := Assemble(m.results, m.maxSeq)
	log.Printf("manager: session complete (%d chunks, %d chars)", m.maxSeq, len(text))
	m.resetLocked()
	return true, text
}

func (m *Manager) deliver(text string) {
	if m.cfg.Deliver != nil {
		m.cfg.Deliver(text)
	}
}

func (m *Manager) failLocked(err error) {
	log.Printf("manager: session failed: %v", err)
	m.lastErr = err
	m.setStateLocked(Failed)
}

// resetLocked is the only place session fields are cleared; it runs on
// every entry to Idle. Bumping the session counter here makes any late
// callback from the finished session a no-op.
func (m *Manager) resetLocked() {
	m.session++
	m.setStateLocked(Idle)
	m.results = make(map[int]string)
	m.maxSeq = 0
	m.pending = 0
	m.recordingDone = false
	m.lang = ""
}

func (m *Manager) setStateLocked(to State) {
	if m.state == to {
		return
	}
	if !canTransition(m.state, to) {
		// Internal transitions are driven by the handlers above and are
		// legal by construction; reaching this is a bug.
		log.Printf("manager: illegal transition %s -> %s", m.state, to)
		return
	}
	m.state = to
}
