package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// StreamingConfig configures the chunker worker process and the socket
// connection to it. Durations for the VAD tuning knobs are in seconds,
// matching the worker's command line.
type StreamingConfig struct {
	Command          []string // worker argv; first element must be the executable
	Host             string
	Port             int
	OutputDir        string
	FilenamePrefix   string
	SilenceThreshold float64
	MinChunkDuration float64
	MaxChunkDuration float64
	StartupTimeout   time.Duration
	StopTimeout      time.Duration
}

func (c *StreamingConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StreamingSource records through a persistent external worker that
// detects speech/silence boundaries and writes one WAV file per chunk.
// The worker process and its connection are reused across sessions and
// torn down only by Close.
type StreamingSource struct {
	cfg StreamingConfig

	mu        sync.Mutex
	cmd       *exec.Cmd
	conn      net.Conn
	gen       int // bumped per connection; read loops from dead conns go quiet
	recording bool
	stopReq   bool
	completed bool
	lastSeq   int
	stopTimer *time.Timer
	cb        Callbacks
}

func NewStreamingSource(cfg StreamingConfig) *StreamingSource {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 15 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	return &StreamingSource{cfg: cfg}
}

func (s *StreamingSource) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Validate checks that the worker executable exists and that its own
// dependencies are importable, via the worker's --check-deps mode.
func (s *StreamingSource) Validate() error {
	if len(s.cfg.Command) == 0 {
		return fmt.Errorf("streaming: worker command not configured")
	}
	if _, err := exec.LookPath(s.cfg.Command[0]); err != nil {
		return fmt.Errorf("streaming: worker executable not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := append(append([]string{}, s.cfg.Command[1:]...), "--check-deps")
	out, err := exec.CommandContext(ctx, s.cfg.Command[0], args...).Output()
	if err != nil && len(out) == 0 {
		return fmt.Errorf("streaming: dependency check failed: %w", err)
	}

	var status struct {
		Status  string   `json:"status"`
		Missing []string `json:"missing"`
	}
	if jerr := json.Unmarshal(out, &status); jerr != nil {
		return fmt.Errorf("streaming: unreadable dependency check output %q: %w", out, jerr)
	}
	if status.Status != "ok" {
		return fmt.Errorf("streaming: worker dependencies missing: %v", status.Missing)
	}
	return nil
}

// Start begins a recording session. The worker is spawned and dialed on
// first use; later sessions reuse the existing connection.
func (s *StreamingSource) Start(ctx context.Context, cb Callbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return fmt.Errorf("streaming: already recording")
	}

	if err := s.ensureConnectedLocked(ctx); err != nil {
		return err
	}

	if err := s.sendLocked(cmdStartRecording); err != nil {
		s.dropConnLocked()
		return fmt.Errorf("streaming: start command: %w", err)
	}

	s.cb = cb
	s.recording = true
	s.stopReq = false
	s.completed = false
	s.lastSeq = 0
	return nil
}

// Stop asks the worker to finalize the session. Completion is reported
// later through OnStopped, once the final chunk (or the stop
// acknowledgment) arrives; a fallback timer bounds the wait if the worker
// has wedged.
func (s *StreamingSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return fmt.Errorf("streaming: not recording")
	}
	if s.stopReq {
		return fmt.Errorf("streaming: stop already requested")
	}

	if err := s.sendLocked(cmdStopRecording); err != nil {
		return fmt.Errorf("streaming: stop command: %w", err)
	}
	s.stopReq = true

	s.stopTimer = time.AfterFunc(s.cfg.StopTimeout, func() {
		if done := s.forceComplete(); done != nil {
			log.Printf("streaming: no completion signal within %v, forcing stop", s.cfg.StopTimeout)
			done()
		}
	})
	return nil
}

// Close shuts the worker down. Best effort: the shutdown command may fail
// if the worker already died.
func (s *StreamingSource) Close() error {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.sendLocked(cmdShutdown)
	}
	s.dropConnLocked()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	return nil
}

func (s *StreamingSource) ensureConnectedLocked(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	// A worker from a previous run may still be listening.
	conn, err := net.DialTimeout("tcp", s.cfg.addr(), 250*time.Millisecond)
	if err != nil {
		if err := s.spawnWorkerLocked(ctx); err != nil {
			return err
		}
		conn, err = s.dialWithBackoff(ctx)
		if err != nil {
			return err
		}
	}

	s.conn = conn
	s.gen++
	go s.readLoop(conn, s.gen)
	return nil
}

func (s *StreamingSource) spawnWorkerLocked(ctx context.Context) error {
	if len(s.cfg.Command) == 0 {
		return fmt.Errorf("streaming: worker not reachable at %s and no command configured", s.cfg.addr())
	}

	args := append([]string{}, s.cfg.Command[1:]...)
	args = append(args,
		"--output-dir", s.cfg.OutputDir,
		"--filename-prefix", s.cfg.FilenamePrefix,
		"--port", strconv.Itoa(s.cfg.Port),
		"--silence-threshold", strconv.FormatFloat(s.cfg.SilenceThreshold, 'f', -1, 64),
		"--min-chunk-duration", strconv.FormatFloat(s.cfg.MinChunkDuration, 'f', -1, 64),
		"--max-chunk-duration", strconv.FormatFloat(s.cfg.MaxChunkDuration, 'f', -1, 64),
	)

	cmd := exec.Command(s.cfg.Command[0], args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("streaming: worker stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("streaming: spawn worker: %w", err)
	}
	log.Printf("streaming: spawned worker pid=%d", cmd.Process.Pid)

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("streaming: worker stderr: %s", scanner.Text())
		}
	}()
	go func() {
		// Reap the worker whenever it exits.
		err := cmd.Wait()
		log.Printf("streaming: worker exited: %v", err)
	}()

	s.cmd = cmd
	return nil
}

// dialWithBackoff retries the connection with exponential backoff until
// the startup timeout elapses.
func (s *StreamingSource) dialWithBackoff(ctx context.Context) (net.Conn, error) {
	deadline := time.Now().Add(s.cfg.StartupTimeout)
	delay := 100 * time.Millisecond

	for {
		conn, err := net.DialTimeout("tcp", s.cfg.addr(), delay)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("streaming: worker not reachable at %s within %v: %w",
				s.cfg.addr(), s.cfg.StartupTimeout, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 2*time.Second {
			delay *= 2
		}
	}
}

func (s *StreamingSource) sendLocked(command string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	b, err := encodeCommand(command)
	if err != nil {
		return err
	}
	_, err = s.conn.Write(b)
	return err
}

func (s *StreamingSource) dropConnLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.gen++
}

func (s *StreamingSource) readLoop(conn net.Conn, gen int) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := decodeEvent(line)
		if err != nil {
			log.Printf("streaming: %v", err)
			continue
		}
		if !s.handleEvent(gen, ev) {
			return
		}
	}

	s.connLost(gen, scanner.Err())
}

// handleEvent dispatches one inbound event. Returns false when this read
// loop belongs to a stale connection and should exit.
func (s *StreamingSource) handleEvent(gen int, ev workerEvent) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	cb := s.cb

	switch ev.Type {
	case evServerReady, evRecordingStarted:
		s.mu.Unlock()
		log.Printf("streaming: worker event %s", ev.Type)

	case evChunkReady:
		if !s.recording {
			s.mu.Unlock()
			log.Printf("streaming: dropping chunk %d outside session", ev.ChunkNum)
			return true
		}
		if ev.ChunkNum <= s.lastSeq {
			s.mu.Unlock()
			log.Printf("streaming: dropping out-of-order chunk %d (last %d)", ev.ChunkNum, s.lastSeq)
			return true
		}
		s.lastSeq = ev.ChunkNum
		var done func()
		if ev.IsFinal && s.stopReq {
			done = s.completeLocked()
		}
		s.mu.Unlock()

		cb.chunk(Chunk{Path: ev.AudioFile, Seq: ev.ChunkNum, Final: ev.IsFinal})
		if done != nil {
			done()
		}

	case evRecordingStopped:
		var done func()
		if s.stopReq {
			done = s.completeLocked()
		}
		s.mu.Unlock()
		if done != nil {
			done()
		}

	case evSilenceWarning:
		s.mu.Unlock()
		cb.advisory(ev.Message)

	case evError:
		s.recording = false
		s.stopReq = false
		s.clearTimerLocked()
		s.mu.Unlock()
		cb.error(fmt.Errorf("streaming: worker error: %s", ev.Error))

	case evCompleteFile:
		s.mu.Unlock()
		log.Printf("streaming: full recording at %s", ev.FilePath)

	case evDebug:
		s.mu.Unlock()
		log.Printf("streaming: worker debug: %s", ev.Message)

	default:
		s.mu.Unlock()
		log.Printf("streaming: ignoring unknown event type %q", ev.Type)
	}
	return true
}

// completeLocked marks the current stop request satisfied. It returns the
// OnStopped invocation for the caller to run outside the lock, or nil if
// completion already fired for this stop request.
func (s *StreamingSource) completeLocked() func() {
	if s.completed {
		return nil
	}
	s.completed = true
	s.recording = false
	s.clearTimerLocked()
	cb := s.cb
	return func() { cb.stopped() }
}

func (s *StreamingSource) forceComplete() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopReq {
		return nil
	}
	return s.completeLocked()
}

func (s *StreamingSource) clearTimerLocked() {
	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}
}

func (s *StreamingSource) connLost(gen int, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.dropConnLocked()
	active := s.recording && !s.completed
	s.recording = false
	s.stopReq = false
	s.clearTimerLocked()
	cb := s.cb
	s.mu.Unlock()

	if active {
		if err == nil {
			err = fmt.Errorf("connection closed")
		}
		cb.error(fmt.Errorf("streaming: worker connection lost: %w", err))
	} else if err != nil {
		log.Printf("streaming: connection closed: %v", err)
	}
}
