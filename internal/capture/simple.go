package capture

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// SimpleConfig configures single-file recording via pw-record.
type SimpleConfig struct {
	SampleRate int
	Channels   int
	Device     string
	OutputDir  string
}

func DefaultSimpleConfig() SimpleConfig {
	return SimpleConfig{
		SampleRate: 16000,
		Channels:   1,
	}
}

// SimpleSource records the whole session into one WAV file and emits it
// as a single final chunk when stopped. It exists as the trivial Source
// implementation; the interesting one is StreamingSource.
type SimpleSource struct {
	cfg       SimpleConfig
	recording atomic.Bool

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	path   string
	cb     Callbacks
	wg     sync.WaitGroup
}

func NewSimpleSource(cfg SimpleConfig) *SimpleSource {
	return &SimpleSource{cfg: cfg}
}

func (s *SimpleSource) Recording() bool {
	return s.recording.Load()
}

func (s *SimpleSource) Validate() error {
	if s.cfg.SampleRate <= 0 {
		return fmt.Errorf("simple: invalid sample rate %d", s.cfg.SampleRate)
	}
	if s.cfg.Channels <= 0 {
		return fmt.Errorf("simple: invalid channel count %d", s.cfg.Channels)
	}
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("simple: pw-record not found: %w (install pipewire-tools)", err)
	}
	return nil
}

func (s *SimpleSource) Start(ctx context.Context, cb Callbacks) error {
	if s.recording.Load() {
		return fmt.Errorf("simple: already recording")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	dir := s.cfg.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("whisperdict-%d.wav", time.Now().UnixNano()))

	recCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(recCtx, "pw-record", s.buildArgs(path)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("simple: start pw-record: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.cancel = cancel
	s.path = path
	s.cb = cb
	s.mu.Unlock()
	s.recording.Store(true)

	s.wg.Add(1)
	go s.waitForExit(cmd, path, cb)
	return nil
}

func (s *SimpleSource) Stop() error {
	if !s.recording.Load() {
		return fmt.Errorf("simple: not recording")
	}

	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	// Interrupt lets pw-record flush the WAV header before exiting.
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			log.Printf("simple: interrupt failed, killing: %v", err)
			s.mu.Lock()
			cancel := s.cancel
			s.mu.Unlock()
			if cancel != nil {
				cancel()
			}
		}
	}
	return nil
}

func (s *SimpleSource) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *SimpleSource) waitForExit(cmd *exec.Cmd, path string, cb Callbacks) {
	defer s.wg.Done()

	err := cmd.Wait()
	s.recording.Store(false)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.cmd = nil
	s.mu.Unlock()

	// pw-record exits non-zero on SIGINT; only a missing or empty file
	// counts as a failure.
	info, statErr := os.Stat(path)
	if statErr != nil || info.Size() == 0 {
		if err == nil {
			err = fmt.Errorf("no audio captured")
		}
		cb.error(fmt.Errorf("simple: recording failed: %w", err))
		return
	}

	cb.chunk(Chunk{Path: path, Seq: 1, Final: true})
	cb.stopped()
}

func (s *SimpleSource) buildArgs(path string) []string {
	args := []string{
		"--rate", strconv.Itoa(s.cfg.SampleRate),
		"--channels", strconv.Itoa(s.cfg.Channels),
	}
	if s.cfg.Device != "" {
		args = append(args, "--target", s.cfg.Device)
	}
	return append(args, path)
}
