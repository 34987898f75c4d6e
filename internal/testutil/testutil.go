package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmgerman/whisperdict/internal/capture"
	"github.com/dmgerman/whisperdict/internal/config"
	"github.com/dmgerman/whisperdict/internal/transcriber"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	return &config.Config{
		Capture: config.CaptureConfig{
			Mode:           "streaming",
			FilenamePrefix: "whisperdict",
			SampleRate:     16000,
			Channels:       1,
			Worker: config.WorkerConfig{
				Command:          []string{"python3", "whisper_stream.py"},
				Host:             "127.0.0.1",
				Port:             8765,
				SilenceThreshold: 5.0,
				MinChunkDuration: 10.0,
				MaxChunkDuration: 120.0,
				StartupTimeout:   15 * time.Second,
				StopTimeout:      10 * time.Second,
			},
		},
		Transcription: config.TranscriptionConfig{
			Provider: "openai",
			APIKey:   "test-api-key",
			Language: "auto",
			Model:    "whisper-1",
		},
		Delivery: config.DeliveryConfig{
			Mode:             "clipboard",
			ClipboardTimeout: 3 * time.Second,
		},
		Notifications: config.NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
	}
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// FakeSource is a capture.Source driven entirely by the test: chunks,
// stop acknowledgments, errors and advisories are emitted on demand.
type FakeSource struct {
	mu        sync.Mutex
	cb        capture.Callbacks
	recording bool

	StartErr    error
	StopErr     error
	ValidateErr error

	Starts int
	Stops  int
}

func (f *FakeSource) Start(_ context.Context, cb capture.Callbacks) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.cb = cb
	f.recording = true
	f.Starts++
	return nil
}

func (f *FakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StopErr != nil {
		return f.StopErr
	}
	f.recording = false
	f.Stops++
	return nil
}

func (f *FakeSource) Validate() error { return f.ValidateErr }
func (f *FakeSource) Close() error    { return nil }

func (f *FakeSource) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

func (f *FakeSource) callbacks() capture.Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

// EmitChunk delivers a chunk with a fabricated path.
func (f *FakeSource) EmitChunk(seq int, final bool) {
	cb := f.callbacks()
	if cb.OnChunk != nil {
		cb.OnChunk(capture.Chunk{
			Path:  fmt.Sprintf("/nonexistent/chunk_%03d.wav", seq),
			Seq:   seq,
			Final: final,
		})
	}
}

func (f *FakeSource) EmitStopped() {
	if cb := f.callbacks(); cb.OnStopped != nil {
		cb.OnStopped()
	}
}

func (f *FakeSource) EmitError(err error) {
	if cb := f.callbacks(); cb.OnError != nil {
		cb.OnError(err)
	}
}

func (f *FakeSource) EmitAdvisory(msg string) {
	if cb := f.callbacks(); cb.OnAdvisory != nil {
		cb.OnAdvisory(msg)
	}
}

// FakeProvider accepts jobs and holds them until the test settles them,
// so completion order is fully controlled.
type FakeProvider struct {
	mu   sync.Mutex
	jobs map[int]transcriber.Result // keyed by dispatch order, 1-based

	next      int
	RejectAll error // when set, every Transcribe is rejected synchronously
}

func (f *FakeProvider) Name() string                 { return "fake" }
func (f *FakeProvider) Validate() error              { return nil }
func (f *FakeProvider) SupportsLanguage(string) bool { return true }

func (f *FakeProvider) Transcribe(_ context.Context, _, _ string, fn transcriber.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RejectAll != nil {
		return f.RejectAll
	}
	if f.jobs == nil {
		f.jobs = make(map[int]transcriber.Result)
	}
	f.next++
	f.jobs[f.next] = fn
	return nil
}

// JobCount returns how many jobs have been accepted so far.
func (f *FakeProvider) JobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next
}

// Succeed settles the n-th accepted job (1-based) with text.
func (f *FakeProvider) Succeed(n int, text string) {
	f.settle(n)(text, nil)
}

// Fail settles the n-th accepted job (1-based) with an error.
func (f *FakeProvider) Fail(n int, err error) {
	f.settle(n)("", err)
}

func (f *FakeProvider) settle(n int) transcriber.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.jobs[n]
	if !ok {
		panic(fmt.Sprintf("testutil: job %d not dispatched or already settled", n))
	}
	delete(f.jobs, n)
	return fn
}
