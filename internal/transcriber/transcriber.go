package transcriber

import (
	"context"
	"fmt"
	"os"
)

// Result delivers the outcome of one transcription job. Exactly one of
// text or err is meaningful, and a Result fires exactly once per accepted
// job.
type Result func(text string, err error)

// Provider converts one chunk's audio file into text. Transcribe returns
// nil when the job was accepted, in which case fn will be invoked exactly
// once from another goroutine; a non-nil return means the job was
// rejected synchronously and fn will never run.
type Provider interface {
	Transcribe(ctx context.Context, audioPath, language string, fn Result) error
	Validate() error
	Name() string
	SupportsLanguage(language string) bool
}

// checkAudioFile is the shared synchronous-rejection path: a job whose
// input does not exist is refused before any goroutine is spawned.
func checkAudioFile(path string) error {
	if path == "" {
		return fmt.Errorf("empty audio path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file unavailable: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("audio file %s is empty", path)
	}
	return nil
}
