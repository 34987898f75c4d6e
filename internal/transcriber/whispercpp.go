package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dmgerman/whisperdict/internal/language"
)

// WhisperCppProvider transcribes chunk files locally via whisper-cli.
type WhisperCppProvider struct {
	modelPath string
	threads   int
}

func NewWhisperCppProvider(modelPath string, threads int) *WhisperCppProvider {
	return &WhisperCppProvider{modelPath: modelPath, threads: threads}
}

func (p *WhisperCppProvider) Name() string { return "whisper-cpp" }

func (p *WhisperCppProvider) SupportsLanguage(lang string) bool {
	return lang == language.Auto || language.Valid(lang)
}

func (p *WhisperCppProvider) Validate() error {
	if p.modelPath == "" {
		return fmt.Errorf("whisper-cpp: model path not configured")
	}
	if _, err := os.Stat(p.modelPath); err != nil {
		return fmt.Errorf("whisper-cpp: model file: %w", err)
	}
	if _, err := exec.LookPath("whisper-cli"); err != nil {
		return fmt.Errorf("whisper-cpp: whisper-cli not found: install whisper.cpp first")
	}
	return nil
}

func (p *WhisperCppProvider) Transcribe(ctx context.Context, audioPath, lang string, fn Result) error {
	if err := checkAudioFile(audioPath); err != nil {
		return fmt.Errorf("whisper-cpp: %w", err)
	}
	whisperPath, err := exec.LookPath("whisper-cli")
	if err != nil {
		return fmt.Errorf("whisper-cpp: whisper-cli not found: install whisper.cpp first")
	}

	go func() {
		if lang == language.Auto || lang == "" {
			lang = "auto"
		}
		args := []string{
			"-m", p.modelPath,
			"-l", lang,
			"-nt", // no timestamps
			"-np", // no progress
			"-f", audioPath,
		}
		if p.threads > 0 {
			args = append(args, "-t", fmt.Sprintf("%d", p.threads))
		}

		cmd := exec.CommandContext(ctx, whisperPath, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		start := time.Now()
		runErr := cmd.Run()
		if runErr != nil {
			if ctx.Err() != nil {
				fn("", ctx.Err())
				return
			}
			log.Printf("whisper-cpp: command failed after %v: %v\nstderr: %s",
				time.Since(start), runErr, stderr.String())
			fn("", fmt.Errorf("whisper-cpp: whisper-cli failed: %w", runErr))
			return
		}

		text := strings.TrimSpace(stdout.String())
		log.Printf("whisper-cpp: transcribed %s in %v (%d chars)", audioPath, time.Since(start), len(text))
		fn(text, nil)
	}()
	return nil
}
