package transcriber

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/dmgerman/whisperdict/internal/language"
)

// OpenAIProvider transcribes chunk files through the OpenAI audio API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) SupportsLanguage(lang string) bool {
	return lang == language.Auto || language.Valid(lang)
}

func (p *OpenAIProvider) Validate() error {
	if p.client == nil {
		return fmt.Errorf("openai: client not configured")
	}
	return nil
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, audioPath, lang string, fn Result) error {
	if err := checkAudioFile(audioPath); err != nil {
		return fmt.Errorf("openai: %w", err)
	}

	go func() {
		req := openai.AudioRequest{
			Model:    p.model,
			FilePath: audioPath,
		}
		if lang != language.Auto {
			req.Language = lang
		}

		start := time.Now()
		resp, err := p.client.CreateTranscription(ctx, req)
		if err != nil {
			log.Printf("openai: transcription of %s failed after %v: %v", audioPath, time.Since(start), err)
			fn("", fmt.Errorf("openai: %w", err))
			return
		}

		text := strings.TrimSpace(resp.Text)
		log.Printf("openai: transcribed %s in %v (%d chars)", audioPath, time.Since(start), len(text))
		fn(text, nil)
	}()
	return nil
}
