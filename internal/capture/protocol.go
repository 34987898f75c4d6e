package capture

import (
	"encoding/json"
	"fmt"
)

// Wire protocol between StreamingSource and the chunker worker:
// newline-delimited JSON, one object per line, both directions.

const (
	cmdStartRecording = "start_recording"
	cmdStopRecording  = "stop_recording"
	cmdShutdown       = "shutdown"
)

const (
	evServerReady      = "server_ready"
	evRecordingStarted = "recording_started"
	evChunkReady       = "chunk_ready"
	evCompleteFile     = "complete_file"
	evSilenceWarning   = "silence_warning"
	evRecordingStopped = "recording_stopped"
	evError            = "error"
	evDebug            = "debug"
)

type workerCommand struct {
	Command string `json:"command"`
}

// workerEvent is the union of all inbound event shapes; Type selects
// which of the remaining fields are meaningful.
type workerEvent struct {
	Type      string `json:"type"`
	ChunkNum  int    `json:"chunk_num,omitempty"`
	AudioFile string `json:"audio_file,omitempty"`
	IsFinal   bool   `json:"is_final,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

func decodeEvent(line []byte) (workerEvent, error) {
	var ev workerEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return workerEvent{}, fmt.Errorf("malformed worker event %q: %w", line, err)
	}
	if ev.Type == "" {
		return workerEvent{}, fmt.Errorf("worker event missing type: %q", line)
	}
	return ev, nil
}

func encodeCommand(name string) ([]byte, error) {
	b, err := json.Marshal(workerCommand{Command: name})
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
