package capture

import (
	"strings"
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		line string
		want workerEvent
	}{
		{
			name: "server ready",
			line: `{"type":"server_ready"}`,
			want: workerEvent{Type: "server_ready"},
		},
		{
			name: "chunk ready",
			line: `{"type":"chunk_ready","chunk_num":3,"audio_file":"/tmp/x_chunk_003.wav","is_final":true}`,
			want: workerEvent{Type: "chunk_ready", ChunkNum: 3, AudioFile: "/tmp/x_chunk_003.wav", IsFinal: true},
		},
		{
			name: "error",
			line: `{"type":"error","error":"device busy"}`,
			want: workerEvent{Type: "error", Error: "device busy"},
		},
		{
			name: "silence warning",
			line: `{"type":"silence_warning","message":"microphone may be off"}`,
			want: workerEvent{Type: "silence_warning", Message: "microphone may be off"},
		},
		{
			name: "complete file",
			line: `{"type":"complete_file","file_path":"/tmp/full.wav"}`,
			want: workerEvent{Type: "complete_file", FilePath: "/tmp/full.wav"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent([]byte(tt.line))
			if err != nil {
				t.Fatalf("decodeEvent: %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeEvent = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := decodeEvent([]byte("not json")); err == nil {
		t.Error("decodeEvent accepted non-JSON input")
	}
	if _, err := decodeEvent([]byte(`{"chunk_num":1}`)); err == nil {
		t.Error("decodeEvent accepted event without type")
	}
}

func TestEncodeCommand(t *testing.T) {
	b, err := encodeCommand(cmdStartRecording)
	if err != nil {
		t.Fatalf("encodeCommand: %v", err)
	}
	line := string(b)
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("command %q not newline-terminated", line)
	}
	if strings.TrimSpace(line) != `{"command":"start_recording"}` {
		t.Errorf("command = %q", line)
	}
}
