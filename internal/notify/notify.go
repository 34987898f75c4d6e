package notify

import (
	"fmt"
	"log"
	"os/exec"
)

// Notifier surfaces session events to the operator.
type Notifier interface {
	RecordingChanged(on bool)
	Transcribed(chars int)
	Advisory(msg string)
	Error(msg string)
}

// Desktop sends notifications via notify-send.
type Desktop struct{}

func (Desktop) RecordingChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	send(fmt.Sprintf("Whisperdict: %s Recording", state), false)
}

func (Desktop) Transcribed(chars int) {
	send(fmt.Sprintf("Whisperdict: transcription ready (%d characters)", chars), false)
}

func (Desktop) Advisory(msg string) {
	send(fmt.Sprintf("Whisperdict: %s", msg), false)
}

func (Desktop) Error(msg string) {
	send(msg, true)
}

func send(msg string, critical bool) {
	args := []string{"-a", "Whisperdict"}
	if critical {
		args = append(args, "-u", "critical")
	}
	args = append(args, msg)
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

// Log writes notifications to the daemon log only.
type Log struct{}

func (Log) RecordingChanged(on bool) { log.Printf("notify: recording=%v", on) }
func (Log) Transcribed(chars int)    { log.Printf("notify: transcribed %d characters", chars) }
func (Log) Advisory(msg string)      { log.Printf("notify: advisory: %s", msg) }
func (Log) Error(msg string)         { log.Printf("notify: error: %s", msg) }

// Nop is a Notifier that does absolutely nothing. Useful in unit tests
// or headless builds.
type Nop struct{}

func (Nop) RecordingChanged(on bool) {}
func (Nop) Transcribed(chars int)    {}
func (Nop) Advisory(msg string)      {}
func (Nop) Error(msg string)         {}

// ForType returns the notifier matching a configured type name.
func ForType(kind string, enabled bool) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}
