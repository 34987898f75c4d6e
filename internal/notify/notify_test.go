package notify

import "testing"

func TestForType(t *testing.T) {
	if _, ok := ForType("desktop", true).(Desktop); !ok {
		t.Error("ForType(desktop) did not return Desktop notifier")
	}
	if _, ok := ForType("log", true).(Log); !ok {
		t.Error("ForType(log) did not return Log notifier")
	}
	if _, ok := ForType("none", true).(Nop); !ok {
		t.Error("ForType(none) did not return Nop notifier")
	}
	if _, ok := ForType("desktop", false).(Nop); !ok {
		t.Error("ForType with notifications disabled did not return Nop")
	}
	if _, ok := ForType("unknown", true).(Nop); !ok {
		t.Error("ForType(unknown) did not return Nop")
	}
}

func TestNopAndLogDoNotPanic(t *testing.T) {
	for _, n := range []Notifier{Nop{}, Log{}} {
		n.RecordingChanged(true)
		n.RecordingChanged(false)
		n.Transcribed(42)
		n.Advisory("microphone may be off")
		n.Error("boom")
	}
}
