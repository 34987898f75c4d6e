package capture

import (
	"testing"
)

func TestSimpleValidateConfig(t *testing.T) {
	src := NewSimpleSource(SimpleConfig{SampleRate: 0, Channels: 1})
	if err := src.Validate(); err == nil {
		t.Error("Validate accepted zero sample rate")
	}

	src = NewSimpleSource(SimpleConfig{SampleRate: 16000, Channels: 0})
	if err := src.Validate(); err == nil {
		t.Error("Validate accepted zero channels")
	}
}

func TestSimpleStopWithoutStart(t *testing.T) {
	src := NewSimpleSource(DefaultSimpleConfig())
	if err := src.Stop(); err == nil {
		t.Error("Stop succeeded with no recording in flight")
	}
	if src.Recording() {
		t.Error("Recording() = true before Start")
	}
}

func TestSimpleBuildArgs(t *testing.T) {
	src := NewSimpleSource(SimpleConfig{SampleRate: 16000, Channels: 1})
	args := src.buildArgs("/tmp/out.wav")
	want := []string{"--rate", "16000", "--channels", "1", "/tmp/out.wav"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}

	src = NewSimpleSource(SimpleConfig{SampleRate: 16000, Channels: 1, Device: "mic2"})
	args = src.buildArgs("/tmp/out.wav")
	found := false
	for i, a := range args {
		if a == "--target" && i+1 < len(args) && args[i+1] == "mic2" {
			found = true
		}
	}
	if !found {
		t.Errorf("args %v missing --target mic2", args)
	}
}
