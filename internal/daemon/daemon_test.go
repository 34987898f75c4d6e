package daemon

import (
	"bufio"
	"context"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/dmgerman/whisperdict/internal/bus"
	"github.com/dmgerman/whisperdict/internal/capture"
	"github.com/dmgerman/whisperdict/internal/config"
	"github.com/dmgerman/whisperdict/internal/delivery"
	"github.com/dmgerman/whisperdict/internal/dictation"
	"github.com/dmgerman/whisperdict/internal/notify"
	"github.com/dmgerman/whisperdict/internal/testutil"
	"github.com/dmgerman/whisperdict/internal/transcriber"
)

const testConfigTOML = `
[capture]
  mode = "simple"
  filename_prefix = "test"
  sample_rate = 16000
  channels = 1

[transcription]
  provider = "openai"
  api_key = "test-key"
  language = "auto"
  model = "whisper-1"

[delivery]
  mode = "log"
  clipboard_timeout = "3s"

[notifications]
  enabled = false
  type = "none"
`

func newTestDaemon(t *testing.T) (*Daemon, *testutil.FakeSource, *testutil.FakeProvider) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := config.GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(testConfigTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgMgr, err := config.NewManager()
	if err != nil {
		t.Fatalf("config manager: %v", err)
	}

	src := &testutil.FakeSource{}
	prov := &testutil.FakeProvider{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	d := &Daemon{
		notifier: notify.Nop{},
		cfgMgr:   cfgMgr,
		source:   src,
		ctx:      ctx,
		cancel:   cancel,
	}
	d.manager = dictation.New(dictation.Config{
		Source:   src,
		Provider: prov,
	})
	return d, src, prov
}

func send(t *testing.T, d *Daemon, cmd byte) string {
	t.Helper()
	server, client := net.Pipe()
	go d.handle(server)

	if _, err := client.Write([]byte{cmd, '\n'}); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	client.Close()
	return resp
}

func TestHandleStatus(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	resp := send(t, d, bus.CmdStatus)
	if !strings.Contains(resp, "state=idle") || !strings.Contains(resp, "pending=0") {
		t.Errorf("status response = %q", resp)
	}
}

func TestHandleStartStopCycle(t *testing.T) {
	d, src, prov := newTestDaemon(t)

	if resp := send(t, d, bus.CmdStart); !strings.HasPrefix(resp, "OK") {
		t.Fatalf("start response = %q", resp)
	}
	if got := d.manager.State(); got != dictation.Recording {
		t.Fatalf("state = %s after start", got)
	}

	if resp := send(t, d, bus.CmdStop); !strings.HasPrefix(resp, "OK") {
		t.Fatalf("stop response = %q", resp)
	}
	if got := d.manager.State(); got != dictation.Transcribing {
		t.Fatalf("state = %s after stop", got)
	}

	src.EmitChunk(1, true)
	src.EmitStopped()
	prov.Succeed(1, "dictated text")

	if got := d.manager.State(); got != dictation.Idle {
		t.Errorf("state = %s after completion", got)
	}
}

func TestHandleStopWhileIdle(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	if resp := send(t, d, bus.CmdStop); !strings.HasPrefix(resp, "ERR") {
		t.Errorf("stop-while-idle response = %q", resp)
	}
}

func TestHandleToggle(t *testing.T) {
	d, src, _ := newTestDaemon(t)

	if resp := send(t, d, bus.CmdToggle); !strings.HasPrefix(resp, "OK") {
		t.Fatalf("first toggle = %q", resp)
	}
	if got := d.manager.State(); got != dictation.Recording {
		t.Fatalf("state = %s after first toggle", got)
	}

	if resp := send(t, d, bus.CmdToggle); !strings.HasPrefix(resp, "OK") {
		t.Fatalf("second toggle = %q", resp)
	}
	if got := d.manager.State(); got != dictation.Transcribing {
		t.Fatalf("state = %s after second toggle", got)
	}

	// A toggle while transcribing is refused.
	if resp := send(t, d, bus.CmdToggle); !strings.HasPrefix(resp, "ERR") {
		t.Errorf("toggle while transcribing = %q", resp)
	}

	src.EmitStopped()
	if got := d.manager.State(); got != dictation.Idle {
		t.Errorf("state = %s after completion", got)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	if resp := send(t, d, 'z'); !strings.HasPrefix(resp, "ERR") {
		t.Errorf("unknown command response = %q", resp)
	}
}

func TestHandleVersion(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	if resp := send(t, d, bus.CmdVer); !strings.Contains(resp, bus.ProtoVer) {
		t.Errorf("version response = %q", resp)
	}
}

func TestBuildProvider(t *testing.T) {
	cfg := testutil.TestConfig()

	p, err := buildProvider(cfg)
	if err != nil {
		t.Fatalf("buildProvider(openai): %v", err)
	}
	if _, ok := p.(*transcriber.OpenAIProvider); !ok {
		t.Errorf("buildProvider(openai) = %T", p)
	}

	cfg.Transcription.Provider = "whisper-cpp"
	cfg.Transcription.ModelPath = "/tmp/model.bin"
	p, err = buildProvider(cfg)
	if err != nil {
		t.Fatalf("buildProvider(whisper-cpp): %v", err)
	}
	if _, ok := p.(*transcriber.WhisperCppProvider); !ok {
		t.Errorf("buildProvider(whisper-cpp) = %T", p)
	}

	cfg.Transcription.Provider = "carrier-pigeon"
	if _, err := buildProvider(cfg); err == nil {
		t.Error("buildProvider accepted unknown provider")
	}
}

func TestBuildSource(t *testing.T) {
	cfg := testutil.TestConfig()

	if _, ok := buildSource(cfg).(*capture.StreamingSource); !ok {
		t.Errorf("buildSource(streaming) = %T", buildSource(cfg))
	}

	cfg.Capture.Mode = "simple"
	if _, ok := buildSource(cfg).(*capture.SimpleSource); !ok {
		t.Errorf("buildSource(simple) = %T", buildSource(cfg))
	}
}

func TestBuildSink(t *testing.T) {
	cfg := testutil.TestConfig()

	if _, ok := buildSink(cfg).(delivery.Clipboard); !ok {
		t.Errorf("buildSink(clipboard) = %T", buildSink(cfg))
	}

	cfg.Delivery.Mode = "log"
	if _, ok := buildSink(cfg).(delivery.LogSink); !ok {
		t.Errorf("buildSink(log) = %T", buildSink(cfg))
	}
}
