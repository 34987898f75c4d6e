package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmgerman/whisperdict/internal/bus"
	"github.com/dmgerman/whisperdict/internal/capture"
	"github.com/dmgerman/whisperdict/internal/config"
	"github.com/dmgerman/whisperdict/internal/delivery"
	"github.com/dmgerman/whisperdict/internal/dictation"
	"github.com/dmgerman/whisperdict/internal/notify"
	"github.com/dmgerman/whisperdict/internal/transcriber"
)

// Daemon exposes one dictation Manager over the control socket.
type Daemon struct {
	notifier notify.Notifier
	cfgMgr   *config.Manager
	source   capture.Source
	manager  *dictation.Manager

	ctx    context.Context
	cancel context.CancelFunc
}

func New() (*Daemon, error) {
	cfgMgr, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg := cfgMgr.GetConfig()

	notifier := notify.ForType(cfg.Notifications.Type, cfg.Notifications.Enabled)
	source := buildSource(cfg)
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	sink := buildSink(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		notifier: notifier,
		cfgMgr:   cfgMgr,
		source:   source,
		ctx:      ctx,
		cancel:   cancel,
	}

	d.manager = dictation.New(dictation.Config{
		Source:   source,
		Provider: provider,
		Deliver: func(text string) {
			if err := sink.Deliver(ctx, text); err != nil {
				log.Printf("daemon: delivery failed: %v", err)
				notifier.Error(fmt.Sprintf("Delivery failed: %v", err))
				return
			}
			notifier.Transcribed(len(text))
		},
		Advise:     notifier.Advisory,
		KeepChunks: cfg.Delivery.KeepChunks,
	})

	if err := source.Validate(); err != nil {
		log.Printf("daemon: capture source not ready: %v", err)
	}
	if err := provider.Validate(); err != nil {
		log.Printf("daemon: transcription provider not ready: %v", err)
	}

	return d, nil
}

func buildSource(cfg *config.Config) capture.Source {
	if cfg.Capture.Mode == "simple" {
		return capture.NewSimpleSource(cfg.ToSimpleConfig())
	}
	return capture.NewStreamingSource(cfg.ToStreamingConfig())
}

func buildProvider(cfg *config.Config) (transcriber.Provider, error) {
	switch cfg.Transcription.Provider {
	case "openai":
		return transcriber.NewOpenAIProvider(cfg.ResolvedAPIKey(), cfg.Transcription.Model), nil
	case "whisper-cpp":
		return transcriber.NewWhisperCppProvider(cfg.Transcription.ModelPath, cfg.Transcription.Threads), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}
}

func buildSink(cfg *config.Config) delivery.Sink {
	if cfg.Delivery.Mode == "log" {
		return delivery.LogSink{}
	}
	return delivery.Clipboard{Timeout: cfg.Delivery.ClipboardTimeout}
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.cfgMgr.StartWatching(d.ctx); err != nil {
		log.Printf("daemon: config watch unavailable: %v", err)
	}
	defer d.cfgMgr.Stop()
	defer d.source.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("daemon: received signal %v, shutting down gracefully", sig)
		d.cancel()
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("daemon: listening on control socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("daemon: shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch line[0] {
	case bus.CmdStart:
		d.respond(c, "started", d.start())
	case bus.CmdStop:
		d.respond(c, "stopped", d.manager.Stop())
	case bus.CmdToggle:
		d.respond(c, "toggled", d.toggle())
	case bus.CmdReset:
		d.respond(c, "reset", d.manager.Reset())
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS state=%s pending=%d\n", d.manager.State(), d.manager.Pending())
	case bus.CmdVer:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("daemon: unknown command: %c", line[0])
		fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
	}
}

func (d *Daemon) respond(c net.Conn, ok string, err error) {
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}
	fmt.Fprintf(c, "OK %s\n", ok)
}

func (d *Daemon) start() error {
	lang := d.cfgMgr.GetConfig().Transcription.Language
	if err := d.manager.Start(d.ctx, lang); err != nil {
		d.notifier.Error(fmt.Sprintf("Recording failed: %v", err))
		return err
	}
	d.notifier.RecordingChanged(true)
	return nil
}

func (d *Daemon) toggle() error {
	switch d.manager.State() {
	case dictation.Idle, dictation.Failed:
		return d.start()
	case dictation.Recording:
		if err := d.manager.Stop(); err != nil {
			return err
		}
		d.notifier.RecordingChanged(false)
		return nil
	default:
		return fmt.Errorf("busy: still transcribing")
	}
}
