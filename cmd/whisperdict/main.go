package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmgerman/whisperdict/internal/bus"
	"github.com/dmgerman/whisperdict/internal/capture"
	"github.com/dmgerman/whisperdict/internal/config"
	"github.com/dmgerman/whisperdict/internal/daemon"
	"github.com/dmgerman/whisperdict/internal/deps"
)

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "whisperdict",
	Short: "Chunked voice dictation: record, transcribe, assemble",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		startCmd(),
		stopCmd(),
		toggleCmd(),
		statusCmd(),
		resetCmd(),
		versionCmd(),
		quitCmd(),
		depsCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := daemon.New()
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func startCmd() *cobra.Command {
	return sendCmd("start", "Start a recording session", bus.CmdStart)
}

func stopCmd() *cobra.Command {
	return sendCmd("stop", "Stop recording and transcribe", bus.CmdStop)
}

func toggleCmd() *cobra.Command {
	return sendCmd("toggle", "Toggle recording on/off", bus.CmdToggle)
}

func statusCmd() *cobra.Command {
	return sendCmd("status", "Get current session status", bus.CmdStatus)
}

func resetCmd() *cobra.Command {
	return sendCmd("reset", "Recover from a failed session", bus.CmdReset)
}

func versionCmd() *cobra.Command {
	return sendCmd("version", "Get protocol version", bus.CmdVer)
}

func quitCmd() *cobra.Command {
	return sendCmd("quit", "Stop the daemon", bus.CmdQuit)
}

func sendCmd(use, short string, b byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(b)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func depsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := []struct {
				name   string
				status deps.Status
			}{
				{"python3", deps.CheckPython()},
				{"whisper-cli", deps.CheckWhisperCli()},
				{"pw-record", deps.CheckPwRecord()},
				{"wl-copy", deps.CheckWlCopy()},
				{"notify-send", deps.CheckNotifySend()},
			}
			for _, c := range checks {
				if c.status.Installed {
					fmt.Printf("  ok  %-12s %s\n", c.name, c.status.Path)
				} else {
					fmt.Printf("  --  %-12s not found\n", c.name)
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Capture.Mode == "streaming" {
				src := capture.NewStreamingSource(cfg.ToStreamingConfig())
				if err := src.Validate(); err != nil {
					fmt.Printf("  --  worker       %v\n", err)
				} else {
					fmt.Printf("  ok  worker       dependencies satisfied\n")
				}
			}
			return nil
		},
	}
}
