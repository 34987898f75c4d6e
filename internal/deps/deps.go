package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of an external dependency.
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// CheckPython checks for the interpreter that runs the chunker worker.
func CheckPython() Status {
	return checkTool("python3", "--version")
}

// CheckWhisperCli checks if whisper-cli is installed.
func CheckWhisperCli() Status {
	return checkTool("whisper-cli", "--version")
}

// CheckPwRecord checks for the PipeWire recorder used by simple capture.
func CheckPwRecord() Status {
	return checkTool("pw-record", "--version")
}

// CheckWlCopy checks for the clipboard fallback.
func CheckWlCopy() Status {
	return checkTool("wl-copy", "--version")
}

// CheckNotifySend checks for desktop notification support.
func CheckNotifySend() Status {
	return checkTool("notify-send", "--version")
}

func checkTool(name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{Installed: true, Path: path}

	out, err := exec.Command(path, versionFlag).Output()
	if err == nil {
		lines := strings.Split(string(out), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}
