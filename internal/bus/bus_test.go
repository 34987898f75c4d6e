package bus

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestSockPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	sp, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath: %v", err)
	}
	if !strings.HasSuffix(sp, filepath.Join("whisperdict", SockName)) {
		t.Errorf("SockPath = %q", sp)
	}
}

func TestPidFileLifecycle(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile: %v", err)
	}

	pp, err := PidPath()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(pp)
	if err != nil {
		t.Fatalf("pid file not written: %v", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil || pid != os.Getpid() {
		t.Errorf("pid file contains %q, want %d", data, os.Getpid())
	}

	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile: %v", err)
	}
	if _, err := os.Stat(pp); !os.IsNotExist(err) {
		t.Error("pid file still present after RemovePidFile")
	}
}

func TestCheckExistingDaemonWithOwnPid(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	// Our own pid is alive, so it must be reported as a running daemon.
	if err := CreatePidFile(); err != nil {
		t.Fatal(err)
	}
	defer RemovePidFile()

	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon ignored a live pid file")
	}
}

func TestCheckExistingDaemonWithStalePid(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	pp, err := PidPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(pp), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pp, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon rejected a stale pid file: %v", err)
	}
}

func TestCheckExistingDaemonWithNoPidFile(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon with no pid file: %v", err)
	}
}

func TestListenAndDial(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := ln.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		defer c.Close()
		buf := make([]byte, 2)
		if _, err := c.Read(buf); err != nil {
			t.Errorf("Read: %v", err)
			return
		}
		if buf[0] != CmdStatus {
			t.Errorf("received %q, want %q", buf[0], CmdStatus)
		}
		c.Write([]byte("STATUS state=idle pending=0\n"))
	}()

	resp, err := SendCommand(CmdStatus)
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if !strings.HasPrefix(resp, "STATUS") {
		t.Errorf("response = %q", resp)
	}
	<-done
}
