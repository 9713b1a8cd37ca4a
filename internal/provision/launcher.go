package provision

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Spec describes one session server to launch.
type Spec struct {
	Path       string
	RoomID     string
	SessionID  string
	Game       string
	Version    string
	Host       string
	Port       int
	MaxPlayers int
}

// Process is a launched session server.
type Process interface {
	Pid() int
	Wait() error
	Kill() error
}

type Launcher interface {
	Launch(ctx context.Context, spec Spec) (Process, error)
}

// ExecLauncher starts the entry point as an independent OS process. The
// listen address and capacity travel both as command-line flags (see Args)
// and as SESSION_* environment variables on top of the lobby's own
// environment; LOG_SERVICE is replaced so the child's log lines name the game.
type ExecLauncher struct {
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

func (l ExecLauncher) Launch(_ context.Context, spec Spec) (Process, error) {
	cmd := exec.Command(spec.Path, Args(spec)...)
	cmd.Dir = filepath.Dir(spec.Path)
	env := l.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(append([]string(nil), env...),
		"SESSION_HOST="+spec.Host,
		"SESSION_PORT="+strconv.Itoa(spec.Port),
		"SESSION_MAX_PLAYERS="+strconv.Itoa(spec.MaxPlayers),
		"SESSION_ID="+spec.SessionID,
		"SESSION_ROOM_ID="+spec.RoomID,
		"LOG_SERVICE="+spec.Game+"-session",
	)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Path, err)
	}
	return execProcess{cmd: cmd}, nil
}

// Args is the command line handed to every entry point. Servers that read
// SESSION_* from the environment are free to ignore it.
func Args(spec Spec) []string {
	return []string{
		"--host", spec.Host,
		"--port", strconv.Itoa(spec.Port),
		"--max_players", strconv.Itoa(spec.MaxPlayers),
	}
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Pid() int    { return p.cmd.Process.Pid }
func (p execProcess) Wait() error { return p.cmd.Wait() }
func (p execProcess) Kill() error { return p.cmd.Process.Kill() }

// FreePort binds an ephemeral port on host, reads the number back and
// releases it for the session server to claim.
func FreePort(host string) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
