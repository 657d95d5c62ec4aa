package audio

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"github.com/shadehub/shadehub/internal/log"
)

// playerHandle tracks the spawned player process, mirroring the
// rtl_fm/aplay pipeline lifecycle: start under its own process group so
// the whole group can be signalled on stop, and reap it in a goroutine so
// Stop never blocks on process exit.
type playerHandle struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func launchPlayer(command string, args []string) (*playerHandle, error) {
	cmd := exec.Command(command, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio: start player %s: %w", command, err)
	}

	h := &playerHandle{cmd: cmd, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		if err := cmd.Wait(); err != nil {
			log.L().Warn().Err(err).Str("event", "audio.player_exited").Msg("player process exited")
		}
	}()
	return h, nil
}

// stop signals the player's process group and returns immediately; it
// does not wait for the process to actually exit (spec 4.8: "Stop is
// immediate... returns within 1 s regardless of cleanup completion").
func (h *playerHandle) stop() {
	h.mu.Lock()
	cmd := h.cmd
	h.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := killProcessGroup(cmd.Process.Pid); err != nil {
		log.L().Warn().Err(err).Str("event", "audio.stop_signal_failed").Msg("failed to signal player process group")
	}
}
