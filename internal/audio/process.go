package audio

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// playerRunning scans OS processes for the configured player command's
// basename (spec 4.8 step 1, "OS-level check"). It is independent of
// whether this process instance launched it, so a player started before
// a restart of the daemon is still honored.
func playerRunning(playerCommand string) (bool, error) {
	if playerCommand == "" {
		return false, nil
	}
	base := baseName(playerCommand)

	procs, err := process.Processes()
	if err != nil {
		return false, fmt.Errorf("audio: scan processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if name == base {
			return true, nil
		}
	}
	return false, nil
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// acquireLock claims the player lock file (spec 4.8: "enforced by an
// OS-level check... and by a lock file") via an exclusive, non-blocking
// flock. It fails if another holder already has it, so the lock file
// actually excludes concurrent holders rather than merely recording one.
// It is not removed until releaseLock is called. A file left behind by
// a crashed daemon holds no flock, so the next acquireLock takes it over
// and overwrites the recorded PID; the PID itself is never checked.
func acquireLock(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audio: acquire lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("audio: lock file %s already held: %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("audio: truncate lock file %s: %w", path, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return f, nil
}

func releaseLock(f *os.File, path string) {
	if f == nil {
		return
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	_ = f.Close()
	if path != "" {
		_ = os.Remove(path)
	}
}

func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}
