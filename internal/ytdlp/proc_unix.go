//go:build !windows

package ytdlp

import (
	"os/exec"
	"syscall"
)

// configureProcess puts yt-dlp in its own process group so cancellation also
// reaches the ffmpeg children it spawns.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
