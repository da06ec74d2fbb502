//go:build windows

package ytdlp

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
