package runstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytgrab/internal/model"
)

const (
	lockRootName  = "ytgrab-locks"
	lockOwnerFile = "owner.json"
)

// OutputLock guards one output file against concurrent ytgrab processes. The
// lock is a directory under the temp dir keyed by the output path, so
// acquiring it is a single atomic mkdir and does not need the output
// directory to exist yet.
type OutputLock struct {
	lockDir string
}

type lockOwner struct {
	PID       int    `json:"pid"`
	AttemptID string `json:"attempt_id,omitempty"`
	URL       string `json:"url,omitempty"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func LockPath(outputPath string) string {
	key := filepath.Clean(outputPath)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(os.TempDir(), lockRootName, hex.EncodeToString(sum[:12])+".lock")
}

func AcquireOutputLock(outputPath, attemptID, url string) (OutputLock, error) {
	target := strings.TrimSpace(outputPath)
	if target == "" {
		return OutputLock{}, fmt.Errorf("output path is required")
	}

	lockDir := LockPath(target)
	if err := os.MkdirAll(filepath.Dir(lockDir), 0o755); err != nil {
		return OutputLock{}, fmt.Errorf("create lock root for %s: %w", target, err)
	}
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if !os.IsExist(err) {
			return OutputLock{}, fmt.Errorf("acquire output lock for %s: %w", target, err)
		}
		var owner lockOwner
		readErr := ReadJSON(filepath.Join(lockDir, lockOwnerFile), &owner)
		if readErr == nil && isStale(owner) {
			_ = os.Remove(filepath.Join(lockDir, lockOwnerFile))
			_ = os.Remove(lockDir)
			return AcquireOutputLock(outputPath, attemptID, url)
		}
		msg := fmt.Sprintf("another ytgrab process is writing %s", target)
		if readErr == nil && owner.PID > 0 {
			msg = fmt.Sprintf("%s (pid=%d created_at=%s host=%s)", msg, owner.PID, owner.CreatedAt, owner.Hostname)
		}
		return OutputLock{}, model.Errorf(model.KindOutputLocked, "%s", msg).
			WithGuidance("wait for the other download to finish, or remove " + lockDir + " if no other ytgrab is running")
	}

	owner := lockOwner{
		PID:       os.Getpid(),
		AttemptID: attemptID,
		URL:       url,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := WriteJSON(filepath.Join(lockDir, lockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return OutputLock{}, fmt.Errorf("write output lock owner for %s: %w", target, err)
	}

	return OutputLock{lockDir: lockDir}, nil
}

func (l OutputLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release output lock %s: %w", l.lockDir, err)
	}
	return nil
}

// isStale reports whether the owner was a process on this host that no
// longer exists.
func isStale(owner lockOwner) bool {
	if owner.PID <= 0 || owner.Hostname != hostnameOrUnknown() {
		return false
	}
	return !processAlive(owner.PID)
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
