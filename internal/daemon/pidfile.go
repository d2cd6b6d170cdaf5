package daemon

import (
	"os"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// PIDFile is a written, flock-held PID file. The lock is held for the
// lifetime of the process so a second daemon against the same pidfile
// fails fast instead of clobbering it.
type PIDFile struct {
	path string
	lock *flock.Flock
}

// WritePIDFile creates (or truncates) the PID file at path, takes an
// exclusive lock on it, and writes the current PID.
func WritePIDFile(path string) (*PIDFile, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "lock pidfile %s", path)
	}
	if !locked {
		return nil, errors.Errorf("pidfile %s is held by another process", path)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, errors.Wrapf(err, "write pidfile %s", path)
	}
	return &PIDFile{path: path, lock: lock}, nil
}

// Remove releases the lock and deletes the file.
func (p *PIDFile) Remove() {
	_ = p.lock.Unlock()
	_ = os.Remove(p.path)
}
