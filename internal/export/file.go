package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/upi-extractor/internal/common"
)

const lockRetry = 50 * time.Millisecond

// acquireFileLock takes the advisory lock on "<target>.lock", waiting at most
// timeout (0 waits until ctx is done).
func acquireFileLock(ctx context.Context, target string, timeout time.Duration) (func(), error) {
	lctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	fl := flock.New(target + ".lock")
	ok, err := fl.TryLockContext(lctx, lockRetry)
	if err != nil {
		return nil, common.ExportIO(target, fmt.Errorf("lock: %w", err))
	}
	if !ok {
		return nil, common.ExportIO(target, fmt.Errorf("lock %s not acquired", fl.Path()))
	}
	return func() { _ = fl.Unlock() }, nil
}

// atomicWrite writes f to a temp file beside target, syncs it and renames it
// over target, keeping target's permissions (0644 for a new file). The temp
// file never outlives the call.
func atomicWrite(f *excelize.File, target string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
