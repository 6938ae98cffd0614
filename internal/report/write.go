package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deadbeesec/sysmon-pstree/internal/processtree"
	"github.com/deadbeesec/sysmon-pstree/internal/summary"
)

// WriteFile renders to path, replacing any existing file. The document is
// written next to path under a temporary name and renamed into place, so a
// failed run never leaves a partial report behind.
func (r *Renderer) WriteFile(path string, forest *processtree.Forest, sum *summary.Summary) (err error) {
	if path == "" {
		return ErrNoDestination
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = r.Render(bw, forest, sum); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
