// ABOUTME: On-demand enclosure download with progress written to the cache
// ABOUTME: Progress updates flow to observers through the enclosures row, independent of entry content

package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/newsling/newsling/internal/remote"
)

// progressStep is how many bytes are written between progress updates.
const progressStep = 256 * 1024

// DownloadEnclosure fetches an entry's media attachment into destDir,
// recording download progress in the cache as it streams. The enclosure row
// is created on demand; re-requesting a finished download is a no-op.
func (e *Engine) DownloadEnclosure(ctx context.Context, entryID, destDir string) error {
	entry, err := e.store.GetEntry(entryID)
	if err != nil {
		return remote.Cache(err)
	}
	if entry.EnclosureLink == nil {
		return fmt.Errorf("entry %s has no enclosure", entryID)
	}

	if err := e.store.EnsureEnclosure(entryID); err != nil {
		return remote.Cache(err)
	}
	enclosure, err := e.store.GetEnclosure(entryID)
	if err != nil {
		return remote.Cache(err)
	}
	if enclosure.DownloadProgress >= 1.0 && enclosure.CacheURI != nil {
		return nil
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create enclosure directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *entry.EnclosureLink, nil)
	if err != nil {
		return fmt.Errorf("create enclosure request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return remote.Transient(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remote.Transient(fmt.Errorf("enclosure fetch status %d", resp.StatusCode))
	}

	dest := filepath.Join(destDir, entryID)
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create enclosure file: %w", err)
	}
	defer file.Close()

	cacheURI := "file://" + dest
	total := resp.ContentLength
	var written int64
	buf := make([]byte, 32*1024)
	var sinceUpdate int64

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return fmt.Errorf("write enclosure: %w", err)
			}
			written += int64(n)
			sinceUpdate += int64(n)
			if total > 0 && sinceUpdate >= progressStep {
				sinceUpdate = 0
				progress := float64(written) / float64(total)
				if err := e.store.UpdateEnclosureProgress(entryID, &cacheURI, progress); err != nil {
					return remote.Cache(err)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return remote.Transient(readErr)
		}
	}

	if err := e.store.UpdateEnclosureProgress(entryID, &cacheURI, 1.0); err != nil {
		return remote.Cache(err)
	}
	return nil
}
