// ABOUTME: Gallery image lifecycle manager pairing file artifacts with metadata rows
// ABOUTME: Uploads, replacements and deletions with best-effort artifact cleanup

package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jevicarn/site/internal/store"
)

// ErrUnsupportedType is returned when an uploaded file's extension is not
// a recognized image type.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrPathEscape is returned when a stored filename would resolve outside
// the upload directory.
var ErrPathEscape = errors.New("filename escapes upload directory")

// allowedExtensions are the image types the gallery accepts. Matching is
// case-insensitive on the uploaded filename's extension.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
}

// Receipt reports the outcome of a gallery mutation. Warning carries a
// non-fatal artifact problem (an orphaned file that could not be removed);
// the metadata change it accompanies has still been applied.
type Receipt struct {
	Filename string
	Warning  error
}

// Manager owns the pairing between gallery metadata rows and the image
// artifacts on disk. Metadata is authoritative: an artifact is live only
// while a row references it.
type Manager struct {
	store  store.GalleryStore
	dir    string
	logger *slog.Logger
}

// NewManager creates a gallery manager rooted at dir, creating the
// directory if needed.
func NewManager(galleryStore store.GalleryStore, dir string) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &Manager{
		store:  galleryStore,
		dir:    abs,
		logger: slog.Default().With("component", "gallery"),
	}, nil
}

// Dir returns the absolute upload directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Upload stores an image and creates its gallery entry. The artifact is
// written under a fresh random name before the metadata row exists, so a
// failed insert leaves no live entry; the stray artifact is removed
// best-effort.
func (m *Manager) Upload(ctx context.Context, src io.Reader, originalName, caption string) (*store.GalleryItem, error) {
	filename, err := m.writeArtifact(src, originalName)
	if err != nil {
		return nil, err
	}

	item := &store.GalleryItem{
		ID:        uuid.NewString(),
		Filename:  filename,
		Caption:   caption,
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateGalleryItem(ctx, item); err != nil {
		m.removeArtifact(filename)
		return nil, fmt.Errorf("creating gallery item: %w", err)
	}

	m.logger.Info("gallery item uploaded", "id", item.ID, "filename", filename)
	return item, nil
}

// Replace swaps the image behind an existing gallery entry. The new
// artifact is written first, then the row is atomically repointed from the
// filename the caller last observed. Losing a concurrent replace removes
// the fresh artifact and reports store.ErrReplaceConflict; the winner's
// artifact stays referenced.
func (m *Manager) Replace(ctx context.Context, id, observedFilename string, src io.Reader, originalName string) (*Receipt, error) {
	filename, err := m.writeArtifact(src, originalName)
	if err != nil {
		return nil, err
	}

	if err := m.store.SwapGalleryFilename(ctx, id, observedFilename, filename); err != nil {
		m.removeArtifact(filename)
		return nil, err
	}

	receipt := &Receipt{Filename: filename}
	if err := m.removeArtifact(observedFilename); err != nil {
		receipt.Warning = fmt.Errorf("removing replaced image %q: %w", observedFilename, err)
	}

	m.logger.Info("gallery item replaced", "id", id, "filename", filename)
	return receipt, nil
}

// Delete removes a gallery entry and its artifact. Artifact removal is
// attempted first but never blocks the metadata delete: a stuck file is
// reported as a warning while the entry still disappears from the gallery.
func (m *Manager) Delete(ctx context.Context, id string) (*Receipt, error) {
	item, err := m.store.GetGalleryItem(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{Filename: item.Filename}
	if err := m.removeArtifact(item.Filename); err != nil {
		receipt.Warning = fmt.Errorf("removing image %q: %w", item.Filename, err)
	}

	if err := m.store.DeleteGalleryItem(ctx, id); err != nil {
		return nil, err
	}

	m.logger.Info("gallery item deleted", "id", id, "filename", item.Filename)
	return receipt, nil
}

// SaveAttachment stores a message attachment in the upload directory and
// returns its generated filename. Attachments have no gallery metadata row;
// the message ledger references them by filename.
func (m *Manager) SaveAttachment(src io.Reader, originalName string) (string, error) {
	filename, err := m.writeArtifact(src, originalName)
	if err != nil {
		return "", err
	}
	m.logger.Info("attachment saved", "filename", filename)
	return filename, nil
}

// ArtifactPath resolves a stored filename to an absolute path inside the
// upload directory, rejecting anything that would escape it.
func (m *Manager) ArtifactPath(filename string) (string, error) {
	if filename == "" {
		return "", ErrPathEscape
	}
	path := filepath.Join(m.dir, filepath.Base(filename))
	if filepath.Dir(path) != m.dir {
		return "", ErrPathEscape
	}
	return path, nil
}

// writeArtifact streams src to a fresh uuid-named file, keeping the
// original extension. The uploaded name is never used for storage.
func (m *Manager) writeArtifact(src io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	filename := uuid.NewString() + ext
	path := filepath.Join(m.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing image file: %w", err)
	}
	return filename, nil
}

// removeArtifact deletes a stored file. A missing file is not an error;
// the artifact is already gone.
func (m *Manager) removeArtifact(filename string) error {
	path, err := m.ArtifactPath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("failed to remove image artifact", "filename", filename, "error", err)
		return err
	}
	return nil
}
