package toll

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// FileManager owns the on-disk layout of the toll system and persists the
// audit artifacts (raw frames, plate crops).
type FileManager struct {
	baseDir string
}

// NewFileManager creates the directory structure under basePath.
func NewFileManager(basePath string) (*FileManager, error) {
	if basePath == "" {
		basePath = "toll_system"
	}
	fm := &FileManager{baseDir: basePath}
	dirs := []string{
		"config",
		"data",
		"logs",
		"output/captured_plates",
		"output/processed_images",
		"output/daily_summaries",
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return fm, nil
}

// ConfigPath returns the path of a file in the config directory.
func (fm *FileManager) ConfigPath(name string) string {
	return filepath.Join(fm.baseDir, "config", name)
}

// LogPath returns the path of a file in the logs directory.
func (fm *FileManager) LogPath(name string) string {
	return filepath.Join(fm.baseDir, "logs", name)
}

// SaveFrame persists a raw frame and returns the written path. Names carry
// the capture event ID alongside the timestamp so concurrent lanes never
// overwrite each other's audit artifact.
func (fm *FileManager) SaveFrame(img image.Image, ts time.Time, eventID string) (string, error) {
	name := fmt.Sprintf("vehicle_%d_%s.jpg", ts.UnixNano(), eventID)
	path := filepath.Join(fm.baseDir, "output", "processed_images", name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save frame: %w", err)
	}
	return path, nil
}

// SavePlate persists a cropped plate region and returns the written path.
func (fm *FileManager) SavePlate(img image.Image, ts time.Time, eventID string) (string, error) {
	name := fmt.Sprintf("plate_%d_%s.jpg", ts.UnixNano(), eventID)
	path := filepath.Join(fm.baseDir, "output", "captured_plates", name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save plate: %w", err)
	}
	return path, nil
}
