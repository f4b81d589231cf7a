package reports

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lhviewer/constants"
)

// DefaultFileManager implements the FileManager interface.
type DefaultFileManager struct {
	logger logrus.FieldLogger
}

// NewDefaultFileManager creates a new file manager.
func NewDefaultFileManager(logger logrus.FieldLogger) *DefaultFileManager {
	return &DefaultFileManager{
		logger: logger.WithField("component", "file_manager"),
	}
}

// SaveHTML writes a rendered page, creating the parent directory if needed.
func (fm *DefaultFileManager) SaveHTML(filename string, content string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, constants.DefaultDirPermissions); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write HTML file %s: %w", filename, err)
	}

	fm.logger.WithFields(logrus.Fields{
		"filename": filename,
		"size":     humanize.Bytes(uint64(len(content))),
	}).Debug("HTML file saved")

	return nil
}

// FileExists checks if a file exists at the given path.
func (fm *DefaultFileManager) FileExists(filename string) bool {
	_, err := os.Stat(filename)

	return !os.IsNotExist(err)
}

// ReadFile reads a report file in full.
func (fm *DefaultFileManager) ReadFile(filename string) ([]byte, error) {
	//nolint:gosec // path supplied by the operator.
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	fm.logger.WithFields(logrus.Fields{
		"filename": filename,
		"size":     humanize.Bytes(uint64(len(data))),
	}).Debug("File read")

	return data, nil
}
