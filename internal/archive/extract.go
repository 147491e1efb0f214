package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrDirectoryCreation = errors.New("failed to create directory")

// ExtractionError is returned when the extraction tool exits non-zero.
type ExtractionError struct {
	Archive  string
	ExitCode int
	Stderr   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s failed with exit code %d: %s", e.Archive, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// ToolNotFoundError is returned when the extraction tool cannot be started.
type ToolNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("extraction tool %q could not be started: %v", e.Tool, e.Err)
}

func (e *ToolNotFoundError) Unwrap() error {
	return e.Err
}

// Extractor unpacks release archives with the host's tar or unzip.
type Extractor struct {
	TarCommand   string
	UnzipCommand string
	GOOS         string
}

// NewExtractor returns an extractor for the running OS.
func NewExtractor() *Extractor {
	return &Extractor{
		TarCommand:   "tar",
		UnzipCommand: "unzip",
		GOOS:         runtime.GOOS,
	}
}

// Extract unpacks archivePath into destDir, creating destDir first.
func (x *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryCreation, destDir, err)
	}

	tool, args := x.command(archivePath, destDir)

	logrus.WithFields(logrus.Fields{
		"archive": archivePath,
		"dest":    destDir,
		"tool":    tool,
	}).Debug("Extracting archive")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExtractionError{
				Archive:  archivePath,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return &ToolNotFoundError{Tool: tool, Err: err}
	}

	return nil
}

func (x *Extractor) command(archivePath, destDir string) (string, []string) {
	if strings.HasSuffix(strings.ToLower(archivePath), ".zip") {
		// Windows 10+ ships bsdtar, which reads zip files.
		if x.GOOS == "windows" {
			return x.tar(), []string{"-xf", archivePath, "-C", destDir}
		}
		return x.unzip(), []string{"-o", archivePath, "-d", destDir}
	}
	return x.tar(), []string{"-xzf", archivePath, "-C", destDir}
}

func (x *Extractor) tar() string {
	if x.TarCommand == "" {
		return "tar"
	}
	return x.TarCommand
}

func (x *Extractor) unzip() string {
	if x.UnzipCommand == "" {
		return "unzip"
	}
	return x.UnzipCommand
}
