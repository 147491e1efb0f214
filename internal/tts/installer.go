package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pipernest/internal/config"
	"pipernest/internal/platform"
	"pipernest/internal/state"

	"github.com/sirupsen/logrus"
)

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Saver persists state after each change.
type Saver interface {
	Save(st state.State) error
}

// ProvisionRecorder is told where an asset came from. A nil recorder is
// allowed.
type ProvisionRecorder interface {
	Provisioned(component, source string)
}

// Installer resolves a usable piper binary.
type Installer struct {
	Profile   platform.Profile
	BinDir    string
	Version   string
	TempDir   string
	Locator   platform.ExecutableLocator
	Fetcher   Fetcher
	Extractor Extractor
	Store     Saver
	Recorder  ProvisionRecorder
}

// CachedPath is where a downloaded binary lives after extraction.
func (in *Installer) CachedPath() string {
	return filepath.Join(in.BinDir, config.EngineName, in.Profile.BinaryName)
}

// EnsureInstalled walks the priority chain: system PATH, then a cached
// binary of the expected version, then a fresh download. It returns the
// binary path and the possibly updated state.
func (in *Installer) EnsureInstalled(ctx context.Context, st state.State) (string, state.State, error) {
	if in.Locator != nil {
		if path, ok := in.Locator.Locate(in.Profile.BinaryName); ok {
			logrus.WithField("path", path).Info("Using piper from system PATH")

			st = st.WithBinary(in.record(path, state.SystemVersion))
			if err := in.Store.Save(st); err != nil {
				return "", st, fmt.Errorf("failed to save state: %w", err)
			}
			in.provisioned("system")
			return path, st, nil
		}
	}

	cached := in.CachedPath()
	if st.PiperBinary != nil && st.PiperBinary.Version == in.Version {
		if _, err := os.Stat(cached); err == nil {
			logrus.WithFields(logrus.Fields{
				"path":    cached,
				"version": in.Version,
			}).Debug("Using cached piper binary")
			in.provisioned("cache")
			return cached, st, nil
		}
	}

	path, err := in.download(ctx)
	if err != nil {
		return "", st, &InstallationError{Err: err}
	}

	st = st.WithBinary(in.record(path, in.Version))
	if err := in.Store.Save(st); err != nil {
		return "", st, &InstallationError{Err: fmt.Errorf("failed to save state: %w", err)}
	}
	in.provisioned("download")

	logrus.WithFields(logrus.Fields{
		"path":    path,
		"version": in.Version,
	}).Info("Installed piper")

	return path, st, nil
}

func (in *Installer) download(ctx context.Context) (string, error) {
	tmpDir := in.TempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	archivePath := filepath.Join(tmpDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), in.Profile.ArchiveName))
	defer os.Remove(archivePath)

	logrus.WithFields(logrus.Fields{
		"url":     in.Profile.DownloadURL,
		"version": in.Version,
	}).Info("Downloading piper")

	if err := in.Fetcher.Fetch(ctx, in.Profile.DownloadURL, archivePath); err != nil {
		return "", err
	}
	if err := in.Extractor.Extract(ctx, archivePath, in.BinDir); err != nil {
		return "", err
	}

	path := in.CachedPath()
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("archive did not contain %s: %w", filepath.Join(config.EngineName, in.Profile.BinaryName), err)
	}

	if !in.Profile.IsWindows() {
		if err := os.Chmod(path, 0o755); err != nil {
			return "", errors.Join(ErrPermission, err)
		}
	}

	return path, nil
}

func (in *Installer) record(path, version string) state.InstalledBinary {
	return state.InstalledBinary{
		Path:     path,
		Version:  version,
		Platform: in.Profile.OS,
		Arch:     in.Profile.Arch,
	}
}

func (in *Installer) provisioned(source string) {
	if in.Recorder != nil {
		in.Recorder.Provisioned("binary", source)
	}
}
