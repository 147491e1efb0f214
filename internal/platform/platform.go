package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported is returned for operating systems without a piper release.
var ErrUnsupported = errors.New("platform not supported")

// Profile describes the host as far as engine downloads and audio playback
// are concerned. It is computed once and never persisted.
type Profile struct {
	OS          string // linux, darwin or windows
	Arch        string // x64 or arm64
	ArchiveName string
	DownloadURL string
	BinaryName  string

	PlayerCommand string
	playerArgs    func(path string) []string
}

// PlayerArgs builds the audio player arguments for the given wav file.
func (p Profile) PlayerArgs(path string) []string {
	if p.playerArgs == nil {
		return []string{path}
	}
	return p.playerArgs(path)
}

// IsWindows reports whether the profile targets Windows.
func (p Profile) IsWindows() bool {
	return p.OS == "windows"
}

// Detect resolves the profile of the running process.
func Detect(releaseBaseURL, version string) (Profile, error) {
	return Resolve(runtime.GOOS, runtime.GOARCH, releaseBaseURL, version)
}

// Resolve maps a GOOS/GOARCH pair onto the piper release layout.
// Download URLs follow <releaseBaseURL>/<version>/<archive>.
func Resolve(goos, goarch, releaseBaseURL, version string) (Profile, error) {
	arch := "x64"
	if goarch == "arm64" {
		arch = "arm64"
	}

	p := Profile{Arch: arch, BinaryName: "piper"}

	switch goos {
	case "linux":
		p.OS = "linux"
		p.ArchiveName = "piper_linux_x86_64.tar.gz"
		if arch == "arm64" {
			p.ArchiveName = "piper_linux_aarch64.tar.gz"
		}
		p.PlayerCommand = "aplay"
		p.playerArgs = func(path string) []string { return []string{path} }

	case "darwin":
		p.OS = "darwin"
		p.ArchiveName = "piper_macos_x64.tar.gz"
		if arch == "arm64" {
			p.ArchiveName = "piper_macos_aarch64.tar.gz"
		}
		p.PlayerCommand = "afplay"
		p.playerArgs = func(path string) []string { return []string{path} }

	case "windows":
		// Only an amd64 build is published; arm64 runs it under emulation.
		p.OS = "windows"
		p.ArchiveName = "piper_windows_amd64.zip"
		p.BinaryName = "piper.exe"
		p.PlayerCommand = "powershell"
		p.playerArgs = func(path string) []string {
			return []string{
				"-NoProfile",
				"-Command",
				fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", path),
			}
		}

	default:
		return Profile{}, fmt.Errorf("%w: %s/%s", ErrUnsupported, goos, goarch)
	}

	p.DownloadURL = fmt.Sprintf("%s/%s/%s", releaseBaseURL, version, p.ArchiveName)
	return p, nil
}
