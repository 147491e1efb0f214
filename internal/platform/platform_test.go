package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releaseBase = "https://github.com/rhasspy/piper/releases/download"

func TestResolve(t *testing.T) {
	tests := []struct {
		goos, goarch string
		os, arch     string
		archive      string
		binary       string
		player       string
	}{
		{"linux", "amd64", "linux", "x64", "piper_linux_x86_64.tar.gz", "piper", "aplay"},
		{"linux", "arm64", "linux", "arm64", "piper_linux_aarch64.tar.gz", "piper", "aplay"},
		{"darwin", "amd64", "darwin", "x64", "piper_macos_x64.tar.gz", "piper", "afplay"},
		{"darwin", "arm64", "darwin", "arm64", "piper_macos_aarch64.tar.gz", "piper", "afplay"},
		{"windows", "amd64", "windows", "x64", "piper_windows_amd64.zip", "piper.exe", "powershell"},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			p, err := Resolve(tt.goos, tt.goarch, releaseBase, "2023.11.14-2")
			require.NoError(t, err)
			assert.Equal(t, tt.os, p.OS)
			assert.Equal(t, tt.arch, p.Arch)
			assert.Equal(t, tt.archive, p.ArchiveName)
			assert.Equal(t, tt.binary, p.BinaryName)
			assert.Equal(t, tt.player, p.PlayerCommand)
			assert.Equal(t, releaseBase+"/2023.11.14-2/"+tt.archive, p.DownloadURL)
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	_, err := Resolve("plan9", "amd64", releaseBase, "v1")
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestPlayerArgs(t *testing.T) {
	p, err := Resolve("linux", "amd64", releaseBase, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/a.wav"}, p.PlayerArgs("/tmp/a.wav"))

	w, err := Resolve("windows", "amd64", releaseBase, "v1")
	require.NoError(t, err)
	args := w.PlayerArgs(`C:\tmp\a.wav`)
	require.Len(t, args, 3)
	assert.Contains(t, args[2], `C:\tmp\a.wav`)
	assert.Contains(t, args[2], "PlaySync")
}

func TestPathLocator(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}

	first := t.TempDir()
	second := t.TempDir()

	// Non-executable file in the first dir must be skipped.
	require.NoError(t, os.WriteFile(filepath.Join(first, "piper"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "piper"), []byte("x"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(first, "tar"), 0o755))

	l := &PathLocator{Dirs: []string{"", first, second}}

	path, ok := l.Locate("piper")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(second, "piper"), path)

	_, ok = l.Locate("tar")
	assert.False(t, ok, "directories are not executables")

	_, ok = l.Locate("missing")
	assert.False(t, ok)
}

func TestPathLocatorWindowsExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "piper.exe"), []byte("x"), 0o644))

	l := &PathLocator{Dirs: []string{dir}, Exts: splitPathExt("COM;.EXE"), Windows: true}

	path, ok := l.Locate("piper")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "piper.exe"), path)

	path, ok = l.Locate("piper.exe")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "piper.exe"), path)
}

func TestSplitPathExtDefault(t *testing.T) {
	assert.Equal(t, []string{".com", ".exe", ".bat", ".cmd"}, splitPathExt(""))
}
