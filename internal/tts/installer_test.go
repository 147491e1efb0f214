package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"pipernest/internal/platform"
	"pipernest/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVersion = "2023.11.14-2"

type fakeLocator map[string]string

func (f fakeLocator) Locate(name string) (string, bool) {
	p, ok := f[name]
	return p, ok
}

// fakeFetcher writes a placeholder archive and counts calls.
type fakeFetcher struct {
	calls int
	urls  []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dest string) error {
	f.calls++
	f.urls = append(f.urls, url)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("archive"), 0o644)
}

// fakeExtractor lays down piper/<binary> the way the release archive does.
type fakeExtractor struct {
	binary   string
	archives []string
	err      error
}

func (f *fakeExtractor) Extract(_ context.Context, archivePath, destDir string) error {
	f.archives = append(f.archives, archivePath)
	if f.err != nil {
		return f.err
	}
	dir := filepath.Join(destDir, "piper")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, f.binary), []byte("#!/bin/sh\n"), 0o644)
}

type memStore struct {
	saves []state.State
	err   error
}

func (m *memStore) Save(st state.State) error {
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, st)
	return nil
}

type recorded struct{ component, source string }

type fakeRecorder struct{ events []recorded }

func (f *fakeRecorder) Provisioned(component, source string) {
	f.events = append(f.events, recorded{component, source})
}

func newTestInstaller(t *testing.T) (*Installer, *fakeFetcher, *fakeExtractor, *memStore) {
	t.Helper()

	profile, err := platform.Resolve(runtime.GOOS, runtime.GOARCH, "https://example.test/releases", testVersion)
	if err != nil {
		t.Skip("unsupported test host")
	}

	fetcher := &fakeFetcher{}
	extractor := &fakeExtractor{binary: profile.BinaryName}
	store := &memStore{}

	return &Installer{
		Profile:   profile,
		BinDir:    filepath.Join(t.TempDir(), "bin"),
		Version:   testVersion,
		TempDir:   t.TempDir(),
		Locator:   fakeLocator{},
		Fetcher:   fetcher,
		Extractor: extractor,
		Store:     store,
	}, fetcher, extractor, store
}

func TestEnsureInstalledPrefersSystemBinary(t *testing.T) {
	in, fetcher, _, store := newTestInstaller(t)
	in.Locator = fakeLocator{in.Profile.BinaryName: "/usr/local/bin/piper"}
	rec := &fakeRecorder{}
	in.Recorder = rec

	path, st, err := in.EnsureInstalled(context.Background(), state.Default())
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/piper", path)
	require.NotNil(t, st.PiperBinary)
	assert.Equal(t, state.SystemVersion, st.PiperBinary.Version)
	assert.Zero(t, fetcher.calls)
	require.Len(t, store.saves, 1)
	assert.Equal(t, st, store.saves[0])
	assert.Equal(t, []recorded{{"binary", "system"}}, rec.events)
}

func TestEnsureInstalledDownloadsThenUsesCache(t *testing.T) {
	in, fetcher, extractor, store := newTestInstaller(t)

	path, st, err := in.EnsureInstalled(context.Background(), state.Default())
	require.NoError(t, err)

	assert.Equal(t, in.CachedPath(), path)
	assert.Equal(t, []string{in.Profile.DownloadURL}, fetcher.urls)
	require.NotNil(t, st.PiperBinary)
	assert.Equal(t, testVersion, st.PiperBinary.Version)
	assert.Equal(t, in.Profile.OS, st.PiperBinary.Platform)
	require.Len(t, store.saves, 1)

	// The temporary archive is gone.
	require.Len(t, extractor.archives, 1)
	_, statErr := os.Stat(extractor.archives[0])
	assert.True(t, os.IsNotExist(statErr))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0o111)
	}

	// Second call: no network, no save, same path.
	path2, st2, err := in.EnsureInstalled(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.Equal(t, st, st2)
	assert.Equal(t, 1, fetcher.calls)
	assert.Len(t, store.saves, 1)
}

func TestEnsureInstalledRedownloadsOnVersionMismatch(t *testing.T) {
	in, fetcher, _, _ := newTestInstaller(t)

	_, st, err := in.EnsureInstalled(context.Background(), state.Default())
	require.NoError(t, err)

	stale := st.WithBinary(state.InstalledBinary{Path: in.CachedPath(), Version: "2023.1.1"})
	_, st, err = in.EnsureInstalled(context.Background(), stale)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.calls)
	assert.Equal(t, testVersion, st.PiperBinary.Version)
}

func TestEnsureInstalledDownloadFailure(t *testing.T) {
	in, fetcher, extractor, store := newTestInstaller(t)
	fetcher.err = errors.New("connection reset")

	original := state.Default()
	_, st, err := in.EnsureInstalled(context.Background(), original)

	var instErr *InstallationError
	require.ErrorAs(t, err, &instErr)
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, original, st)
	assert.Empty(t, store.saves)
	assert.Empty(t, extractor.archives)

	entries, err := os.ReadDir(in.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureInstalledExtractionFailureRemovesArchive(t *testing.T) {
	in, _, extractor, store := newTestInstaller(t)
	extractor.err = errors.New("exit status 2")

	_, _, err := in.EnsureInstalled(context.Background(), state.Default())

	var instErr *InstallationError
	require.ErrorAs(t, err, &instErr)
	assert.Empty(t, store.saves)

	require.Len(t, extractor.archives, 1)
	_, statErr := os.Stat(extractor.archives[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsureInstalledMissingBinaryInArchive(t *testing.T) {
	in, _, extractor, _ := newTestInstaller(t)
	extractor.binary = "something-else"

	_, _, err := in.EnsureInstalled(context.Background(), state.Default())

	var instErr *InstallationError
	require.ErrorAs(t, err, &instErr)
	assert.ErrorContains(t, err, "archive did not contain")
}
