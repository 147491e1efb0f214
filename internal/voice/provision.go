package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pipernest/internal/state"

	"github.com/sirupsen/logrus"
)

// DownloadStatus is the result of looking for a voice on disk. A failed
// check is kept apart from a voice that is simply absent.
type DownloadStatus int

const (
	StatusAbsent DownloadStatus = iota
	StatusPresent
	StatusCheckFailed
)

func (s DownloadStatus) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusCheckFailed:
		return "check failed"
	default:
		return "absent"
	}
}

// Downloaded reports whether the voice can be used as is.
func (s DownloadStatus) Downloaded() bool {
	return s == StatusPresent
}

// Selector picks one voice out of the locale's catalogue.
type Selector func(ctx context.Context, voices []Descriptor) (Descriptor, error)

// ByIdentifier selects with Resolve, for callers that already know what
// they want.
func ByIdentifier(identifier, localePrefix string) Selector {
	return func(_ context.Context, voices []Descriptor) (Descriptor, error) {
		return Resolve(identifier, voices, localePrefix)
	}
}

// Source lists available voices.
type Source interface {
	FetchAvailable(ctx context.Context) ([]Descriptor, error)
}

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Saver persists state after each change.
type Saver interface {
	Save(st state.State) error
}

// ProvisionRecorder is told where a voice came from. A nil recorder is
// allowed.
type ProvisionRecorder interface {
	Provisioned(component, source string)
}

// Provisioner keeps the selected voice's files on disk.
type Provisioner struct {
	Catalog   Source
	Fetcher   Fetcher
	Store     Saver
	VoicesDir string
	RepoURL   string
	Locale    string
	Recorder  ProvisionRecorder
}

// VoiceDir is the directory holding one voice's files.
func (p *Provisioner) VoiceDir(key string) string {
	return filepath.Join(p.VoicesDir, key)
}

// EnsureSelected returns the model of the selected voice, choosing and
// downloading one with sel when the saved selection is missing from disk.
func (p *Provisioner) EnsureSelected(ctx context.Context, st state.State, sel Selector) (string, state.State, error) {
	if sv := st.SelectedVoice; sv != nil && sv.ModelPath != "" {
		if _, err := os.Stat(sv.ModelPath); err == nil {
			p.provisioned("cache")
			return sv.ModelPath, st, nil
		}
		logrus.WithField("model", sv.ModelPath).Warn("Selected voice model is missing, selecting again")
	}

	voices, err := p.Catalog.FetchAvailable(ctx)
	if err != nil {
		return "", st, fmt.Errorf("voice setup failed: %w", err)
	}
	if len(voices) == 0 {
		return "", st, fmt.Errorf("voice setup failed: %w: %s", ErrCatalogEmpty, p.Locale)
	}

	d, err := sel(ctx, voices)
	if err != nil {
		return "", st, fmt.Errorf("voice setup failed: %w", err)
	}

	modelPath, err := p.download(ctx, d)
	if err != nil {
		return "", st, fmt.Errorf("voice setup failed: %w", err)
	}

	st = st.WithVoice(selection(d, modelPath))
	if err := p.Store.Save(st); err != nil {
		return "", st, fmt.Errorf("failed to save state: %w", err)
	}
	p.provisioned("download")

	return modelPath, st, nil
}

// ChangeVoice resolves identifier, downloads the voice when needed and
// makes it the selection. On failure the previous selection is kept.
func (p *Provisioner) ChangeVoice(ctx context.Context, identifier string, st state.State) (string, state.State, error) {
	voices, err := p.Catalog.FetchAvailable(ctx)
	if err != nil {
		return "", st, err
	}

	d, err := Resolve(identifier, voices, p.Locale)
	if err != nil {
		return "", st, fmt.Errorf("%w; list the available voices to see valid names and numbers", err)
	}

	var modelPath string
	switch status := p.CheckDownloaded(d.Key); status {
	case StatusPresent:
		modelPath, err = p.localModel(d.Key)
		p.provisioned("cache")
	default:
		if status == StatusCheckFailed {
			logrus.WithField("voice", d.Key).Warn("Could not inspect voice directory, downloading again")
		}
		modelPath, err = p.download(ctx, d)
		if err == nil {
			p.provisioned("download")
		}
	}
	if err != nil {
		return "", st, err
	}

	next := st.WithVoice(selection(d, modelPath))
	if err := p.Store.Save(next); err != nil {
		return "", st, fmt.Errorf("failed to save state: %w", err)
	}

	return fmt.Sprintf("Voice changed to %s (%s), quality: %s, size: %s", d.Name, d.Key, d.Quality, d.HumanSize()), next, nil
}

// CheckDownloaded looks for a model file in the voice's directory.
func (p *Provisioner) CheckDownloaded(key string) DownloadStatus {
	entries, err := os.ReadDir(p.VoiceDir(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StatusAbsent
		}
		logrus.WithError(err).WithField("voice", key).Debug("Voice directory check failed")
		return StatusCheckFailed
	}

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ModelExt) {
			return StatusPresent
		}
	}
	return StatusAbsent
}

// download fetches every file of d into its voice directory and returns
// the local model path.
func (p *Provisioner) download(ctx context.Context, d Descriptor) (string, error) {
	model, ok := d.ModelFile()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVoiceAssetIncomplete, d.Key)
	}

	dir := p.VoiceDir(d.Key)
	var written []string
	for _, remote := range d.FilePaths() {
		url := p.RepoURL + "/" + strings.TrimPrefix(remote, "/")
		dest := filepath.Join(dir, localName(remote))

		logrus.WithFields(logrus.Fields{
			"voice": d.Key,
			"file":  localName(remote),
			"size":  d.Files[remote].SizeBytes,
		}).Info("Downloading voice file")

		if err := p.Fetcher.Fetch(ctx, url, dest); err != nil {
			// A half-downloaded voice must not look present later.
			for _, f := range written {
				_ = os.Remove(f)
			}
			return "", fmt.Errorf("failed to download %s: %w", remote, err)
		}
		written = append(written, dest)
	}

	return filepath.Join(dir, localName(model)), nil
}

func (p *Provisioner) localModel(key string) (string, error) {
	entries, err := os.ReadDir(p.VoiceDir(key))
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ModelExt) {
			return filepath.Join(p.VoiceDir(key), e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrVoiceAssetIncomplete, key)
}

func (p *Provisioner) provisioned(source string) {
	if p.Recorder != nil {
		p.Recorder.Provisioned("voice", source)
	}
}

func selection(d Descriptor, modelPath string) state.SelectedVoice {
	return state.SelectedVoice{
		Key:          d.Key,
		Name:         d.Name,
		LanguageCode: d.Language.Code,
		Quality:      string(d.Quality),
		ModelPath:    modelPath,
		ConfigPath:   ConfigPathFor(modelPath),
	}
}
