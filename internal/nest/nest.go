package nest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pipernest/internal/archive"
	"pipernest/internal/config"
	"pipernest/internal/fetch"
	"pipernest/internal/observability"
	"pipernest/internal/platform"
	"pipernest/internal/state"
	"pipernest/internal/tts"
	"pipernest/internal/voice"

	"github.com/sirupsen/logrus"
)

var ErrEmptyText = errors.New("no text to speak")

// Nest is the long-lived owner of the piper binary, the selected voice and
// the persisted state. Calls are serialised.
type Nest struct {
	mu sync.Mutex

	settings config.Settings
	profile  platform.Profile
	store    *state.Store
	state    state.State

	installer *tts.Installer
	voices    *voice.Provisioner
	catalog   *voice.Catalog
	player    tts.Player
	selector  voice.Selector
	metrics   *observability.Metrics
	tempDir   string

	binaryPath  string
	modelPath   string
	provisioned bool
}

type options struct {
	httpClient *http.Client
	locator    platform.ExecutableLocator
	player     tts.Player
	selector   voice.Selector
	metrics    *observability.Metrics
	profile    *platform.Profile
	tempDir    string
}

// Option customises a Nest.
type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLocator(l platform.ExecutableLocator) Option {
	return func(o *options) { o.locator = l }
}

func WithPlayer(p tts.Player) Option {
	return func(o *options) { o.player = p }
}

// WithSelector sets how a voice is chosen when none is selected yet. The
// default picks settings.DefaultVoice.
func WithSelector(s voice.Selector) Option {
	return func(o *options) { o.selector = s }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithProfile overrides host detection.
func WithProfile(p platform.Profile) Option {
	return func(o *options) { o.profile = &p }
}

// WithTempDir sets where archives and synthesized audio are written.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// New wires every component from settings and loads the saved state.
// Nothing is downloaded until Provision.
func New(settings config.Settings, opts ...Option) (*Nest, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var profile platform.Profile
	if o.profile != nil {
		profile = *o.profile
	} else {
		p, err := platform.Detect(settings.ReleaseURL, settings.EngineVersion)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	if o.locator == nil {
		o.locator = platform.NewPathLocator()
	}
	if o.metrics == nil {
		o.metrics = observability.NewMetrics("pipernest")
	}
	if o.tempDir == "" {
		o.tempDir = os.TempDir()
	}
	if o.selector == nil {
		o.selector = voice.ByIdentifier(settings.DefaultVoice, settings.Locale)
	}
	if o.player == nil {
		p, err := tts.NewPlayer(settings.Player, profile, o.locator)
		if err != nil {
			return nil, err
		}
		o.player = p
	}

	fetchOpts := []fetch.Option{fetch.WithRecorder(o.metrics)}
	if o.httpClient != nil {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(o.httpClient))
	}
	fetcher := fetch.New(fetchOpts...)

	store := state.NewStore(settings.StatePath())
	catalog := voice.NewCatalog(settings.CatalogURL, settings.Locale, o.httpClient)

	n := &Nest{
		settings: settings,
		profile:  profile,
		store:    store,
		state:    store.Load(),
		installer: &tts.Installer{
			Profile:   profile,
			BinDir:    settings.BinDir(),
			Version:   settings.EngineVersion,
			TempDir:   o.tempDir,
			Locator:   o.locator,
			Fetcher:   fetcher,
			Extractor: archive.NewExtractor(),
			Store:     store,
			Recorder:  o.metrics,
		},
		voices: &voice.Provisioner{
			Catalog:   catalog,
			Fetcher:   fetcher,
			Store:     store,
			VoicesDir: settings.VoicesDir(),
			RepoURL:   settings.VoiceRepoURL,
			Locale:    settings.Locale,
			Recorder:  o.metrics,
		},
		catalog:  catalog,
		player:   o.player,
		selector: o.selector,
		metrics:  o.metrics,
		tempDir:  o.tempDir,
	}

	return n, nil
}

// Metrics exposes the instruments for the /metrics endpoint.
func (n *Nest) Metrics() *observability.Metrics {
	return n.metrics
}

// Provision makes sure a binary and a voice are available. Once it has
// succeeded further calls return immediately.
func (n *Nest) Provision(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.provision(ctx)
}

func (n *Nest) provision(ctx context.Context) error {
	if n.provisioned {
		return nil
	}

	binaryPath, st, err := n.installer.EnsureInstalled(ctx, n.state)
	n.state = st
	if err != nil {
		return err
	}
	n.binaryPath = binaryPath

	modelPath, st, err := n.voices.EnsureSelected(ctx, n.state, n.selector)
	n.state = st
	if err != nil {
		return err
	}
	n.modelPath = modelPath

	n.provisioned = true

	logrus.WithFields(logrus.Fields{
		"binary": n.binaryPath,
		"model":  n.modelPath,
	}).Info("Provisioning complete")

	return nil
}

// SynthesizeAndPlay speaks text with the selected voice. The temporary wav
// is removed whatever happens.
func (n *Nest) SynthesizeAndPlay(ctx context.Context, text string) (status string, err error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.provision(ctx); err != nil {
		return "", err
	}

	started := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		n.metrics.SynthesisFinished(outcome, time.Since(started))
	}()

	wavPath := filepath.Join(n.tempDir, fmt.Sprintf("piper-%d.wav", time.Now().UnixNano()))
	defer os.Remove(wavPath)

	synth := &tts.Synthesizer{BinaryPath: n.binaryPath, ModelPath: n.modelPath}
	if err := synth.Synthesize(ctx, text, wavPath); err != nil {
		return "", err
	}
	if err := n.player.Play(ctx, wavPath); err != nil {
		return "", err
	}

	return fmt.Sprintf("Spoke %d characters with %s", len([]rune(text)), n.voiceLabel()), nil
}

// SelectVoice switches to the voice matching identifier.
func (n *Nest) SelectVoice(ctx context.Context, identifier string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	msg, st, err := n.voices.ChangeVoice(ctx, identifier, n.state)
	n.state = st
	if err != nil {
		return "", err
	}
	if st.SelectedVoice != nil {
		n.modelPath = st.SelectedVoice.ModelPath
	}
	return msg, nil
}

// Voices returns the locale's catalogue with each entry's download status.
func (n *Nest) Voices(ctx context.Context) ([]VoiceEntry, error) {
	voices, err := n.catalog.FetchAvailable(ctx)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	selected := ""
	if n.state.SelectedVoice != nil {
		selected = n.state.SelectedVoice.Key
	}
	n.mu.Unlock()

	entries := make([]VoiceEntry, len(voices))
	for i, d := range voices {
		entries[i] = VoiceEntry{
			Index:      i + 1,
			Descriptor: d,
			Status:     n.voices.CheckDownloaded(d.Key),
			Selected:   d.Key == selected,
		}
	}
	return entries, nil
}

// ListCatalogReport renders Voices as plain text.
func (n *Nest) ListCatalogReport(ctx context.Context) (string, error) {
	entries, err := n.Voices(ctx)
	if err != nil {
		return "", err
	}
	return FormatCatalog(n.settings.Locale, entries), nil
}

// Status snapshots what is currently provisioned.
func (n *Nest) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := Status{
		Provisioned: n.provisioned,
		StatePath:   n.store.Path(),
		Platform:    n.profile.OS + "/" + n.profile.Arch,
	}
	if b := n.state.PiperBinary; b != nil {
		s.BinaryPath = b.Path
		s.BinaryVersion = b.Version
	}
	if v := n.state.SelectedVoice; v != nil {
		s.VoiceKey = v.Key
		s.VoiceName = v.Name
		s.VoiceQuality = v.Quality
		s.ModelPath = v.ModelPath
	}
	return s
}

// StatusReport renders Status as plain text.
func (n *Nest) StatusReport() string {
	return n.Status().String()
}

func (n *Nest) voiceLabel() string {
	if v := n.state.SelectedVoice; v != nil {
		return fmt.Sprintf("%s (%s)", v.Name, v.Key)
	}
	return filepath.Base(n.modelPath)
}
