package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EngineName is the directory the piper release archive unpacks into.
	EngineName = "piper"

	// StateFileName holds the persisted binary/voice selections.
	StateFileName = "config.json"

	settingsName = "settings"
	envPrefix    = "PIPERNEST"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Home string

	Locale       string
	DefaultVoice string
	CatalogURL   string
	VoiceRepoURL string

	EngineVersion string
	ReleaseURL    string

	Player      string
	MetricsAddr string
	LogLevel    string
}

// BinDir is where downloaded engine archives are extracted.
func (s Settings) BinDir() string {
	return filepath.Join(s.Home, "bin")
}

// VoicesDir holds one sub directory per downloaded voice.
func (s Settings) VoicesDir() string {
	return filepath.Join(s.Home, "voices")
}

// StatePath is the location of the persisted state file.
func (s Settings) StatePath() string {
	return filepath.Join(s.Home, StateFileName)
}

// SetDefaults registers built-in values for every known key.
func SetDefaults() {
	viper.SetDefault("home", defaultHome())

	viper.SetDefault("voice.locale", "en_US")
	viper.SetDefault("voice.default", "en_US-hfc_female-medium")
	viper.SetDefault("voice.catalog_url", "https://huggingface.co/rhasspy/piper-voices/resolve/v1.0.0/voices.json")
	viper.SetDefault("voice.repo_url", "https://huggingface.co/rhasspy/piper-voices/resolve/v1.0.0")

	viper.SetDefault("engine.version", "2023.11.14-2")
	viper.SetDefault("engine.release_url", "https://github.com/rhasspy/piper/releases/download")

	viper.SetDefault("audio.player", "auto") // auto, builtin or a command name
	viper.SetDefault("metrics.addr", "")
	viper.SetDefault("log.level", "info")
}

// Init wires viper to the settings file and environment. A missing
// settings file is not an error; defaults apply.
func Init(cfgFile string) error {
	SetDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(settingsName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.pipernest")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logrus.Debug("no settings file found, using defaults")
			return nil
		}
		return err
	}

	logrus.WithField("file", viper.ConfigFileUsed()).Debug("loaded settings")
	return nil
}

// Load snapshots the current viper values.
func Load() Settings {
	return Settings{
		Home:          expandHome(viper.GetString("home")),
		Locale:        viper.GetString("voice.locale"),
		DefaultVoice:  viper.GetString("voice.default"),
		CatalogURL:    viper.GetString("voice.catalog_url"),
		VoiceRepoURL:  strings.TrimRight(viper.GetString("voice.repo_url"), "/"),
		EngineVersion: viper.GetString("engine.version"),
		ReleaseURL:    strings.TrimRight(viper.GetString("engine.release_url"), "/"),
		Player:        viper.GetString("audio.player"),
		MetricsAddr:   viper.GetString("metrics.addr"),
		LogLevel:      viper.GetString("log.level"),
	}
}

// defaultHome returns the configuration root
func defaultHome() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".pipernest")
	}

	// Fall back to the working directory
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".pipernest")
	}

	return ".pipernest"
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
