package voice

import (
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	ErrCatalogParse         = errors.New("voice catalog could not be parsed")
	ErrCatalogEmpty         = errors.New("no voices available for locale")
	ErrVoiceNotFound        = errors.New("voice not found")
	ErrVoiceAssetIncomplete = errors.New("voice has no model file")
)

// ModelExt is the extension of a piper voice model. Its metadata file is
// the model path plus ".json".
const ModelExt = ".onnx"

// Quality is the fidelity tier of a voice.
type Quality string

const (
	QualityHigh    Quality = "high"
	QualityMedium  Quality = "medium"
	QualityLow     Quality = "low"
	QualityUnknown Quality = "unknown"
)

// Rank orders tiers for sorting and tie-breaking.
func (q Quality) Rank() int {
	switch q {
	case QualityHigh:
		return 3
	case QualityMedium:
		return 2
	case QualityLow:
		return 1
	default:
		return 0
	}
}

type Language struct {
	Code           string `json:"code"`
	NameEnglish    string `json:"name_english"`
	CountryEnglish string `json:"country_english"`
}

type FileInfo struct {
	SizeBytes int64  `json:"size_bytes"`
	MD5Digest string `json:"md5_digest"`
}

// Descriptor is one selectable voice from the remote catalogue.
type Descriptor struct {
	Key      string              `json:"key"`
	Name     string              `json:"name"`
	Language Language            `json:"language"`
	Quality  Quality             `json:"quality"`
	Files    map[string]FileInfo `json:"files"`
}

// FilePaths returns the remote file paths in a stable order.
func (d Descriptor) FilePaths() []string {
	paths := make([]string, 0, len(d.Files))
	for p := range d.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ModelFile returns the remote path of the model, if the descriptor lists
// one.
func (d Descriptor) ModelFile() (string, bool) {
	for _, p := range d.FilePaths() {
		if strings.HasSuffix(p, ModelExt) {
			return p, true
		}
	}
	return "", false
}

// TotalSize sums the advertised size of every file.
func (d Descriptor) TotalSize() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.SizeBytes
	}
	return total
}

// HumanSize formats TotalSize for display.
func (d Descriptor) HumanSize() string {
	return humanize.Bytes(uint64(d.TotalSize()))
}

// ConfigPathFor derives the metadata file path that sits next to a model.
func ConfigPathFor(modelPath string) string {
	return modelPath + ".json"
}

// localName is the file name a remote path is stored under.
func localName(remote string) string {
	return path.Base(remote)
}
