package fetch

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// ProgressFunc is told how far a download has got. It is only called when
// the response carries a Content-Length.
type ProgressFunc func(url string, percent int, received, total int64)

// LogProgress is the default ProgressFunc.
func LogProgress(url string, percent int, received, total int64) {
	logrus.WithFields(logrus.Fields{
		"url":      url,
		"progress": percent,
		"received": humanize.Bytes(uint64(received)),
		"total":    humanize.Bytes(uint64(total)),
	}).Info("Downloading")
}

type progressTracker struct {
	url      string
	total    int64
	received int64
	reported int
	fn       ProgressFunc
}

func newProgressTracker(url string, total int64, fn ProgressFunc) *progressTracker {
	return &progressTracker{url: url, total: total, reported: -1, fn: fn}
}

func (p *progressTracker) Write(b []byte) (int, error) {
	p.received += int64(len(b))
	if p.fn == nil || p.total <= 0 {
		return len(b), nil
	}

	percent := int(p.received * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	// Report in steps of at least 10 points, always including completion.
	if p.reported < 0 || percent-p.reported >= 10 || (percent == 100 && p.reported != 100) {
		p.reported = percent
		p.fn(p.url, percent, p.received, p.total)
	}
	return len(b), nil
}
