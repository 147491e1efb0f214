package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ExecutableLocator finds a program on the executable search path.
type ExecutableLocator interface {
	Locate(name string) (string, bool)
}

// PathLocator scans a fixed list of directories without spawning a
// process. On Windows every PATHEXT extension is tried.
type PathLocator struct {
	Dirs    []string
	Exts    []string
	Windows bool
}

// NewPathLocator builds a locator from the PATH and PATHEXT of the
// current environment.
func NewPathLocator() *PathLocator {
	l := &PathLocator{
		Dirs:    filepath.SplitList(os.Getenv("PATH")),
		Windows: runtime.GOOS == "windows",
	}
	if l.Windows {
		l.Exts = splitPathExt(os.Getenv("PATHEXT"))
	}
	return l
}

// Locate returns the first matching executable.
func (l *PathLocator) Locate(name string) (string, bool) {
	for _, dir := range l.Dirs {
		if dir == "" {
			// An empty PATH entry means the working directory; skip it.
			continue
		}
		for _, candidate := range l.candidates(name) {
			full := filepath.Join(dir, candidate)
			if l.isExecutable(full) {
				return full, true
			}
		}
	}
	return "", false
}

func (l *PathLocator) candidates(name string) []string {
	if !l.Windows {
		return []string{name}
	}

	// Names that already carry a known extension are tried verbatim first.
	out := []string{name}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range l.Exts {
		if ext == e {
			return out
		}
	}
	for _, e := range l.Exts {
		out = append(out, name+e)
	}
	return out
}

func (l *PathLocator) isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if l.Windows {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func splitPathExt(v string) []string {
	if v == "" {
		v = ".com;.exe;.bat;.cmd"
	}
	var exts []string
	for _, e := range strings.Split(v, ";") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}
