// Package host is the boundary between the retargeting core and the application embedding it.
package host

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/status"
)

type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "info"
}

// Host is provided by the embedding application. The core never touches UI or files directly.
type Host interface {
	ShowNotification(level Level, message string)
	// OpenFileDialog lets the user pick files with one of the extensions, e.g. ".glb".
	OpenFileDialog(extensions []string) ([]string, error)
	ReadFile(path string) ([]byte, error)
	SaveFile(name string, data []byte) (string, error)
}

// Local serves files from a directory and sends notifications to a status hub.
type Local struct {
	Dir string
	Hub *status.Hub
}

func NewLocal(dir string, hub *status.Hub) *Local {
	return &Local{Dir: dir, Hub: hub}
}

func (l *Local) ShowNotification(level Level, message string) {
	entry := log.WithField("level", level.String())
	switch level {
	case Error:
		entry.Error(message)
	case Warning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
	if l.Hub == nil {
		return
	}
	switch level {
	case Error:
		l.Hub.Error("%s", message)
	case Warning:
		l.Hub.Warning("%s", message)
	default:
		l.Hub.Info("%s", message)
	}
}

// resolve keeps relative paths inside Dir.
func (l *Local) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", diag.Errorf(diag.InvalidInput, "path %q leaves %q", path, l.Dir)
	}
	return filepath.Join(l.Dir, clean), nil
}

// OpenFileDialog lists matching files of Dir, relative and sorted.
func (l *Local) OpenFileDialog(extensions []string) ([]string, error) {
	var res []string
	err := filepath.Walk(l.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !matches(path, extensions) {
			return nil
		}
		rel, err := filepath.Rel(l.Dir, path)
		if err != nil {
			return err
		}
		res = append(res, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "list %q: %v", l.Dir, err)
	}
	sort.Strings(res)
	return res, nil
}

func matches(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (l *Local) ReadFile(path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "read %q: %v", path, err)
	}
	return data, nil
}

// SaveFile writes data under Dir and returns the full path.
func (l *Local) SaveFile(name string, data []byte) (string, error) {
	full, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", diag.Errorf(diag.IOAdjacent, "save %q: %v", name, err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", diag.Errorf(diag.IOAdjacent, "save %q: %v", name, err)
	}
	return full, nil
}
