package bonemap

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/diag"
)

// Library stores presets as files of one directory, indexed by preset name.
type Library struct {
	Dir string

	lock    sync.RWMutex
	byName  map[string]string
	watcher *fsnotify.Watcher
	done    chan bool
}

func OpenLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, diag.Errorf(diag.IOAdjacent, "creating mapping library %q: %v", dir, err)
	}
	l := &Library{Dir: dir, byName: make(map[string]string)}
	l.Rescan()
	return l, nil
}

func isPresetFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Rescan rebuilds the name index from the directory. Unreadable files are skipped.
func (l *Library) Rescan() {
	index := make(map[string]string)
	files, err := os.ReadDir(l.Dir)
	if err != nil {
		log.Printf("[bonemap] Cannot read mapping library %q: %v", l.Dir, err)
	}
	for _, f := range files {
		if f.IsDir() || !isPresetFile(f.Name()) {
			continue
		}
		path := filepath.Join(l.Dir, f.Name())
		p, err := LoadPreset(path)
		if err != nil {
			log.Printf("[bonemap] Skipping %q: %v", path, err)
			continue
		}
		if _, exists := index[p.Name]; !exists {
			index[p.Name] = path
		}
	}

	l.lock.Lock()
	l.byName = index
	l.lock.Unlock()
}

func (l *Library) Names() []string {
	l.lock.RLock()
	defer l.lock.RUnlock()
	names := make([]string, 0, len(l.byName))
	for n := range l.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (l *Library) Load(name string) (*Preset, error) {
	l.lock.RLock()
	path, ok := l.byName[name]
	l.lock.RUnlock()
	if !ok {
		return nil, diag.Errorf(diag.IOAdjacent, "mapping preset %q not found", name)
	}
	return LoadPreset(path)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func (l *Library) fileName(name string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_.")
	if base == "" {
		base = "mapping"
	}
	return filepath.Join(l.Dir, base+".json")
}

// Save writes p over any preset of the same name.
func (l *Library) Save(p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.lock.RLock()
	path, ok := l.byName[p.Name]
	l.lock.RUnlock()
	if !ok {
		path = l.fileName(p.Name)
	}
	if err := SavePreset(path, p); err != nil {
		return err
	}
	l.lock.Lock()
	l.byName[p.Name] = path
	l.lock.Unlock()
	return nil
}

func (l *Library) Delete(name string) error {
	l.lock.Lock()
	path, ok := l.byName[name]
	delete(l.byName, name)
	l.lock.Unlock()
	if !ok {
		return diag.Errorf(diag.IOAdjacent, "mapping preset %q not found", name)
	}
	if err := os.Remove(path); err != nil {
		return diag.Errorf(diag.IOAdjacent, "removing mapping preset %q: %v", name, err)
	}
	return nil
}

// Watch keeps the index fresh while files are edited outside of the library.
func (l *Library) Watch() error {
	if l.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return diag.Errorf(diag.IOAdjacent, "creating watcher: %v", err)
	}
	if err := w.Add(l.Dir); err != nil {
		w.Close()
		return diag.Errorf(diag.IOAdjacent, "watching %q: %v", l.Dir, err)
	}
	l.watcher = w
	l.done = make(chan bool)

	go func(watch *fsnotify.Watcher, done chan bool) {
		for {
			select {
			case event, ok := <-watch.Events:
				if !ok {
					return
				}
				if !isPresetFile(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					l.Rescan()
				}
			case err, ok := <-watch.Errors:
				if !ok {
					return
				}
				log.Printf("[bonemap] watcher error: %v", err)
			case <-done:
				return
			}
		}
	}(l.watcher, l.done)
	return nil
}

func (l *Library) Close() error {
	if l.watcher == nil {
		return nil
	}
	close(l.done)
	err := l.watcher.Close()
	l.watcher = nil
	l.done = nil
	return err
}
