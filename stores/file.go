package stores

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileStore is the durable tier: a single JSON document on disk, shared by
// every process pointed at the same path. Writes are atomic (temp file plus
// rename) and external changes can be observed through Subscribe.
//
// Subscribe mirrors browser storage-event semantics: a process is notified of
// changes made by other processes, never of its own writes.
type FileStore struct {
	path string

	mu       sync.Mutex
	snapshot map[string]string

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	nextSub int
	subs    map[int]func(key, oldValue, newValue string)
	done    chan struct{}
}

// NewFileStore opens (or lazily creates) the store at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		subs: map[int]func(key, oldValue, newValue string){},
	}

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	s.snapshot = data

	return s, nil
}

// Get re-reads the file so external writes are visible immediately; the
// reconciliation loop depends on that.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false
	}
	s.snapshot = data

	val, ok := data[key]
	return val, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = value

	if err := s.save(data); err != nil {
		return err
	}
	s.snapshot = data
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		s.snapshot = data
		return nil
	}
	delete(data, key)

	if err := s.save(data); err != nil {
		return err
	}
	s.snapshot = data
	return nil
}

// Subscribe registers a listener for external changes. The returned cancel
// function unregisters it. The fsnotify watcher is started on first use.
func (s *FileStore) Subscribe(fn func(key, oldValue, newValue string)) (func(), error) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher == nil {
		if err := s.startWatcher(); err != nil {
			return nil, err
		}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.subs, id)
	}, nil
}

// Close stops the watcher. The store remains usable for Get/Set/Delete.
func (s *FileStore) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *FileStore) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory, not the file: atomic rename-replace would drop a
	// direct file watch on most platforms.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go s.watchLoop(watcher, s.done)
	return nil
}

func (s *FileStore) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	name := filepath.Base(s.path)
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.emitChanges()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// emitChanges diffs the file against the last known snapshot and notifies
// subscribers of every changed key. Our own mutations already updated the
// snapshot, so they diff to nothing and never echo back.
func (s *FileStore) emitChanges() {
	s.mu.Lock()
	current, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return
	}
	previous := s.snapshot
	s.snapshot = current

	type change struct{ key, oldValue, newValue string }
	var changes []change
	for key, newValue := range current {
		if oldValue, ok := previous[key]; !ok || oldValue != newValue {
			changes = append(changes, change{key, previous[key], newValue})
		}
	}
	for key, oldValue := range previous {
		if _, ok := current[key]; !ok {
			changes = append(changes, change{key, oldValue, ""})
		}
	}
	s.mu.Unlock()

	if len(changes) == 0 {
		return
	}

	s.watchMu.Lock()
	listeners := make([]func(string, string, string), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.watchMu.Unlock()

	for _, c := range changes {
		for _, fn := range listeners {
			fn(c.key, c.oldValue, c.newValue)
		}
	}
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		// A torn or corrupted file reads as empty rather than failing the
		// whole session.
		return map[string]string{}, nil
	}
	return data, nil
}

func (s *FileStore) save(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".authstore-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
