package preset

import (
	"log"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Source provides the current bank and change notifications
type Source interface {
	Bank() *Bank
	Subscribe(fn func(*Bank))
}

// Static is a Source that never changes
type Static struct {
	bank *Bank
}

// NewStatic wraps a fixed bank
func NewStatic(b *Bank) *Static {
	return &Static{bank: b}
}

func (s *Static) Bank() *Bank            { return s.bank }
func (s *Static) Subscribe(func(*Bank)) {}

// DefaultDebounce coalesces editor write bursts into one reload
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a bank file on change and keeps the last good bank
type Watcher struct {
	path     string
	debounce time.Duration

	bank    atomic.Pointer[Bank]
	reloads atomic.Uint64
	failed  atomic.Uint64

	mu      sync.Mutex
	subs    []func(*Bank)
	onError func(error)

	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWatcher loads path; the initial load must succeed
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	b, err := Load(abs)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
	}
	w.bank.Store(b)
	return w, nil
}

// SetDebounce changes the quiet period before reloading, call before Start
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Path returns the watched file
func (w *Watcher) Path() string {
	return w.path
}

// Bank returns the last successfully loaded bank
func (w *Watcher) Bank() *Bank {
	return w.bank.Load()
}

// Subscribe registers fn to receive every newly loaded bank
func (w *Watcher) Subscribe(fn func(*Bank)) {
	w.mu.Lock()
	w.subs = append(w.subs, fn)
	w.mu.Unlock()
}

// OnError sets the callback for reload failures
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	w.onError = fn
	w.mu.Unlock()
}

// Stats returns successful and failed reload counts
func (w *Watcher) Stats() (reloads, failed uint64) {
	return w.reloads.Load(), w.failed.Load()
}

// Reload loads the file now, publishing on success
func (w *Watcher) Reload() error {
	b, err := Load(w.path)

	w.mu.Lock()
	subs := slices.Clone(w.subs)
	onError := w.onError
	w.mu.Unlock()

	if err != nil {
		w.failed.Add(1)
		if onError != nil {
			onError(err)
		}
		return err
	}

	w.bank.Store(b)
	w.reloads.Add(1)
	for _, fn := range subs {
		fn(b)
	}
	return nil
}

// Start watches the file's directory; editors often replace files by rename
func (w *Watcher) Start() error {
	if !w.running.CompareAndSwap(false, true) {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.running.Store(false)
		return errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		w.running.Store(false)
		return errors.Wrapf(err, "watch %s", filepath.Dir(w.path))
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop halts watching, safe to call repeatedly
func (w *Watcher) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.stopCh)
	w.fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("preset: watch %s: %v", w.path, err)

		case <-timer.C:
			if err := w.Reload(); err != nil {
				log.Printf("preset: reload failed, keeping previous bank: %v", err)
			} else {
				log.Printf("preset: reloaded %s", w.path)
			}
		}
	}
}
