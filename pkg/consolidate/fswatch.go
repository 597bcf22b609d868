package consolidate

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fadhlan/unilog/pkg/classify"
)

// fsWatcher wakes the watch loop when a stray session-log file appears or
// grows, ahead of the next poll tick. It is best-effort: missed events are
// covered by polling.
type fsWatcher struct {
	watcher     *fsnotify.Watcher
	canonicalID uuid.UUID
	kick        chan<- struct{}
	logger      zerolog.Logger
	done        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newFSWatcher(dir string, canonicalID uuid.UUID, kick chan<- struct{}, logger zerolog.Logger) (*fsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	w := &fsWatcher{
		watcher:     watcher,
		canonicalID: canonicalID,
		kick:        kick,
		logger:      logger,
		done:        make(chan struct{}),
	}

	w.wg.Add(1)
	go w.eventLoop()

	return w, nil
}

func (w *fsWatcher) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	w.watcher.Close()
	w.wg.Wait()
}

func (w *fsWatcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *fsWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	id, ok := classify.ParseID(filepath.Base(event.Name))
	if !ok || id == w.canonicalID {
		return
	}

	// Coalesce: one pending wake-up is enough, the sweep lists everything.
	select {
	case w.kick <- struct{}{}:
	default:
	}
}
