package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rina-go/rinad/internal/logger"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/spf13/viper"
)

func viperForFile(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	return v
}

// DIFConfigWatcher watches the on-disk DIF profile file and notifies a
// callback when it changes, mirroring an IPCM operator pushing
// update_dif_config after editing a DIF's Data-Transfer Constants.
//
// Thread safety: Start spawns one goroutine that owns the fsnotify watcher;
// Stop is safe to call from any goroutine, any number of times.
type DIFConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*dtconst.DataTransferConstants)

	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}
}

// NewDIFConfigWatcher creates a watcher for the DIF profile file at path.
// onChange is invoked with the newly parsed constants each time the file
// is written.
func NewDIFConfigWatcher(path string, onChange func(*dtconst.DataTransferConstants)) (*DIFConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	return &DIFConfigWatcher{
		path:     path,
		watcher:  w,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start begins watching for file change events in a background goroutine.
// It runs until the context is cancelled or Stop is called.
func (w *DIFConfigWatcher) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.reload()
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("DIF config watcher error", logger.Err(err))
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *DIFConfigWatcher) reload() {
	var dif struct {
		DIF dtconst.DataTransferConstants `mapstructure:"dif" yaml:"dif"`
	}
	v := viperForFile(w.path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("DIF config watcher: failed to re-read config file", logger.Err(err))
		return
	}
	if err := v.Unmarshal(&dif, viper.DecodeHook(configDecodeHooks())); err != nil {
		logger.Warn("DIF config watcher: failed to decode DIF block", logger.Err(err))
		return
	}
	dtconst.ApplyDefaults(&dif.DIF)
	logger.Info("DIF profile reloaded from disk", "path", w.path)
	if w.onChange != nil {
		w.onChange(&dif.DIF)
	}
}

// Stop terminates the watcher goroutine and releases the underlying
// fsnotify watcher. Safe to call multiple times.
func (w *DIFConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.stopped
		w.watcher.Close()
	})
}
