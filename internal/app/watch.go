package app

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// textureWatcher reports texture files that change on disk. Changed paths
// are queued for the loop thread; the queue drops when full.
type textureWatcher struct {
	base    string
	log     *zap.Logger
	watcher *fsnotify.Watcher
	changed chan string
	done    chan struct{}
}

func watchTextures(base string, log *zap.Logger) (*textureWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	tw := &textureWatcher{
		base:    filepath.Clean(base),
		log:     log,
		watcher: w,
		changed: make(chan string, 64),
		done:    make(chan struct{}),
	}

	// fsnotify does not recurse
	err = filepath.WalkDir(tw.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, err
	}

	go tw.run()
	return tw, nil
}

func (tw *textureWatcher) run() {
	defer close(tw.done)
	for {
		select {
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case tw.changed <- filepath.Clean(event.Name):
			default:
				tw.log.Debug("texture change dropped", zap.String("path", event.Name))
			}
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			tw.log.Warn("texture watcher", zap.Error(err))
		}
	}
}

// pending returns the distinct paths changed since the last call.
func (tw *textureWatcher) pending() []string {
	var paths []string
	seen := make(map[string]bool)
	for {
		select {
		case p := <-tw.changed:
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		default:
			return paths
		}
	}
}

// resolve maps a texture source to the file it reads, or "" for sources
// that are not files under the watched directory.
func (tw *textureWatcher) resolve(src string) string {
	if strings.HasPrefix(src, "data:") || strings.Contains(src, "://") {
		return ""
	}
	return filepath.Join(tw.base, filepath.FromSlash(strings.TrimPrefix(src, "/")))
}

func (tw *textureWatcher) Close() {
	tw.watcher.Close()
	<-tw.done
}
