// monitor.go
package file

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// 文件通常分多次写入，最后一次事件之后静默这么久才触发回调
const defaultSettle = 500 * time.Millisecond

// FileMonitor 监听数据目录中指定文件名的变化
type FileMonitor struct {
	watchDir string
	names    map[string]bool
	watcher  *fsnotify.Watcher
	settle   time.Duration
	lastFile string
	lastMod  time.Time
	mu       sync.Mutex
}

// NewFileMonitor names 为需要关注的文件名(不含目录)
func NewFileMonitor(dir string, names ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	m := &FileMonitor{
		watchDir: dir,
		names:    make(map[string]bool, len(names)),
		watcher:  watcher,
		settle:   defaultSettle,
	}
	for _, n := range names {
		m.names[n] = true
	}
	return m, nil
}

// Watch 阻塞直到 ctx 结束；关注的文件被写入/创建/改名后调用 handler(最近变化的路径)
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	defer m.watcher.Close()

	var timer *time.Timer
	fire := make(chan string, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !m.relevant(event) {
				continue
			}

			m.mu.Lock()
			m.lastFile = event.Name
			m.lastMod = time.Now()
			m.mu.Unlock()

			name := event.Name
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.settle, func() {
				select {
				case fire <- name:
				default:
				}
			})

		case name := <-fire:
			handler(name)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if len(m.names) == 0 {
		return true
	}
	return m.names[filepath.Base(event.Name)]
}

// LastChange 最近一次关注文件的变化
func (m *FileMonitor) LastChange() (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFile, m.lastMod
}
