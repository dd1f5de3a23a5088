package dataset

import (
	"sync"
	"time"
)

// Snapshot 某一时刻加载完成的一对表
type Snapshot struct {
	Hourly   HourlyTable
	Daily    DailyTable
	LoadedAt time.Time
	Source   string
}

// Store 保存当前数据表并提供线程安全访问。
// 重新加载时整体替换，读者只会看到旧的一对或新的一对。
type Store struct {
	snap Snapshot
	mu   sync.RWMutex
}

func NewStore() *Store {
	return &Store{}
}

// Get 获取当前快照(线程安全)
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Set 替换当前快照(线程安全)
func (s *Store) Set(hourly HourlyTable, daily DailyTable, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		Hourly:   hourly,
		Daily:    daily,
		LoadedAt: time.Now(),
		Source:   source,
	}
}

// Loaded 是否已有数据
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.snap.LoadedAt.IsZero()
}
