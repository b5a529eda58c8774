// Package observability aggregates sync-loop telemetry for logging and
// the periodic report worker.
package observability

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// SyncStats counts what the reconciliation loop has done since login.
// Counters are atomic so the sync worker and the report worker never
// contend.
type SyncStats struct {
	ticks          uint64
	pullFailures   uint64
	usersMerged    uint64
	messagesMerged uint64

	mu       sync.RWMutex
	lastPull time.Time
}

func NewSyncStats() *SyncStats {
	return &SyncStats{}
}

func (s *SyncStats) IncrTick() {
	atomic.AddUint64(&s.ticks, 1)
}

func (s *SyncStats) IncrPullFailure() {
	atomic.AddUint64(&s.pullFailures, 1)
}

func (s *SyncStats) AddUsersMerged(n int) {
	atomic.AddUint64(&s.usersMerged, uint64(n))
}

func (s *SyncStats) AddMessagesMerged(n int) {
	atomic.AddUint64(&s.messagesMerged, uint64(n))
}

func (s *SyncStats) MarkPull(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPull = at
}

// Snapshot is a consistent copy for logging.
type Snapshot struct {
	Ticks          uint64
	PullFailures   uint64
	UsersMerged    uint64
	MessagesMerged uint64
	LastPull       time.Time
}

func (s *SyncStats) Snapshot() Snapshot {
	s.mu.RLock()
	lastPull := s.lastPull
	s.mu.RUnlock()

	return Snapshot{
		Ticks:          atomic.LoadUint64(&s.ticks),
		PullFailures:   atomic.LoadUint64(&s.pullFailures),
		UsersMerged:    atomic.LoadUint64(&s.usersMerged),
		MessagesMerged: atomic.LoadUint64(&s.messagesMerged),
		LastPull:       lastPull,
	}
}

// SelfStats reads the client's own memory and CPU usage. Best-effort:
// report workers log the error and move on.
func SelfStats() (rssBytes uint64, cpuPercent float64, err error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpu, nil
}
