package store

import "time"

// DefaultCommitDelay is how long markDirty waits before flushing pending writes.
const DefaultCommitDelay = 3 * time.Second

// Scheduler arms one-shot timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler fires f through Post so the commit runs on the goroutine that owns the archive.
// A nil Post calls f on the timer goroutine.
type TimerScheduler struct {
	Post func(func())
}

func (s TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, func() {
		if s.Post != nil {
			s.Post(f)
			return
		}
		f()
	})
}
