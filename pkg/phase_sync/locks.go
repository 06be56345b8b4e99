package phase_sync

import "sync"

// phaseLocks hands out one mutex per phase id. Entries are dropped once no
// goroutine holds or waits for them.
type phaseLocks struct {
	mu    sync.Mutex
	locks map[int]*phaseLock
}

type phaseLock struct {
	mu   sync.Mutex
	refs int
}

func newPhaseLocks() *phaseLocks {
	return &phaseLocks{locks: map[int]*phaseLock{}}
}

func (l *phaseLocks) lock(phaseId int) (unlock func()) {
	l.mu.Lock()
	pl, ok := l.locks[phaseId]
	if !ok {
		pl = &phaseLock{}
		l.locks[phaseId] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, phaseId)
		}
		l.mu.Unlock()
	}
}

func (l *phaseLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
