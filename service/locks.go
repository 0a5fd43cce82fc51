package service

import (
	"context"
	"sync"
)

// bookLocks serializes ledger writers per book within this process. Writers
// on other instances are kept honest by conditional writes.
type bookLocks struct {
	mu    sync.Mutex
	locks map[string]*bookLock
}

type bookLock struct {
	ch   chan struct{}
	refs int
}

// acquire blocks until the book's lock is held or ctx is done.
func (l *bookLocks) acquire(ctx context.Context, book string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*bookLock)
	}
	bl, ok := l.locks[book]
	if !ok {
		bl = &bookLock{ch: make(chan struct{}, 1)}
		l.locks[book] = bl
	}
	bl.refs++
	l.mu.Unlock()

	select {
	case bl.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(book, bl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-bl.ch
			l.drop(book, bl)
		})
	}, nil
}

func (l *bookLocks) drop(book string, bl *bookLock) {
	l.mu.Lock()
	bl.refs--
	if bl.refs == 0 {
		delete(l.locks, book)
	}
	l.mu.Unlock()
}

// held reports how many books currently have a lock entry.
func (l *bookLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
