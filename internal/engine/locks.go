package engine

import "sync"

// documentLocks serializes writers per document. Writers to different
// documents never contend. Entries are reference counted and removed when
// the last holder releases.
type documentLocks struct {
	mu    sync.Mutex
	locks map[string]*documentLock
}

type documentLock struct {
	mu   sync.Mutex
	refs int
}

func newDocumentLocks() *documentLocks {
	return &documentLocks{locks: make(map[string]*documentLock)}
}

// lock acquires the write lock for documentID and returns its release func.
func (l *documentLocks) lock(documentID string) func() {
	l.mu.Lock()
	dl, ok := l.locks[documentID]
	if !ok {
		dl = &documentLock{}
		l.locks[documentID] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()
	return func() {
		dl.mu.Unlock()
		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, documentID)
		}
		l.mu.Unlock()
	}
}

// lockAll acquires the locks of several documents in sorted order so two
// multi-document writers cannot deadlock.
func (l *documentLocks) lockAll(documentIDs []string) func() {
	ids := sortedUnique(documentIDs)
	releases := make([]func(), 0, len(ids))
	for _, id := range ids {
		releases = append(releases, l.lock(id))
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

// held reports how many documents currently have a lock entry.
func (l *documentLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
