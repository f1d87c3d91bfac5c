package pipeline

import (
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// collectionLocks serializes runs per collection: a clean-delete must never
// interleave with an in-flight upsert from another run against the same
// collection. In-process runs share a mutex table; when a lock directory is
// configured, an advisory file lock extends the guarantee across processes.
type collectionLocks struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	lockDir string
}

func newCollectionLocks(lockDir string) *collectionLocks {
	return &collectionLocks{
		locks:   make(map[string]*sync.Mutex),
		lockDir: lockDir,
	}
}

// acquire blocks until the collection is exclusively held and returns the
// release function.
func (c *collectionLocks) acquire(collection string) (release func(), err error) {
	c.mu.Lock()
	lock, ok := c.locks[collection]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[collection] = lock
	}
	c.mu.Unlock()

	lock.Lock()

	if c.lockDir == "" {
		return lock.Unlock, nil
	}

	fileLock := flock.New(filepath.Join(c.lockDir, "indexpipe-"+collection+".lock"))
	if err := fileLock.Lock(); err != nil {
		lock.Unlock()
		return nil, err
	}

	return func() {
		_ = fileLock.Unlock()
		lock.Unlock()
	}, nil
}
