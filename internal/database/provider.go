package database

import "sync"

var (
	repositoryFactory func() Repository
	providerMu        sync.RWMutex
)

// RegisterRepository registers the persistence backend constructor.
// This is called by the command wiring to avoid import cycles with backend packages.
func RegisterRepository(factory func() Repository) {
	providerMu.Lock()
	defer providerMu.Unlock()
	repositoryFactory = factory
}

// GetRepository returns the registered backend, or nil if none is registered.
func GetRepository() Repository {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if repositoryFactory == nil {
		return nil
	}
	return repositoryFactory()
}

// IsInitialized returns whether a persistence backend has been registered.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return repositoryFactory != nil
}
