//go:build !windows

package store

// systemProvider opens the directory-backed FileStore at the scope's
// default root. On non-Windows platforms there is no OS certificate store
// with the semantics this tool needs, so the FileStore is the system store.
type systemProvider struct{}

// DefaultProvider returns the platform's store provider.
func DefaultProvider() Provider {
	return systemProvider{}
}

func (systemProvider) Open(scope Scope) (Store, error) {
	root, err := DefaultRoot(scope)
	if err != nil {
		return nil, err
	}
	return OpenFileStore(root)
}
