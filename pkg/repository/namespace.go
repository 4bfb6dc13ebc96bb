package repository

import "context"

type namespaced struct {
	repo   Repository
	prefix string
}

// WithNamespace prefixes every key with "<ns>/", so several profiles can share a backend
func WithNamespace(repo Repository, ns string) Repository {
	if ns == "" {
		return repo
	}
	return &namespaced{repo: repo, prefix: ns + "/"}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.repo.Get(ctx, n.prefix+key)
}

func (n *namespaced) Put(ctx context.Context, key string, data []byte) error {
	return n.repo.Put(ctx, n.prefix+key, data)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.repo.Delete(ctx, n.prefix+key)
}
