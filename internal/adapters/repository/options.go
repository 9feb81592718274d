package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithItems preloads the store. Later items win on duplicate keys.
func WithItems(items ...TodoItem) Option {
	return func(s *MemoryStore) {
		for _, item := range items {
			s.items[item.Key] = item
		}
	}
}
