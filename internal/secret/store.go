package secret

// SecretStore is a read-only lookup of secrets by key. The keychain is the
// local implementation; tests substitute a map.
type SecretStore interface {
	// Get retrieves the secret value for the given key.
	// Returns nil and a nil error if key does not exist.
	Get(key string) ([]byte, error)
}

// MapStore is an in-memory SecretStore.
type MapStore map[string]string

func (m MapStore) Get(key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}
