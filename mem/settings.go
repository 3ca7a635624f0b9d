package mem

import (
	"sync"

	"bsid.es/despertador"
)

// Settings is an in-memory despertador.Settings.
type Settings struct {
	mu   sync.Mutex
	data map[string]map[string]string

	// Err, when set, fails every Set without writing anything.
	Err error
}

func NewSettings() *Settings {
	return &Settings{data: make(map[string]map[string]string)}
}

var _ despertador.Settings = (*Settings)(nil)

func (s *Settings) Get(namespace, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[namespace][key]
	return v, ok, nil
}

func (s *Settings) Set(namespace string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string, len(values))
		s.data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = v
	}
	return nil
}
