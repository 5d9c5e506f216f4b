package keys

import "sync/atomic"

// State holds the key material once it is ready. The zero value is NotReady.
type State struct {
	m atomic.Pointer[Material]
}

// Set publishes m. Later calls replace the material; the server only calls it once.
func (s *State) Set(m *Material) { s.m.Store(m) }

// Get returns the material and whether it is ready.
func (s *State) Get() (*Material, bool) {
	m := s.m.Load()
	return m, m != nil
}

func (s *State) Ready() bool { return s.m.Load() != nil }
