package filter

import "sync"

// SeenSet tracks announcement numbers already admitted during one job run.
// Its lifetime is scoped to a single job; a job restart begins with a fresh
// set.
type SeenSet struct {
	mu      sync.Mutex
	members map[string]struct{}
}

// NewSeenSet returns an empty identity set.
func NewSeenSet() *SeenSet {
	return &SeenSet{members: make(map[string]struct{})}
}

// Admit inserts number and reports whether it was new. The check and the
// insert are one atomic step so re-entrant acceptance checks can never admit
// the same announcement twice.
func (s *SeenSet) Admit(number string) bool {
	if number == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.members[number]; dup {
		return false
	}
	s.members[number] = struct{}{}
	return true
}

// Len returns the number of admitted identities.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}
