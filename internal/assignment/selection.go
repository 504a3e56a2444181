package assignment

// Selection is an ordered set of classroom ids.
type Selection struct {
	ids   []string
	index map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{index: make(map[string]struct{})}
}

// Toggle adds id if absent and removes it if present. It reports whether id
// is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.index[id]; ok {
		delete(s.index, id)
		for i, v := range s.ids {
			if v == id {
				s.ids = append(s.ids[:i], s.ids[i+1:]...)
				break
			}
		}
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

func (s *Selection) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selection in the order ids were added.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
