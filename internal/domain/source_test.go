package domain

import "testing"

func TestSourcePriority(t *testing.T) {
	for i, s := range SourcePriority {
		if got := s.Priority(); got != i {
			t.Errorf("%s.Priority() = %d, want %d", s, got, i)
		}
	}
	if got := Source("unknown").Priority(); got != -1 {
		t.Errorf("unknown source priority = %d, want -1", got)
	}
}
