package transaction

import "sync"

// TxNumberSource hands out unique transaction numbers, starting at 1.
// The engine owns one and shares it across all transactions. After
// recovery the counter is reseeded past the highest number found in the
// log, so post-restart numbering never collides with surviving records.
type TxNumberSource struct {
	mu   sync.Mutex
	next int
}

func NewTxNumberSource() *TxNumberSource {
	return &TxNumberSource{next: 1}
}

func (s *TxNumberSource) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return n
}

// Reseed moves the counter past the given transaction number. A value
// lower than what has already been handed out is ignored.
func (s *TxNumberSource) Reseed(highest int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if highest+1 > s.next {
		s.next = highest + 1
	}
}
