package journal

import (
	"time"

	"github.com/google/uuid"
)

// Service records session activity for display.
//
// IMPORTANT:
// - Journaling is best-effort; callers must never let a journal problem block
//   call control.
type Service struct {
	repo  *MemoryRepo
	clock func() time.Time
}

func NewService(repo *MemoryRepo) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Record(kind Kind, callID, message string) {
	s.repo.Append(Entry{
		ID:      uuid.NewString(),
		Kind:    kind,
		CallID:  callID,
		Message: message,
		At:      s.clock(),
	})
}

// Recent returns up to n entries, newest last.
func (s *Service) Recent(n int) []Entry {
	all := s.repo.Entries()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
