package engine

// LikeState tracks one item's like count on this device. The displayed
// count is derived from the last synced server count and the local deltas.
type LikeState struct {
	ServerCount int64
	Confirmed   int64
	InFlight    int64
}

// Displayed is the count to show, never negative.
func (s LikeState) Displayed() int64 {
	total := s.ServerCount + s.Confirmed + s.InFlight
	if total < 0 {
		return 0
	}
	return total
}

// Begin records a toggle that has been sent but not acknowledged.
func (s *LikeState) Begin(delta int64) {
	s.InFlight += delta
}

// Commit folds the in-flight delta into the confirmed delta.
func (s *LikeState) Commit() {
	s.Confirmed += s.InFlight
	s.InFlight = 0
}

// Rollback drops the in-flight delta.
func (s *LikeState) Rollback() {
	s.InFlight = 0
}

// Resync adopts a fresh server count. Confirmed deltas are already part of
// it; an in-flight delta is kept until it settles.
func (s *LikeState) Resync(server int64) {
	s.ServerCount = server
	s.Confirmed = 0
}
