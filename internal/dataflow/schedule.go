package dataflow

// Schedule is the runtime work-list: a FIFO of node ids with set
// semantics. An id that is already pending is not appended again.
//
// Ids are small dense non-negative integers (arena indices), so membership
// is tracked with a flat bool slice rather than a map.
//
// Not safe for concurrent use. The graph is driven from a single goroutine.
type Schedule struct {
	order   []int
	pending []bool
}

// NewSchedule returns an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{order: make([]int, 0, 16)}
}

// Insert appends id to the back of the schedule unless it is already
// pending. Returns true if the id was added.
func (s *Schedule) Insert(id int) bool {
	if id < len(s.pending) && s.pending[id] {
		return false
	}
	for id >= len(s.pending) {
		s.pending = append(s.pending, false)
	}
	s.pending[id] = true
	s.order = append(s.order, id)
	return true
}

// Pop removes and returns the front id.
// Returns (0, false) if the schedule is empty.
func (s *Schedule) Pop() (int, bool) {
	if len(s.order) == 0 {
		return 0, false
	}

	id := s.order[0]
	s.pending[id] = false

	// Reset when drained so the backing array is reused instead of
	// creeping forward.
	if len(s.order) == 1 {
		s.order = s.order[:0]
	} else {
		s.order = s.order[1:]
	}
	return id, true
}

// Pending reports whether id is currently in the schedule.
func (s *Schedule) Pending(id int) bool {
	return id >= 0 && id < len(s.pending) && s.pending[id]
}

// Len returns the number of pending ids.
func (s *Schedule) Len() int {
	return len(s.order)
}
