// Package input turns raw player input into vehicle control signals.
package input

import "sync"

// Flags is the latest state of every input, from keyboard or controllers.
type Flags struct {
	Forward      bool `json:"forward"`
	Backward     bool `json:"backward"`
	Left         bool `json:"left"`
	Right        bool `json:"right"`
	Brake        bool `json:"brake"`
	Reset        bool `json:"reset"`
	ResetObjects bool `json:"resetObjects"`
	Debug        bool `json:"debug"`
	LeftSqueeze  bool `json:"leftSqueeze"`
	RightSqueeze bool `json:"rightSqueeze"`
}

// Stick is a thumbstick position, each axis in [-1, 1].
type Stick struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const stickThreshold = 0.5

// MergeThumbsticks ORs the directions read from the sticks into flags:
// the left stick steers, the right stick drives (pushing up is negative Y).
func MergeThumbsticks(flags Flags, left, right Stick) Flags {
	flags.Left = flags.Left || left.X <= -stickThreshold
	flags.Right = flags.Right || left.X >= stickThreshold
	flags.Forward = flags.Forward || right.Y <= -stickThreshold
	flags.Backward = flags.Backward || right.Y >= stickThreshold
	return flags
}

// Source holds the latest published flags. Publishers may run on any
// goroutine, the frame driver reads once per frame.
type Source struct {
	mu      sync.Mutex
	flags   Flags
	version uint64
}

func NewSource() *Source {
	return &Source{}
}

func (s *Source) Publish(flags Flags) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags = flags
	s.version++
}

// Update changes some flags atomically
func (s *Source) Update(fn func(*Flags)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.flags)
	s.version++
}

func (s *Source) Latest() Flags {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flags
}

// Version counts publications
func (s *Source) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.version
}
