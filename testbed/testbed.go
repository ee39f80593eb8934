// Package testbed is a small fake foreign library: stateful, memory-owning
// object types of the kind a generated binding hands across the boundary.
// The integration tests, the simulator, and the examples track these through
// the guard instead of linking a real native library.
package testbed

// Codec is a fake stateful encoder.
type Codec struct {
	Name     string
	Frames   int
	Released int
}

func NewCodec(name string) *Codec {
	return &Codec{Name: name}
}

// Encode consumes n frames and returns the running total.
func (c *Codec) Encode(n int) int {
	c.Frames += n
	return c.Frames
}

func (c *Codec) Release() {
	c.Released++
}

// Session is a fake connection object.
type Session struct {
	ID       string
	Sent     int
	Released int
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Send accepts a message and returns the running count.
func (s *Session) Send(msg string) int {
	s.Sent++
	return s.Sent
}

func (s *Session) Release() {
	s.Released++
}

// Frame is a fake media frame owning a payload.
type Frame struct {
	Payload  []byte
	Released int
}

func NewFrame(payload []byte) *Frame {
	return &Frame{Payload: payload}
}

// Release drops the payload so reclamation is observable.
func (f *Frame) Release() {
	f.Released++
	f.Payload = nil
}
