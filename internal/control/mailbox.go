package control

import (
	"sync/atomic"

	"github.com/sweeney/fridge-controller/internal/logic"
)

// Mailbox hands settings changes from asynchronous inputs to the control loop.
// It holds at most one request; a newer Post replaces an unread one. Post is
// safe from any goroutine; only the control loop calls Take.
type Mailbox struct {
	slot atomic.Pointer[logic.Settings]
}

// Post queues a settings change request.
func (m *Mailbox) Post(s logic.Settings) {
	m.slot.Store(&s)
}

// Take removes and returns the pending request, if any.
func (m *Mailbox) Take() (logic.Settings, bool) {
	p := m.slot.Swap(nil)
	if p == nil {
		return logic.Settings{}, false
	}
	return *p, true
}
