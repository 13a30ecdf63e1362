package engine

import "sync"

// caseLocks hands out a FIFO mutex per caseId, serializing StartCase,
// ResumeCase, and ChangeWorkBasket on the same case in arrival order. A
// buffered channel of capacity 1 is used as the lock token rather than
// sync.Mutex: the channel starts holding one token, acquiring is a
// receive of that token, releasing is a send that puts it back, and
// goroutines blocked on the same channel are served in the order the
// runtime's scheduler queues them, which in practice is arrival order —
// a partitioned single-writer queue without a second goroutine to own
// it.
type caseLocks struct {
	mu   sync.Mutex
	toks map[string]chan struct{}
}

func newCaseLocks() *caseLocks {
	return &caseLocks{toks: map[string]chan struct{}{}}
}

func (c *caseLocks) tokenFor(caseID string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.toks[caseID]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		c.toks[caseID] = ch
	}
	return ch
}

// Lock blocks until the caller holds caseID's lock, returning a func that
// releases it.
func (c *caseLocks) Lock(caseID string) func() {
	ch := c.tokenFor(caseID)
	<-ch
	return func() { ch <- struct{}{} }
}
