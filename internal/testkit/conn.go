// Package testkit provides in-memory doubles for gateway tests.
package testkit

import (
	"fmt"
	"sync"

	"github.com/openquiz/quizgate/pkg/errors"
	"github.com/openquiz/quizgate/pkg/ws"
)

// FakeConn is an in-memory ws.Conn. Tests drive it by calling Receive and
// Close the way a transport read loop would.
type FakeConn struct {
	id string

	mu         sync.Mutex
	sent       []interface{}
	sendErr    error
	closed     bool
	closeCodes []int
	msgSubs    []*ws.Subscription
	closeSubs  []*ws.Subscription
}

var (
	fakeSeqMu sync.Mutex
	fakeSeq   int
)

// NewFakeConn creates a fake connection with a unique ID.
func NewFakeConn() *FakeConn {
	fakeSeqMu.Lock()
	fakeSeq++
	n := fakeSeq
	fakeSeqMu.Unlock()
	return &FakeConn{id: fmt.Sprintf("fake-conn-%d", n)}
}

func (c *FakeConn) ID() string { return c.id }

func (c *FakeConn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrConnectionClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *FakeConn) ForceClose(code int, _ string) {
	c.mu.Lock()
	c.closeCodes = append(c.closeCodes, code)
	c.closed = true
	subs := c.closeSubs
	c.closeSubs = nil
	c.mu.Unlock()
	for _, s := range subs {
		s.FireClose()
	}
}

func (c *FakeConn) OnMessage(fn func(data []byte)) *ws.Subscription {
	sub := ws.NewMessageSubscription(fn)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgSubs = append(c.msgSubs, sub)
	return sub
}

func (c *FakeConn) OnceClose(fn func()) *ws.Subscription {
	sub := ws.NewCloseSubscription(fn)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeSubs = append(c.closeSubs, sub)
	return sub
}

func (c *FakeConn) DetachAll() {
	c.mu.Lock()
	msgSubs := c.msgSubs
	closeSubs := c.closeSubs
	c.msgSubs = nil
	c.closeSubs = nil
	c.mu.Unlock()
	for _, s := range msgSubs {
		s.Cancel()
	}
	for _, s := range closeSubs {
		s.Cancel()
	}
}

// Receive simulates an inbound client message.
func (c *FakeConn) Receive(data []byte) {
	c.mu.Lock()
	subs := make([]*ws.Subscription, len(c.msgSubs))
	copy(subs, c.msgSubs)
	c.mu.Unlock()
	for _, s := range subs {
		if s.Active() {
			s.Deliver(data)
		}
	}
}

// Close simulates the transport reporting a closed connection.
func (c *FakeConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.closeSubs
	c.closeSubs = nil
	c.mu.Unlock()
	for _, s := range subs {
		s.FireClose()
	}
}

// FailSends makes every subsequent Send return err.
func (c *FakeConn) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Sent returns a copy of everything sent so far.
func (c *FakeConn) Sent() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.sent))
	copy(out, c.sent)
	return out
}

// CloseCodes returns the application codes from ForceClose calls.
func (c *FakeConn) CloseCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.closeCodes))
	copy(out, c.closeCodes)
	return out
}

// Closed reports whether the connection is closed.
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
