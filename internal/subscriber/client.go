// Package subscriber implements the viewer side of the broadcast layer:
// connection lifecycle, channel membership, event de-duplication and
// reconnect handling for one connected client.
package subscriber

import (
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
)

// Options configures a Client.
type Options struct {
	// Role decides whether internal-note events are delivered.
	Role domain.ActorRole
	// OnEvent receives every accepted event, in per-channel publish order.
	OnEvent func(events.Event)
	// OnResync fires once per reconnect; the owner should refetch state
	// it cares about since missed events are never redelivered.
	OnResync func()
}

type commentFingerprint struct {
	timestamp int64
	author    string
	content   string
}

// Client is one connected viewer's attachment to the broadcaster. It is
// safe for concurrent use.
type Client struct {
	broadcaster events.Broadcaster
	opts        Options

	mu       sync.Mutex
	subs     map[string]*events.Subscription
	seenIDs  map[string]struct{}
	seenBody map[commentFingerprint]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewClient builds a client with no channel memberships.
func NewClient(b events.Broadcaster, opts Options) *Client {
	return &Client{
		broadcaster: b,
		opts:        opts,
		subs:        make(map[string]*events.Subscription),
		seenIDs:     make(map[string]struct{}),
		seenBody:    make(map[commentFingerprint]struct{}),
	}
}

// JoinDepartment subscribes to a department's list-level events.
func (c *Client) JoinDepartment(dept domain.Department) {
	c.join(events.DepartmentChannel(dept))
}

// JoinTicket subscribes to a ticket's detail-level events, called when
// the detail view opens.
func (c *Client) JoinTicket(ticketID string) {
	c.join(events.TicketChannel(ticketID))
}

// LeaveTicket drops a ticket channel, called when navigating away. A
// no-op with respect to server state and other subscribers.
func (c *Client) LeaveTicket(ticketID string) {
	c.leave(events.TicketChannel(ticketID))
}

// Channels returns the currently joined channel names.
func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.subs))
	for name := range c.subs {
		names = append(names, name)
	}
	return names
}

// MarkLocalComment records a comment the client just posted optimistically
// so the echoed broadcast event is not rendered twice.
func (c *Client) MarkLocalComment(comment domain.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if comment.ID != "" {
		c.seenIDs[comment.ID] = struct{}{}
	}
	c.seenBody[fingerprintOf(comment.CreatedAt, comment.AuthorName, comment.Body)] = struct{}{}
}

// Reconnect re-establishes every joined channel after a connection loss
// and fires the resync callback once. Events published while disconnected
// are gone; the owner must treat local state as possibly stale.
func (c *Client) Reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	channels := make([]string, 0, len(c.subs))
	for name, sub := range c.subs {
		channels = append(channels, name)
		sub.Close()
	}
	c.subs = make(map[string]*events.Subscription)
	for _, name := range channels {
		c.subscribeLocked(name)
	}
	resync := c.opts.OnResync
	c.mu.Unlock()

	if resync != nil {
		resync()
	}
}

// Close leaves all channels and stops delivery.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, sub := range c.subs {
		sub.Close()
	}
	c.subs = make(map[string]*events.Subscription)
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Client) join(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.subs[channel]; ok {
		return
	}
	c.subscribeLocked(channel)
}

func (c *Client) subscribeLocked(channel string) {
	sub := c.broadcaster.Subscribe(channel)
	c.subs[channel] = sub
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for event := range sub.C {
			c.handle(event)
		}
	}()
}

func (c *Client) leave(channel string) {
	c.mu.Lock()
	sub, ok := c.subs[channel]
	if ok {
		delete(c.subs, channel)
	}
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

func (c *Client) handle(event events.Event) {
	if event.Internal && !c.opts.Role.IsStaff() {
		return
	}
	if event.Type == events.EventCommentAdded && c.isDuplicateComment(event) {
		return
	}
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(event)
	}
}

// isDuplicateComment discards a comment event whose comment id is already
// known locally, or whose (timestamp, author, content) matches an existing
// local comment posted optimistically.
func (c *Client) isDuplicateComment(event events.Event) bool {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return false
	}
	fp := fingerprintOf(payload.CreatedAt, payload.AuthorName, payload.Body)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.seenIDs[payload.CommentID]; seen {
		return true
	}
	if _, seen := c.seenBody[fp]; seen {
		return true
	}
	c.seenIDs[payload.CommentID] = struct{}{}
	c.seenBody[fp] = struct{}{}
	return false
}

func fingerprintOf(ts time.Time, author, content string) commentFingerprint {
	return commentFingerprint{
		timestamp: ts.UnixNano(),
		author:    author,
		content:   content,
	}
}
