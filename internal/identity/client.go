package identity

import (
	"context"
	"sync"
)

// Client is one tab's handle on the provider. It remembers the current
// access token the way a browser client keeps it in local storage.
type Client struct {
	svc *Service
	id  string // tab id, or a random id for an untabbed client

	mu        sync.RWMutex
	token     string
	sessionID string
}

// AccessToken returns the token the client currently holds
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SessionID returns the id of the session behind the held token, if any
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// GetSession fetches the client's current session, nil when signed out
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	return c.svc.GetSession(ctx, c.AccessToken())
}

// GetUser fetches the identity behind the current session
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	return c.svc.GetUser(ctx, c.AccessToken())
}

// SignUp registers a new identity. The client's own session is untouched.
func (c *Client) SignUp(ctx context.Context, email, password string, meta Metadata) (*User, error) {
	return c.svc.SignUp(ctx, email, password, meta)
}

// SignInWithPassword signs in and adopts the new session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	sess, err := c.svc.signIn(ctx, email, password, c.id)
	if err != nil {
		return nil, err
	}
	c.adopt(sess.AccessToken, sess.ID)
	return sess, nil
}

// SignOut ends the current session and forgets the token
func (c *Client) SignOut(ctx context.Context) error {
	token := c.AccessToken()
	if token == "" {
		return nil
	}
	if err := c.svc.signOut(ctx, token, c.id); err != nil {
		return err
	}
	c.adopt("", "")
	return nil
}

// Refresh extends the current session and adopts the new token
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	sess, err := c.svc.refresh(ctx, c.AccessToken(), c.id)
	if err != nil {
		return nil, err
	}
	c.adopt(sess.AccessToken, sess.ID)
	return sess, nil
}

// OnAuthStateChange subscribes fn to changes that concern this client:
// events caused from its tab and events for the session it holds. The returned
// function cancels the subscription and is safe to call more than once.
func (c *Client) OnAuthStateChange(fn func(Event)) (unsubscribe func()) {
	return c.svc.Subscribe(func(ev Event) {
		if !c.concerns(ev) {
			return
		}
		switch {
		case ev.Session != nil:
			c.adopt(ev.Session.AccessToken, ev.Session.ID)
		case ev.Type == EventSignedOut:
			c.adopt("", "")
		}
		fn(ev)
	})
}

func (c *Client) concerns(ev Event) bool {
	if ev.origin == c.id {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID != "" && ev.SessionID == c.sessionID
}

func (c *Client) adopt(token, sessionID string) {
	c.mu.Lock()
	c.token = token
	c.sessionID = sessionID
	c.mu.Unlock()
}
