package testutil

import (
	"context"
	"sync"

	"reydbot/internal/account"
	"reydbot/internal/domain"
)

// SentPayload is one recorded FakeClient.Send call
type SentPayload struct {
	Peer    account.Entity
	Payload *domain.Payload
}

// FakeClient is a scriptable account.Client
type FakeClient struct {
	ResolveFunc func(ctx context.Context, target account.Target) (account.Entity, error)
	JoinFunc    func(ctx context.Context, target account.Target, entity account.Entity) (account.Entity, error)
	AdminsFunc  func(ctx context.Context, chat account.Entity) ([]account.Member, error)
	MembersFunc func(ctx context.Context, chat account.Entity, limit int) ([]account.Member, error)
	HistoryFunc func(ctx context.Context, chat account.Entity, depth int) ([]account.Member, error)
	SendFunc    func(ctx context.Context, peer account.Entity, payload *domain.Payload) error
	ClickFunc   func(ctx context.Context, msg account.Message, row, col int) error

	mu           sync.Mutex
	sent         []SentPayload
	clicks       int
	handlers     []account.MessageHandler
	disconnected bool
}

var _ account.Client = (*FakeClient)(nil)

func (c *FakeClient) Resolve(ctx context.Context, target account.Target) (account.Entity, error) {
	if c.ResolveFunc != nil {
		return c.ResolveFunc(ctx, target)
	}
	if target.IsInvite() {
		return account.Entity{Kind: account.KindChannel, Title: target.InviteHash}, nil
	}
	return account.Entity{ID: int64(len(target.Username)), Kind: account.KindUser, Username: target.Username, Title: "@" + target.Username}, nil
}

func (c *FakeClient) Join(ctx context.Context, target account.Target, entity account.Entity) (account.Entity, error) {
	if c.JoinFunc != nil {
		return c.JoinFunc(ctx, target, entity)
	}
	return entity, nil
}

func (c *FakeClient) Admins(ctx context.Context, chat account.Entity) ([]account.Member, error) {
	if c.AdminsFunc != nil {
		return c.AdminsFunc(ctx, chat)
	}
	return nil, nil
}

func (c *FakeClient) Members(ctx context.Context, chat account.Entity, limit int) ([]account.Member, error) {
	if c.MembersFunc != nil {
		return c.MembersFunc(ctx, chat, limit)
	}
	return nil, nil
}

func (c *FakeClient) History(ctx context.Context, chat account.Entity, depth int) ([]account.Member, error) {
	if c.HistoryFunc != nil {
		return c.HistoryFunc(ctx, chat, depth)
	}
	return nil, nil
}

func (c *FakeClient) Send(ctx context.Context, peer account.Entity, payload *domain.Payload) error {
	if c.SendFunc != nil {
		if err := c.SendFunc(ctx, peer, payload); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, SentPayload{Peer: peer, Payload: payload})
	return nil
}

func (c *FakeClient) Click(ctx context.Context, msg account.Message, row, col int) error {
	if c.ClickFunc != nil {
		if err := c.ClickFunc(ctx, msg, row, col); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicks++
	return nil
}

func (c *FakeClient) OnMessage(handler account.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

func (c *FakeClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

// Emit delivers msg to every subscribed handler
func (c *FakeClient) Emit(ctx context.Context, msg account.Message) {
	c.mu.Lock()
	handlers := append([]account.MessageHandler(nil), c.handlers...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(ctx, msg)
	}
}

// Sent returns the successful Send calls
func (c *FakeClient) Sent() []SentPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentPayload(nil), c.sent...)
}

// Clicks returns the number of successful clicks
func (c *FakeClient) Clicks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clicks
}

// Handlers returns the number of subscriptions
func (c *FakeClient) Handlers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

// Disconnected reports whether Disconnect was called
func (c *FakeClient) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// FakeDialer is a scriptable account.Dialer
type FakeDialer struct {
	// Client is returned by default from Login and Connect
	Client      *FakeClient
	LoginFunc   func(ctx context.Context, phone string, prompter account.Prompter) (account.Client, string, error)
	ConnectFunc func(ctx context.Context, credential string) (account.Client, error)
}

var _ account.Dialer = (*FakeDialer)(nil)

// Login asks for the code by default and returns Client with credential "cred:"+phone
func (d *FakeDialer) Login(ctx context.Context, phone string, prompter account.Prompter) (account.Client, string, error) {
	if d.LoginFunc != nil {
		return d.LoginFunc(ctx, phone, prompter)
	}
	if _, err := prompter.Code(ctx); err != nil {
		return nil, "", err
	}
	return d.client(), "cred:" + phone, nil
}

func (d *FakeDialer) Connect(ctx context.Context, credential string) (account.Client, error) {
	if d.ConnectFunc != nil {
		return d.ConnectFunc(ctx, credential)
	}
	return d.client(), nil
}

func (d *FakeDialer) client() *FakeClient {
	if d.Client == nil {
		d.Client = &FakeClient{}
	}
	return d.Client
}
