// Package gotd implements account.Dialer on top of the gotd MTProto client.
package gotd

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"reydbot/internal/account"
	"reydbot/internal/domain"
)

// Dialer creates gotd clients bound to in-memory session storage
type Dialer struct {
	appID   int
	appHash string
	logger  *zap.Logger
}

// NewDialer creates a new gotd dialer
func NewDialer(appID int, appHash string, logger *zap.Logger) *Dialer {
	return &Dialer{appID: appID, appHash: appHash, logger: logger}
}

var _ account.Dialer = (*Dialer)(nil)

// Login signs in with phone, asking prompter for the code and password
func (d *Dialer) Login(ctx context.Context, phone string, prompter account.Prompter) (account.Client, string, error) {
	storage := &session.StorageMemory{}
	c, err := d.start(ctx, storage)
	if err != nil {
		return nil, "", err
	}

	flow := auth.NewFlow(authenticator{phone: phone, prompter: prompter}, auth.SendCodeOptions{})
	if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
		_ = c.Disconnect()
		return nil, "", classify(errors.Wrap(err, "auth flow"))
	}

	data, err := storage.LoadSession(ctx)
	if err != nil {
		_ = c.Disconnect()
		return nil, "", errors.Wrap(err, "load session")
	}
	return c, base64.StdEncoding.EncodeToString(data), nil
}

// Connect restores a client from a credential produced by Login
func (d *Dialer) Connect(ctx context.Context, credential string) (account.Client, error) {
	data, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return nil, domain.NewAccountError(domain.ErrSessionInvalid, errors.Wrap(err, "decode credential"))
	}
	storage := &session.StorageMemory{}
	if err := storage.StoreSession(ctx, data); err != nil {
		return nil, errors.Wrap(err, "store session")
	}

	c, err := d.start(ctx, storage)
	if err != nil {
		return nil, err
	}
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		_ = c.Disconnect()
		return nil, classify(errors.Wrap(err, "auth status"))
	}
	if !status.Authorized {
		_ = c.Disconnect()
		return nil, domain.NewAccountError(domain.ErrSessionInvalid, errors.New("session is not authorized"))
	}
	return c, nil
}

// start connects a client and returns once the connection is usable.
// The connection outlives ctx and is closed by Disconnect.
func (d *Dialer) start(ctx context.Context, storage *session.StorageMemory) (*Client, error) {
	dispatcher := tg.NewUpdateDispatcher()
	client := telegram.NewClient(d.appID, d.appHash, telegram.Options{
		SessionStorage: storage,
		UpdateHandler:  &dispatcher,
		Logger:         d.logger.Named("mtproto"),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	c := newClient(client, cancel, d.logger)
	c.register(&dispatcher)

	ready := make(chan struct{})
	go func() {
		defer close(c.done)
		err := client.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("Account connection closed", zap.Error(err))
		}
		c.runErr = err
	}()

	select {
	case <-ready:
		return c, nil
	case <-c.done:
		cancel()
		return nil, classify(errors.Wrap(c.runErr, "connect"))
	case <-ctx.Done():
		cancel()
		<-c.done
		return nil, ctx.Err()
	}
}

// authenticator answers gotd auth flow questions
type authenticator struct {
	phone    string
	prompter account.Prompter
}

func (a authenticator) Phone(_ context.Context) (string, error) {
	return a.phone, nil
}

func (a authenticator) Password(ctx context.Context) (string, error) {
	pwd, err := a.prompter.Password(ctx)
	return strings.TrimSpace(pwd), err
}

func (a authenticator) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompter.Code(ctx)
}

func (a authenticator) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a authenticator) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, domain.NewAccountError(domain.ErrInvalidPhone, errors.New("phone number is not registered"))
}
