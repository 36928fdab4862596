package gotd

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/go-faster/errors"
	"github.com/gotd/td/crypto"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"

	"reydbot/internal/account"
	"reydbot/internal/domain"
)

const (
	participantsPage = 200
	historyPage      = 100
)

// Client is a connected gotd account
type Client struct {
	client   *telegram.Client
	api      *tg.Client
	resolver peer.Resolver
	logger   *zap.Logger

	stop   context.CancelFunc
	done   chan struct{}
	runErr error

	mu       sync.RWMutex
	handlers []account.MessageHandler
}

var _ account.Client = (*Client)(nil)

func newClient(client *telegram.Client, stop context.CancelFunc, logger *zap.Logger) *Client {
	api := client.API()
	return &Client{
		client:   client,
		api:      api,
		resolver: peer.DefaultResolver(api),
		logger:   logger,
		stop:     stop,
		done:     make(chan struct{}),
	}
}

func (c *Client) register(d *tg.UpdateDispatcher) {
	d.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.dispatch(ctx, e, u.Message)
		return nil
	})
	d.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.dispatch(ctx, e, u.Message)
		return nil
	})
}

func (c *Client) dispatch(ctx context.Context, e tg.Entities, m tg.MessageClass) {
	msg, ok := m.(*tg.Message)
	if !ok {
		return
	}
	in := account.Message{
		ID:      msg.ID,
		Chat:    entityFromPeer(msg.PeerID, e),
		Text:    msg.Message,
		Out:     msg.Out,
		Buttons: buttonsFromMarkup(msg.ReplyMarkup),
	}
	if from, ok := msg.GetFromID(); ok {
		if pu, ok := from.(*tg.PeerUser); ok {
			if u, ok := e.Users[pu.UserID]; ok {
				in.Sender = memberFromUser(u)
			}
		}
	}

	c.mu.RLock()
	handlers := c.handlers
	c.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, in)
	}
}

// OnMessage subscribes handler to incoming messages
func (c *Client) OnMessage(handler account.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Resolve looks up a username or checks an invite link
func (c *Client) Resolve(ctx context.Context, target account.Target) (account.Entity, error) {
	if target.IsInvite() {
		return c.checkInvite(ctx, target.InviteHash)
	}

	p, err := c.resolver.ResolveDomain(ctx, target.Username)
	if err != nil {
		return account.Entity{}, classify(errors.Wrapf(err, "resolve %s", target))
	}
	ent, ok := entityFromInputPeer(p)
	if !ok {
		return account.Entity{}, domain.NewAccountError(domain.ErrNotFound, errors.Errorf("unexpected peer %T", p))
	}
	ent.Username = target.Username
	ent.Title = "@" + target.Username

	if ent.Kind == account.KindChannel {
		chats, err := c.api.ChannelsGetChannels(ctx, []tg.InputChannelClass{inputChannel(ent)})
		if err != nil {
			return account.Entity{}, classify(errors.Wrap(err, "get channel"))
		}
		for _, ch := range chats.GetChats() {
			if full, ok := entityFromChat(ch); ok && full.ID == ent.ID {
				return full, nil
			}
		}
	}
	return ent, nil
}

func (c *Client) checkInvite(ctx context.Context, hash string) (account.Entity, error) {
	invite, err := c.api.MessagesCheckChatInvite(ctx, hash)
	if err != nil {
		return account.Entity{}, classify(errors.Wrap(err, "check invite"))
	}
	switch inv := invite.(type) {
	case *tg.ChatInviteAlready:
		if ent, ok := entityFromChat(inv.Chat); ok {
			return ent, nil
		}
	case *tg.ChatInvitePeek:
		if ent, ok := entityFromChat(inv.Chat); ok {
			return ent, nil
		}
	case *tg.ChatInvite:
		// not a member yet, the id is known only after import
		return account.Entity{Kind: account.KindChannel, Title: inv.Title, Broadcast: inv.Broadcast && !inv.Megagroup}, nil
	}
	return account.Entity{}, domain.NewAccountError(domain.ErrNotFound, errors.Errorf("unexpected invite %T", invite))
}

// Join enters the resolved group. Users and basic groups found by
// username are returned as is.
func (c *Client) Join(ctx context.Context, target account.Target, entity account.Entity) (account.Entity, error) {
	var (
		updates tg.UpdatesClass
		err     error
	)
	switch {
	case target.IsInvite() && entity.ID != 0:
		return entity, nil
	case target.IsInvite():
		updates, err = c.api.MessagesImportChatInvite(ctx, target.InviteHash)
	case entity.Kind == account.KindChannel:
		updates, err = c.api.ChannelsJoinChannel(ctx, inputChannel(entity))
	default:
		return entity, nil
	}

	if err != nil {
		err = classify(errors.Wrapf(err, "join %s", target))
		if domain.IsKind(err, domain.ErrAlreadyJoined) && entity.ID != 0 {
			return entity, nil
		}
		return account.Entity{}, err
	}
	for _, ch := range chatsFromUpdates(updates) {
		if ent, ok := entityFromChat(ch); ok {
			return ent, nil
		}
	}
	return entity, nil
}

// Admins lists group administrators
func (c *Client) Admins(ctx context.Context, chat account.Entity) ([]account.Member, error) {
	if chat.Kind == account.KindChat {
		return c.chatParticipants(ctx, chat, true)
	}
	return c.channelParticipants(ctx, chat, &tg.ChannelParticipantsAdmins{}, participantsPage)
}

// Members lists recent group members up to limit
func (c *Client) Members(ctx context.Context, chat account.Entity, limit int) ([]account.Member, error) {
	if chat.Kind == account.KindChat {
		members, err := c.chatParticipants(ctx, chat, false)
		if len(members) > limit {
			members = members[:limit]
		}
		return members, err
	}
	return c.channelParticipants(ctx, chat, &tg.ChannelParticipantsRecent{}, limit)
}

func (c *Client) channelParticipants(ctx context.Context, chat account.Entity, filter tg.ChannelParticipantsFilterClass, limit int) ([]account.Member, error) {
	var members []account.Member
	for offset := 0; len(members) < limit; {
		page := participantsPage
		if rest := limit - len(members); rest < page {
			page = rest
		}
		res, err := c.api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: inputChannel(chat),
			Filter:  filter,
			Offset:  offset,
			Limit:   page,
		})
		if err != nil {
			return members, classify(errors.Wrap(err, "get participants"))
		}
		list, ok := res.(*tg.ChannelsChannelParticipants)
		if !ok || len(list.Participants) == 0 {
			break
		}
		users := usersByID(list.Users)
		for _, p := range list.Participants {
			if u, ok := users[participantUserID(p)]; ok {
				members = append(members, memberFromUser(u))
			}
		}
		offset += len(list.Participants)
		if offset >= list.Count {
			break
		}
	}
	return members, nil
}

func participantUserID(p tg.ChannelParticipantClass) int64 {
	switch p := p.(type) {
	case *tg.ChannelParticipant:
		return p.UserID
	case *tg.ChannelParticipantSelf:
		return p.UserID
	case *tg.ChannelParticipantCreator:
		return p.UserID
	case *tg.ChannelParticipantAdmin:
		return p.UserID
	}
	return 0
}

func (c *Client) chatParticipants(ctx context.Context, chat account.Entity, adminsOnly bool) ([]account.Member, error) {
	full, err := c.api.MessagesGetFullChat(ctx, chat.ID)
	if err != nil {
		return nil, classify(errors.Wrap(err, "get full chat"))
	}
	info, ok := full.FullChat.(*tg.ChatFull)
	if !ok {
		return nil, nil
	}
	list, ok := info.Participants.(*tg.ChatParticipants)
	if !ok {
		return nil, domain.NewAccountError(domain.ErrMembersHidden, errors.New("participants are hidden"))
	}

	users := usersByID(full.Users)
	var members []account.Member
	for _, p := range list.Participants {
		var id int64
		switch p := p.(type) {
		case *tg.ChatParticipantCreator:
			id = p.UserID
		case *tg.ChatParticipantAdmin:
			id = p.UserID
		case *tg.ChatParticipant:
			if adminsOnly {
				continue
			}
			id = p.UserID
		}
		if u, ok := users[id]; ok {
			members = append(members, memberFromUser(u))
		}
	}
	return members, nil
}

// History returns authors of up to depth recent messages
func (c *Client) History(ctx context.Context, chat account.Entity, depth int) ([]account.Member, error) {
	var (
		members  []account.Member
		seen     = make(map[int64]bool)
		offsetID int
	)
	for scanned := 0; scanned < depth; {
		page := historyPage
		if rest := depth - scanned; rest < page {
			page = rest
		}
		res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     inputPeer(chat),
			OffsetID: offsetID,
			Limit:    page,
		})
		if err != nil {
			return members, classify(errors.Wrap(err, "get history"))
		}

		var (
			messages []tg.MessageClass
			users    []tg.UserClass
		)
		switch r := res.(type) {
		case *tg.MessagesMessages:
			messages, users = r.Messages, r.Users
		case *tg.MessagesMessagesSlice:
			messages, users = r.Messages, r.Users
		case *tg.MessagesChannelMessages:
			messages, users = r.Messages, r.Users
		}
		if len(messages) == 0 {
			break
		}

		byID := usersByID(users)
		for _, m := range messages {
			offsetID = m.GetID()
			msg, ok := m.(*tg.Message)
			if !ok {
				continue
			}
			from, ok := msg.GetFromID()
			if !ok {
				continue
			}
			pu, ok := from.(*tg.PeerUser)
			if !ok || seen[pu.UserID] {
				continue
			}
			if u, ok := byID[pu.UserID]; ok {
				seen[pu.UserID] = true
				members = append(members, memberFromUser(u))
			}
		}
		scanned += len(messages)
		if len(messages) < page {
			break
		}
	}
	return members, nil
}

// Send delivers payload to peer
func (c *Client) Send(ctx context.Context, to account.Entity, payload *domain.Payload) error {
	randomID, err := crypto.RandInt64(rand.Reader)
	if err != nil {
		return errors.Wrap(err, "random id")
	}

	if !payload.IsMedia() {
		_, err = c.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
			Peer:     inputPeer(to),
			Message:  payload.Text,
			RandomID: randomID,
			Entities: messageEntities(payload.ValidSpans()),
		})
		return classify(err)
	}

	file, err := uploader.NewUploader(c.api).FromPath(ctx, payload.MediaPath)
	if err != nil {
		return errors.Wrap(err, "upload")
	}
	var media tg.InputMediaClass
	if payload.MediaKind == domain.MediaSticker {
		media = &tg.InputMediaUploadedDocument{
			File:     file,
			MimeType: stickerMime(payload.MediaPath),
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeSticker{Stickerset: &tg.InputStickerSetEmpty{}},
			},
		}
	} else {
		media = &tg.InputMediaUploadedPhoto{File: file}
	}
	_, err = c.api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
		Peer:     inputPeer(to),
		Media:    media,
		Message:  payload.Text,
		RandomID: randomID,
		Entities: messageEntities(payload.ValidSpans()),
	})
	return classify(err)
}

// Click presses the inline button at row and col. Buttons without
// callback data are answered by sending their label.
func (c *Client) Click(ctx context.Context, msg account.Message, row, col int) error {
	if row >= len(msg.Buttons) || col >= len(msg.Buttons[row]) {
		return domain.NewAccountError(domain.ErrNotFound, errors.Errorf("no button at %d:%d", row, col))
	}
	btn := msg.Buttons[row][col]
	if len(btn.Data) == 0 {
		return c.Send(ctx, msg.Chat, &domain.Payload{Text: btn.Text})
	}

	_, err := c.api.MessagesGetBotCallbackAnswer(ctx, &tg.MessagesGetBotCallbackAnswerRequest{
		Peer:  inputPeer(msg.Chat),
		MsgID: msg.ID,
		Data:  btn.Data,
	})
	if tgerr.Is(err, "BOT_RESPONSE_TIMEOUT") {
		// the press is registered even when the bot does not answer
		return nil
	}
	return classify(err)
}

// Disconnect closes the connection and waits for it to stop
func (c *Client) Disconnect() error {
	c.stop()
	<-c.done
	if c.runErr != nil && !errors.Is(c.runErr, context.Canceled) {
		return c.runErr
	}
	return nil
}
