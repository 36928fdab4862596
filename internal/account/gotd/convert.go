package gotd

import (
	"path/filepath"
	"strings"

	"github.com/gotd/td/tg"

	"reydbot/internal/account"
	"reydbot/internal/domain"
)

func entityFromInputPeer(p tg.InputPeerClass) (account.Entity, bool) {
	switch p := p.(type) {
	case *tg.InputPeerUser:
		return account.Entity{ID: p.UserID, AccessHash: p.AccessHash, Kind: account.KindUser}, true
	case *tg.InputPeerChat:
		return account.Entity{ID: p.ChatID, Kind: account.KindChat}, true
	case *tg.InputPeerChannel:
		return account.Entity{ID: p.ChannelID, AccessHash: p.AccessHash, Kind: account.KindChannel}, true
	}
	return account.Entity{}, false
}

func inputPeer(e account.Entity) tg.InputPeerClass {
	switch e.Kind {
	case account.KindUser:
		return &tg.InputPeerUser{UserID: e.ID, AccessHash: e.AccessHash}
	case account.KindChat:
		return &tg.InputPeerChat{ChatID: e.ID}
	case account.KindChannel:
		return &tg.InputPeerChannel{ChannelID: e.ID, AccessHash: e.AccessHash}
	}
	return &tg.InputPeerEmpty{}
}

func inputChannel(e account.Entity) *tg.InputChannel {
	return &tg.InputChannel{ChannelID: e.ID, AccessHash: e.AccessHash}
}

func entityFromChat(c tg.ChatClass) (account.Entity, bool) {
	switch c := c.(type) {
	case *tg.Chat:
		return account.Entity{ID: c.ID, Kind: account.KindChat, Title: c.Title}, true
	case *tg.Channel:
		return account.Entity{
			ID:         c.ID,
			AccessHash: c.AccessHash,
			Kind:       account.KindChannel,
			Title:      c.Title,
			Username:   c.Username,
			Broadcast:  c.Broadcast && !c.Megagroup,
		}, true
	}
	return account.Entity{}, false
}

// entityFromPeer fills title and access hash from the update entities
func entityFromPeer(p tg.PeerClass, e tg.Entities) account.Entity {
	switch p := p.(type) {
	case *tg.PeerUser:
		ent := account.Entity{ID: p.UserID, Kind: account.KindUser}
		if u, ok := e.Users[p.UserID]; ok {
			ent.AccessHash = u.AccessHash
			ent.Username = u.Username
			ent.Title = displayName(u)
		}
		return ent
	case *tg.PeerChat:
		ent := account.Entity{ID: p.ChatID, Kind: account.KindChat}
		if c, ok := e.Chats[p.ChatID]; ok {
			ent.Title = c.Title
		}
		return ent
	case *tg.PeerChannel:
		if c, ok := e.Channels[p.ChannelID]; ok {
			ent, _ := entityFromChat(c)
			return ent
		}
		return account.Entity{ID: p.ChannelID, Kind: account.KindChannel}
	}
	return account.Entity{}
}

func memberFromUser(u *tg.User) account.Member {
	return account.Member{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.Bot,
	}
}

func displayName(u *tg.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	return name
}

// usersByID indexes the concrete users of a response
func usersByID(users []tg.UserClass) map[int64]*tg.User {
	m := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			m[user.ID] = user
		}
	}
	return m
}

func chatsFromUpdates(u tg.UpdatesClass) []tg.ChatClass {
	switch u := u.(type) {
	case *tg.Updates:
		return u.Chats
	case *tg.UpdatesCombined:
		return u.Chats
	}
	return nil
}

func buttonsFromMarkup(m tg.ReplyMarkupClass) [][]account.Button {
	var rows []tg.KeyboardButtonRow
	switch m := m.(type) {
	case *tg.ReplyInlineMarkup:
		rows = m.Rows
	case *tg.ReplyKeyboardMarkup:
		rows = m.Rows
	default:
		return nil
	}

	result := make([][]account.Button, 0, len(rows))
	for _, row := range rows {
		buttons := make([]account.Button, 0, len(row.Buttons))
		for _, b := range row.Buttons {
			btn := account.Button{Text: b.GetText()}
			if cb, ok := b.(*tg.KeyboardButtonCallback); ok {
				btn.Data = cb.Data
			}
			buttons = append(buttons, btn)
		}
		result = append(result, buttons)
	}
	return result
}

func messageEntities(spans []domain.TextSpan) []tg.MessageEntityClass {
	if len(spans) == 0 {
		return nil
	}
	entities := make([]tg.MessageEntityClass, 0, len(spans))
	for _, s := range spans {
		switch s.Kind {
		case domain.SpanBold:
			entities = append(entities, &tg.MessageEntityBold{Offset: s.Offset, Length: s.Length})
		case domain.SpanItalic:
			entities = append(entities, &tg.MessageEntityItalic{Offset: s.Offset, Length: s.Length})
		case domain.SpanUnderline:
			entities = append(entities, &tg.MessageEntityUnderline{Offset: s.Offset, Length: s.Length})
		case domain.SpanStrike:
			entities = append(entities, &tg.MessageEntityStrike{Offset: s.Offset, Length: s.Length})
		case domain.SpanCode:
			entities = append(entities, &tg.MessageEntityCode{Offset: s.Offset, Length: s.Length})
		case domain.SpanPre:
			entities = append(entities, &tg.MessageEntityPre{Offset: s.Offset, Length: s.Length, Language: s.Language})
		case domain.SpanTextLink:
			entities = append(entities, &tg.MessageEntityTextURL{Offset: s.Offset, Length: s.Length, URL: s.URL})
		case domain.SpanSpoiler:
			entities = append(entities, &tg.MessageEntitySpoiler{Offset: s.Offset, Length: s.Length})
		}
	}
	return entities
}

func stickerMime(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tgs":
		return "application/x-tgsticker"
	case ".webm":
		return "video/webm"
	default:
		return "image/webp"
	}
}
