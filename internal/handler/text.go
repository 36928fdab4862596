package handler

import (
	"reydbot/internal/domain"
	"reydbot/internal/service"

	tele "gopkg.in/telebot.v3"
)

var spanKinds = map[tele.EntityType]domain.SpanKind{
	tele.EntityBold:          domain.SpanBold,
	tele.EntityItalic:        domain.SpanItalic,
	tele.EntityUnderline:     domain.SpanUnderline,
	tele.EntityStrikethrough: domain.SpanStrike,
	tele.EntityCode:          domain.SpanCode,
	tele.EntityCodeBlock:     domain.SpanPre,
	tele.EntityTextLink:      domain.SpanTextLink,
	tele.EntitySpoiler:       domain.SpanSpoiler,
}

// handleText routes menu labels first and feeds everything else to the
// active flow
func (h *Handler) handleText(c tele.Context) error {
	switch c.Text() {
	case service.MenuAlmaz:
		return h.handleAlmaz(c)
	case service.MenuScrape:
		return h.beginScrape(c, false)
	case service.MenuAdmins:
		return h.beginScrape(c, true)
	case service.MenuBroadcast:
		return h.handleBroadcast(c)
	case service.MenuRaid:
		return h.handleRaid(c)
	case service.MenuProfile:
		return h.handleProfile(c)
	case service.MenuLogout:
		return h.handleLogout(c)
	case service.MenuHelp:
		return h.handleHelp(c)
	}

	ctx, cancel := requestContext()
	defer cancel()
	msg := c.Message()
	h.conv.HandleText(ctx, c.Sender().ID, msg.Text, textSpans(msg.Entities))
	return nil
}

// textSpans keeps the formatting entities a payload can reproduce
func textSpans(entities []tele.MessageEntity) []domain.TextSpan {
	var spans []domain.TextSpan
	for _, e := range entities {
		kind, ok := spanKinds[e.Type]
		if !ok {
			continue
		}
		spans = append(spans, domain.TextSpan{
			Kind:     kind,
			Offset:   e.Offset,
			Length:   e.Length,
			URL:      e.URL,
			Language: e.Language,
		})
	}
	return spans
}
