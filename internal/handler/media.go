package handler

import (
	"fmt"
	"os"

	"reydbot/internal/domain"
	"reydbot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleSticker accepts a sticker as the job payload
func (h *Handler) handleSticker(c tele.Context) error {
	sticker := c.Message().Sticker
	if sticker == nil {
		return nil
	}
	return h.acceptMedia(c, &sticker.File, &domain.Payload{MediaKind: domain.MediaSticker}, stickerExt(sticker))
}

// handlePhoto accepts a photo with its caption as the job payload
func (h *Handler) handlePhoto(c tele.Context) error {
	msg := c.Message()
	if msg.Photo == nil {
		return nil
	}
	payload := &domain.Payload{
		Text:      msg.Caption,
		Spans:     textSpans(msg.CaptionEntities),
		MediaKind: domain.MediaPhoto,
	}
	return h.acceptMedia(c, &msg.Photo.File, payload, ".jpg")
}

func (h *Handler) acceptMedia(c tele.Context, file *tele.File, payload *domain.Payload, ext string) error {
	userID := c.Sender().ID
	if !h.conv.WantsMedia(userID) {
		return nil
	}

	path, err := h.download(file, ext)
	if err != nil {
		h.logger.Error("Failed to download media",
			zap.Int64("user_id", userID),
			zap.String("kind", string(payload.MediaKind)),
			zap.Error(err),
		)
		return c.Send(service.ErrorText(err))
	}
	payload.MediaPath = path

	ctx, cancel := requestContext()
	defer cancel()
	h.conv.HandleMedia(ctx, userID, payload)
	return nil
}

// download stores file under mediaDir and returns its path
func (h *Handler) download(file *tele.File, ext string) (string, error) {
	f, err := os.CreateTemp(h.mediaDir, "reydbot-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close media file: %w", err)
	}

	if err := h.bot.Download(file, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("download %s: %w", file.FileID, err)
	}
	return path, nil
}

func stickerExt(s *tele.Sticker) string {
	switch {
	case s.Animated:
		return ".tgs"
	case s.Video:
		return ".webm"
	default:
		return ".webp"
	}
}
