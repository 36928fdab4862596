package gotd

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	"reydbot/internal/domain"
)

var rpcKinds = map[string]domain.ErrorKind{
	"PEER_FLOOD":         domain.ErrAbuse,
	"USER_RESTRICTED":    domain.ErrAbuse,
	"PHONE_CODE_INVALID": domain.ErrInvalidCode,
	"PHONE_CODE_EMPTY":   domain.ErrInvalidCode,
	"PHONE_CODE_EXPIRED": domain.ErrCodeExpired,

	"PHONE_NUMBER_INVALID":    domain.ErrInvalidPhone,
	"PHONE_NUMBER_BANNED":     domain.ErrInvalidPhone,
	"PHONE_NUMBER_UNOCCUPIED": domain.ErrInvalidPhone,
	"PASSWORD_HASH_INVALID":   domain.ErrInvalidPassword,

	"AUTH_KEY_UNREGISTERED": domain.ErrSessionInvalid,
	"AUTH_KEY_INVALID":      domain.ErrSessionInvalid,
	"AUTH_KEY_DUPLICATED":   domain.ErrSessionInvalid,
	"SESSION_REVOKED":       domain.ErrSessionInvalid,
	"SESSION_EXPIRED":       domain.ErrSessionInvalid,
	"USER_DEACTIVATED":      domain.ErrSessionInvalid,
	"USER_DEACTIVATED_BAN":  domain.ErrSessionInvalid,

	"USERNAME_NOT_OCCUPIED": domain.ErrNotFound,
	"USERNAME_INVALID":      domain.ErrNotFound,
	"INVITE_HASH_INVALID":   domain.ErrNotFound,
	"INVITE_HASH_EXPIRED":   domain.ErrNotFound,
	"PEER_ID_INVALID":       domain.ErrNotFound,
	"CHANNEL_INVALID":       domain.ErrNotFound,
	"MSG_ID_INVALID":        domain.ErrNotFound,

	"CHANNEL_PRIVATE":              domain.ErrForbidden,
	"CHAT_WRITE_FORBIDDEN":         domain.ErrForbidden,
	"CHAT_SEND_MEDIA_FORBIDDEN":    domain.ErrForbidden,
	"CHAT_SEND_STICKERS_FORBIDDEN": domain.ErrForbidden,
	"CHAT_SEND_PHOTOS_FORBIDDEN":   domain.ErrForbidden,
	"USER_BANNED_IN_CHANNEL":       domain.ErrForbidden,
	"USER_PRIVACY_RESTRICTED":      domain.ErrForbidden,
	"USER_IS_BLOCKED":              domain.ErrForbidden,
	"YOU_BLOCKED_USER":             domain.ErrForbidden,
	"INVITE_REQUEST_SENT":          domain.ErrForbidden,
	"CHANNELS_TOO_MUCH":            domain.ErrForbidden,

	"CHAT_ADMIN_REQUIRED": domain.ErrMembersHidden,

	"USER_ALREADY_PARTICIPANT": domain.ErrAlreadyJoined,
}

// classify maps gotd and RPC failures to typed account errors.
// Context errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *domain.AccountError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return domain.FloodWaitError(d, err)
	}
	if errors.Is(err, auth.ErrPasswordInvalid) {
		return domain.NewAccountError(domain.ErrInvalidPassword, err)
	}

	rpcErr, ok := tgerr.As(err)
	if !ok {
		return domain.NewAccountError(domain.ErrUnknown, err)
	}
	if rpcErr.Type == "SLOWMODE_WAIT" {
		return domain.FloodWaitError(time.Duration(rpcErr.Argument)*time.Second, err)
	}
	if kind, ok := rpcKinds[rpcErr.Type]; ok {
		return domain.NewAccountError(kind, err)
	}
	return domain.NewAccountError(domain.ErrUnknown, err)
}
