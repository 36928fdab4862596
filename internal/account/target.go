package account

import (
	"errors"
	"regexp"
	"strings"
)

// ErrBadTarget is returned for input that is neither a link nor a username
var ErrBadTarget = errors.New("bad target")

// Target is a parsed chat reference
type Target struct {
	Username   string
	InviteHash string
}

// IsInvite reports whether the target is a private invite link
func (t Target) IsInvite() bool {
	return t.InviteHash != ""
}

func (t Target) String() string {
	if t.IsInvite() {
		return "t.me/+" + t.InviteHash
	}
	return "@" + t.Username
}

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)
	inviteRe   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ParseTarget accepts t.me/+HASH, t.me/joinchat/HASH, t.me/name, @name and name
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	for _, host := range []string{"www.t.me/", "t.me/", "telegram.me/"} {
		if strings.HasPrefix(strings.ToLower(s), host) {
			s = s[len(host):]
			break
		}
	}
	s = strings.TrimSuffix(s, "/")

	var hash string
	switch {
	case strings.HasPrefix(s, "+"):
		hash = s[1:]
	case strings.HasPrefix(s, "joinchat/"):
		hash = strings.TrimPrefix(s, "joinchat/")
	}
	if hash != "" {
		if !inviteRe.MatchString(hash) {
			return Target{}, ErrBadTarget
		}
		return Target{InviteHash: hash}, nil
	}

	name := strings.TrimPrefix(s, "@")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		// t.me/name/123 post links
		name = name[:i]
	}
	if !usernameRe.MatchString(name) {
		return Target{}, ErrBadTarget
	}
	return Target{Username: name}, nil
}

// ParseHandles extracts unique @handles in order of appearance
func ParseHandles(text string, max int) []string {
	seen := make(map[string]bool)
	var handles []string
	for _, m := range handleRe.FindAllString(text, -1) {
		key := strings.ToLower(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		handles = append(handles, m)
		if len(handles) == max {
			break
		}
	}
	return handles
}

var handleRe = regexp.MustCompile(`@\w+`)
