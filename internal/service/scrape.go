package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// MaxMessageLength is the Telegram text limit used to chunk reports
const MaxMessageLength = 4096

// StartScrape collects up to limit unique usernames from the target's
// admins, members and message authors. adminsOnly skips the latter two.
func (r *JobRunner) StartScrape(ctx context.Context, chatID int64, target account.Target, limit int, adminsOnly bool) (*session.Job, error) {
	if limit < 1 || limit > r.cfg.ScrapeMaxLimit {
		return nil, ErrBadInput
	}

	return r.start(ctx, chatID, domain.JobScrape, limit, nil, func(x *run) bool {
		peer, ok := x.enter(target)
		if !ok {
			return true
		}
		c := newCollector(limit)
		aborted := x.collect(peer, c, adminsOnly)
		for range c.handles {
			x.job.Record(true)
		}

		if x.job.Status() == domain.JobStopped && len(c.handles) == 0 {
			return aborted
		}
		title := fmt.Sprintf("👥 %s: %d ta foydalanuvchi", peer.Title, len(c.handles))
		if adminsOnly {
			title = fmt.Sprintf("👨‍💼 %s: %d ta admin", peer.Title, len(c.handles))
		}
		for _, chunk := range BuildScrapeReport(title, c.handles) {
			x.send(context.Background(), x.job.ChatID, domain.Text(chunk))
		}
		return aborted
	})
}

// collect fills c from each source in turn. It reports whether the job
// was aborted.
func (x *run) collect(peer account.Entity, c *collector, adminsOnly bool) bool {
	sources := []scrapeSource{
		{"admins", func(ctx context.Context) ([]account.Member, error) {
			return x.client.Admins(ctx, peer)
		}},
	}
	if !adminsOnly {
		sources = append(sources,
			scrapeSource{"members", func(ctx context.Context) ([]account.Member, error) {
				return x.client.Members(ctx, peer, c.limit)
			}},
			scrapeSource{"history", func(ctx context.Context) ([]account.Member, error) {
				return x.client.History(ctx, peer, x.cfg.HistoryDepth)
			}},
		)
	}

	for _, src := range sources {
		if c.full() {
			return false
		}
		var members []account.Member
		err := x.attempt(func(ctx context.Context) error {
			var err error
			members, err = src.fetch(ctx)
			return err
		})
		c.add(members)

		switch {
		case errors.Is(err, errJobStopped):
			return false
		case domain.IsKind(err, domain.ErrAbuse):
			x.metrics.FloodWaits.WithLabelValues(string(x.job.Kind), "abuse").Inc()
			x.notifyAbuse()
			return true
		case domain.IsKind(err, domain.ErrSessionInvalid):
			x.resetSession(err)
			return true
		case err != nil:
			// hidden member lists fall through to the history scan
			x.log.Info("Scrape source failed", zap.String("source", src.name), zap.Error(err))
		}
	}
	return false
}

type scrapeSource struct {
	name  string
	fetch func(ctx context.Context) ([]account.Member, error)
}

// collector keeps unique usable usernames up to a limit
type collector struct {
	limit   int
	seen    map[string]bool
	handles []string
}

func newCollector(limit int) *collector {
	return &collector{limit: limit, seen: make(map[string]bool)}
}

func (c *collector) full() bool {
	return len(c.handles) >= c.limit
}

func (c *collector) add(members []account.Member) {
	for _, m := range members {
		if c.full() {
			return
		}
		if m.IsBot || m.Username == "" {
			continue
		}
		key := strings.ToLower(m.Username)
		if c.seen[key] {
			continue
		}
		c.seen[key] = true
		c.handles = append(c.handles, "@"+m.Username)
	}
}

// BuildScrapeReport renders handles one per line under title, split into
// messages that fit the Telegram limit
func BuildScrapeReport(title string, handles []string) []string {
	if len(handles) == 0 {
		return []string{title + "\n\n❌ Hech kim topilmadi."}
	}

	var chunks []string
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	size := utf8.RuneCountInString(title) + 1
	for _, h := range handles {
		line := "\n" + h
		n := utf8.RuneCountInString(line)
		if size+n > MaxMessageLength {
			chunks = append(chunks, b.String())
			b.Reset()
			line, n = h, utf8.RuneCountInString(h)
			size = 0
		}
		b.WriteString(line)
		size += n
	}
	return append(chunks, b.String())
}
