package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v3"
)

// Serialize runs updates of the same sender one at a time
func Serialize() tele.MiddlewareFunc {
	var (
		mu    sync.Mutex
		locks = make(map[int64]*sync.Mutex)
	)

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return next(c)
			}

			mu.Lock()
			lock, ok := locks[sender.ID]
			if !ok {
				lock = &sync.Mutex{}
				locks[sender.ID] = lock
			}
			mu.Unlock()

			lock.Lock()
			defer lock.Unlock()
			return next(c)
		}
	}
}
