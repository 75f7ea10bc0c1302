package middleware

import (
	"encoding/json"
	"errors"
	"log"

	tele "gopkg.in/telebot.v4"
)

// Logger возвращает middleware, логирующее входящие обновления Telegram.
// Если передан хотя бы один логгер, используется он, иначе log.Default().
func Logger(logger ...*log.Logger) tele.MiddlewareFunc {
	var l *log.Logger
	if len(logger) > 0 {
		l = logger[0]
	} else {
		l = log.Default()
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			data, _ := json.Marshal(c.Update())
			l.Println(string(data))
			return next(c)
		}
	}
}

// Recover возвращает middleware, перехватывающее панику в обработчике.
// Паника преобразуется в ошибку и передаётся обработчику onError; по
// умолчанию она логируется.
func Recover(onError ...func(error, tele.Context)) tele.MiddlewareFunc {
	var handleError func(error, tele.Context)
	if len(onError) > 0 {
		handleError = onError[0]
	} else {
		handleError = func(err error, c tele.Context) {
			log.Printf("Recovered from panic: %v", err)
		}
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var e error
					switch x := r.(type) {
					case error:
						e = x
					case string:
						e = errors.New(x)
					default:
						e = errors.New("unknown panic")
					}
					handleError(e, c)
					err = e
				}
			}()
			return next(c)
		}
	}
}

// DebugUserActions возвращает middleware, которое при включённом режиме
// отладки логирует действие пользователя: имя, ID и содержимое сообщения
// или callback.
func DebugUserActions(enabled bool) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			err := next(c)
			if enabled && c.Sender() != nil {
				var action string
				if msg := c.Message(); msg != nil {
					action = "Message: " + msg.Text
				} else if cb := c.Callback(); cb != nil {
					action = "Callback: " + cb.Data
				} else {
					action = "Unknown action"
				}
				log.Printf("DEBUG: User: %s (ID: %d), Action: %s, Err: %v",
					c.Sender().FirstName, c.Sender().ID, action, err)
			}
			return err
		}
	}
}
