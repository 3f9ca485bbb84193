// Package flash carries one-shot user messages across a redirect in a
// short-lived cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Categories used by handlers.
const (
	Success = "success"
	Info    = "info"
	Warning = "warning"
	Danger  = "danger"
)

const (
	cookieName  = "flash"
	pendingKey  = "flash.pending"
	maxMessages = 10
	maxAge      = 5 * 60
)

// Message is one flashed message.
type Message struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Add queues a message for the next rendered view.
func Add(c *gin.Context, category, message string) {
	msgs := append(pending(c), Message{Category: category, Message: message})
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	c.Set(pendingKey, msgs)
	write(c, encode(msgs), maxAge)
}

// Pop returns and clears all queued messages, including ones added during
// the current request. It never returns nil.
func Pop(c *gin.Context) []Message {
	msgs := pending(c)
	c.Set(pendingKey, []Message{})
	if _, err := c.Cookie(cookieName); err == nil || len(msgs) > 0 {
		write(c, "", -1)
	}
	if msgs == nil {
		return []Message{}
	}
	return msgs
}

func pending(c *gin.Context) []Message {
	if v, ok := c.Get(pendingKey); ok {
		if msgs, ok := v.([]Message); ok {
			return msgs
		}
	}
	raw, err := c.Cookie(cookieName)
	if err != nil || raw == "" {
		return nil
	}
	msgs := decode(raw)
	c.Set(pendingKey, msgs)
	return msgs
}

func encode(msgs []Message) string {
	data, err := json.Marshal(msgs)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decode(raw string) []Message {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	return msgs
}

func write(c *gin.Context, value string, age int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, value, age, "/", "", c.Request.TLS != nil, true)
}
