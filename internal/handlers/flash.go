package handlers

import (
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/shrimpsizemoose/trekker/logger"
)

// Flashes keeps one-shot messages in a signed cookie between a POST and the
// page it redirects to.
type Flashes struct {
	store *sessions.CookieStore
	name  string
}

func NewFlashes(name, secret string) (*Flashes, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		logger.Info.Println("No session secret configured, flash cookies will not survive a restart")
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Flashes{store: store, name: name}, nil
}

func (f *Flashes) Add(w http.ResponseWriter, r *http.Request, message string) error {
	// a cookie signed with an old key still yields a fresh session
	session, _ := f.store.Get(r, f.name)
	session.AddFlash(message)
	return session.Save(r, w)
}

// Pop returns pending messages and clears them. It must run before anything
// is written to w.
func (f *Flashes) Pop(w http.ResponseWriter, r *http.Request) []string {
	session, err := f.store.Get(r, f.name)
	if err != nil {
		logger.Debug.Printf("Discarding unreadable flash cookie: %v", err)
	}

	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		logger.Error.Printf("Failed to clear flash messages: %v", err)
	}

	messages := make([]string, 0, len(raw))
	for _, m := range raw {
		if s, ok := m.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}
