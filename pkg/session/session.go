// Package session answers "is a user present" for the UI and provides the
// sign-out affordance shown in its header.
package session

import (
	"errors"
	"os"
	"os/user"
	"strings"
	"sync"

	"github.com/vanderheijden86/kerrigan/pkg/debug"
)

// ErrNoUser is returned when the UI is asked to mount without a user.
var ErrNoUser = errors.New("no signed-in user")

// UserEnvVar overrides the configured user name.
const UserEnvVar = "KERRIGAN_USER"

// SignOutKey is the key bound to the sign-out action.
const SignOutKey = "O"

// Session tracks the current user.
type Session struct {
	mu   sync.RWMutex
	name string
}

// New returns a session for the given user; an empty name means signed out.
func New(name string) *Session {
	return &Session{name: strings.TrimSpace(name)}
}

// Resolve picks the user: the configured name, then KERRIGAN_USER, then the
// operating system account. lookup may be nil.
func Resolve(configured string, lookup func() (*user.User, error)) *Session {
	if name := strings.TrimSpace(configured); name != "" {
		return New(name)
	}
	if name := strings.TrimSpace(os.Getenv(UserEnvVar)); name != "" {
		return New(name)
	}
	if lookup == nil {
		lookup = user.Current
	}
	u, err := lookup()
	if err != nil {
		debug.Log("session: no OS user: %v", err)
		return New("")
	}
	return New(u.Username)
}

// User returns the current user name and whether one is present.
func (s *Session) User() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name, s.name != ""
}

// Present reports whether a user is signed in.
func (s *Session) Present() bool {
	_, ok := s.User()
	return ok
}

// Require returns ErrNoUser when nobody is signed in.
func (s *Session) Require() error {
	if !s.Present() {
		return ErrNoUser
	}
	return nil
}

// SignOut clears the user. It is idempotent.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name != "" {
		debug.Log("session: %s signed out", s.name)
	}
	s.name = ""
}

// Header is the text of the user widget.
func (s *Session) Header() string {
	name, ok := s.User()
	if !ok {
		return "signed out"
	}
	return "signed in as " + name + "  [" + SignOutKey + "] sign out"
}
