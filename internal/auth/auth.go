// Package auth decides who a new session plays as.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"riches/internal/game"
)

type Mode int

const (
	Guest Mode = iota
	Admin
	Resume
)

type Credentials struct {
	Mode     Mode
	Login    string
	Password string
	// Username is the player to continue in Resume mode.
	Username string
	IsAdmin  bool
}

type Identity struct {
	Username string
	IsAdmin  bool
}

// Authenticator checks the single shared admin credential. Guests and admins
// get fresh usernames derived from the login time in milliseconds.
type Authenticator struct {
	login  string
	secret string
	clock  game.Clock
}

func New(login, secret string, clock game.Clock) *Authenticator {
	return &Authenticator{login: login, secret: secret, clock: clock}
}

func (a *Authenticator) Login(c Credentials) (Identity, error) {
	switch c.Mode {
	case Guest:
		return Identity{Username: a.username("guest")}, nil
	case Admin:
		if !a.matches(c.Login, c.Password) {
			return Identity{}, game.ErrInvalidCredentials
		}
		return Identity{Username: a.username("admin"), IsAdmin: true}, nil
	case Resume:
		name := strings.TrimSpace(c.Username)
		if name == "" {
			return Identity{}, fmt.Errorf("%w: no username to resume", game.ErrInvalidCredentials)
		}
		return Identity{Username: name, IsAdmin: c.IsAdmin}, nil
	default:
		return Identity{}, fmt.Errorf("%w: unknown login mode %d", game.ErrInvalidCredentials, c.Mode)
	}
}

func (a *Authenticator) matches(login, password string) bool {
	okLogin := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(login)), []byte(a.login)) == 1
	okSecret := subtle.ConstantTimeCompare([]byte(password), []byte(a.secret)) == 1
	return okLogin && okSecret
}

func (a *Authenticator) username(prefix string) string {
	now := time.Now()
	if a.clock != nil {
		now = a.clock.Now()
	}
	return fmt.Sprintf("%s_%d", prefix, now.UnixMilli())
}
