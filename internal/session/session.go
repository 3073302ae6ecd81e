// Package session holds the per-browser authentication state machine:
//
//	Unauthenticated --BeginChallenge--> CodePending --Authenticate--> Authenticated
//	       ^                               |                               |
//	       +------------Abandon------------+                               |
//	       +---------------------------Logout------------------------------+
//
// Any other move returns ErrIllegalTransition.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"homeexpense/internal/core"
	"homeexpense/internal/otp"
)

type State int

const (
	Unauthenticated State = iota
	CodePending
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case CodePending:
		return "code_pending"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrIllegalTransition = errors.New("illegal session transition")

// Purpose tells what a pending code will complete.
type Purpose string

const (
	PurposeLogin  Purpose = "login"
	PurposeSignup Purpose = "signup"
)

// Challenge is the pending code state of a CodePending session.
type Challenge struct {
	Code        otp.Code
	Purpose     Purpose
	DisplayName string
	Resent      int
}

// Identity is who an Authenticated session belongs to.
type Identity struct {
	Mobile      string
	DisplayName string
}

// Key is the ledger storage key for the identity.
func (i Identity) Key() string {
	return core.AccountKey(i.Mobile)
}

type FlashKind string

const (
	FlashInfo    FlashKind = "info"
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next render.
type Flash struct {
	Kind    FlashKind
	Message string
}

// Session is the explicit per-browser state. Callers hold Lock for the whole
// request; the transition methods do not lock on their own.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	identity  Identity
	challenge *Challenge
	flash     *Flash
}

func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) State() State {
	return s.state
}

func illegal(from State, action string) error {
	return fmt.Errorf("%w: %s while %s", ErrIllegalTransition, action, from)
}

// BeginChallenge moves Unauthenticated to CodePending.
func (s *Session) BeginChallenge(c Challenge) error {
	if s.state != Unauthenticated {
		return illegal(s.state, "begin challenge")
	}
	s.challenge = &c
	s.state = CodePending
	return nil
}

// Challenge returns the pending challenge, if any.
func (s *Session) Challenge() (Challenge, bool) {
	if s.state != CodePending || s.challenge == nil {
		return Challenge{}, false
	}
	return *s.challenge, true
}

// ReplaceCode swaps in a reissued code. The old code is gone afterwards.
func (s *Session) ReplaceCode(code otp.Code) error {
	if s.state != CodePending || s.challenge == nil {
		return illegal(s.state, "replace code")
	}
	s.challenge.Code = code
	s.challenge.Resent++
	return nil
}

// Authenticate completes a challenge and clears every code field.
func (s *Session) Authenticate(id Identity) error {
	if s.state != CodePending {
		return illegal(s.state, "authenticate")
	}
	s.challenge = nil
	s.identity = id
	s.state = Authenticated
	return nil
}

// Abandon drops the pending challenge, via "back" or expiry.
func (s *Session) Abandon() error {
	if s.state != CodePending {
		return illegal(s.state, "abandon challenge")
	}
	s.challenge = nil
	s.state = Unauthenticated
	return nil
}

// Logout clears the identity.
func (s *Session) Logout() error {
	if s.state != Authenticated {
		return illegal(s.state, "logout")
	}
	s.identity = Identity{}
	s.state = Unauthenticated
	return nil
}

// Identity is only available to an Authenticated session. It is the single
// way handlers obtain the account they act on.
func (s *Session) Identity() (Identity, bool) {
	if s.state != Authenticated {
		return Identity{}, false
	}
	return s.identity, true
}

// Dirty reports whether the session holds anything beyond a blank login page.
func (s *Session) Dirty() bool {
	return s.state != Unauthenticated || s.flash != nil
}

func (s *Session) SetFlash(kind FlashKind, msg string) {
	s.flash = &Flash{Kind: kind, Message: msg}
}

// PopFlash returns and clears the pending flash message.
func (s *Session) PopFlash() *Flash {
	f := s.flash
	s.flash = nil
	return f
}
