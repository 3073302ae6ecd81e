// Package otp issues and checks the six digit codes that prove possession of
// a mobile number during login and signup.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// DefaultTTL is how long a code stays valid after it is issued.
const DefaultTTL = 300 * time.Second

const (
	minCode = 100000
	maxCode = 999999
)

var (
	ErrExpired  = errors.New("code expired")
	ErrMismatch = errors.New("code mismatch")
)

// Code is an issued one-time code. It lives only in session memory.
type Code struct {
	Value    string
	Mobile   string
	IssuedAt time.Time
}

// ExpiresAt returns the last instant at which the code is still accepted.
func (c Code) ExpiresAt(ttl time.Duration) time.Time {
	return c.IssuedAt.Add(ttl)
}

// Generator returns a six digit decimal string.
type Generator func() (string, error)

// RandomCode draws uniformly from 100000..999999 using crypto/rand.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+minCode, 10), nil
}

// Issuer creates and checks codes. It keeps no state of its own.
type Issuer struct {
	ttl      time.Duration
	now      func() time.Time
	generate Generator
}

type Option func(*Issuer)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithGenerator(g Generator) Option {
	return func(i *Issuer) { i.generate = g }
}

func NewIssuer(ttl time.Duration, opts ...Option) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{ttl: ttl, now: time.Now, generate: RandomCode}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Now returns the issuer's clock reading.
func (i *Issuer) Now() time.Time {
	return i.now()
}

// Issue produces a fresh code for mobile stamped with the current time.
func (i *Issuer) Issue(mobile string) (Code, error) {
	v, err := i.generate()
	if err != nil {
		return Code{}, err
	}
	return Code{Value: v, Mobile: mobile, IssuedAt: i.now()}, nil
}

// Reissue replaces prev with a new value and timestamp for the same mobile.
// Callers must drop prev; only the returned code is checked afterwards.
func (i *Issuer) Reissue(prev Code) (Code, error) {
	return i.Issue(prev.Mobile)
}

// Expired reports whether more than the TTL has elapsed since c was issued.
func (i *Issuer) Expired(c Code, now time.Time) bool {
	return now.Sub(c.IssuedAt) > i.ttl
}

// Check validates submitted against c at time now. Expiry is evaluated before
// the value comparison, so an expired code reports ErrExpired even when it matches.
// Check does not consume the code.
func (i *Issuer) Check(c Code, mobile, submitted string, now time.Time) error {
	if i.Expired(c, now) {
		return ErrExpired
	}
	if c.Mobile != mobile {
		return ErrMismatch
	}
	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(submitted)) != 1 {
		return ErrMismatch
	}
	return nil
}
