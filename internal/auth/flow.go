package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"homeexpense/internal/core"
	"homeexpense/internal/log"
	"homeexpense/internal/otp"
	"homeexpense/internal/session"
)

type LoginInput struct {
	Mobile   string
	Password string
}

type SignupInput struct {
	Name     string
	Mobile   string
	Password string
	Confirm  string
}

// Flow drives a session through login or signup, the code challenge, and logout.
type Flow struct {
	accounts *Service
	issuer   *otp.Issuer
	sender   otp.Sender
	demo     bool
	logger   *log.Logger
}

type FlowConfig struct {
	Accounts *Service
	Issuer   *otp.Issuer
	Sender   otp.Sender
	// DemoMode surfaces the code on the verify page instead of relying on delivery.
	DemoMode bool
	Logger   *log.Logger
}

func NewFlow(cfg FlowConfig) *Flow {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	sender := cfg.Sender
	if sender == nil {
		sender = otp.DemoSender{Logger: logger}
	}
	return &Flow{
		accounts: cfg.Accounts,
		issuer:   cfg.Issuer,
		sender:   sender,
		demo:     cfg.DemoMode,
		logger:   logger.WithComponent(log.ComponentAuth),
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// validateMobile accepts digits, '+', spaces and '-'. The mobile ends up in
// storage file names, so nothing else gets through.
func validateMobile(mobile string) error {
	n := utf8.RuneCountInString(mobile)
	if n < core.MinMobileLength {
		return core.Invalid("mobile", core.ErrMobileTooShort,
			fmt.Sprintf("Mobile number must be at least %d digits", core.MinMobileLength))
	}
	if n > core.MaxMobileLength {
		return core.Invalid("mobile", core.ErrMobileInvalid,
			fmt.Sprintf("Mobile number must be at most %d characters", core.MaxMobileLength))
	}
	for _, r := range mobile {
		if (r < '0' || r > '9') && r != '+' && r != ' ' && r != '-' {
			return core.Invalid("mobile", core.ErrMobileInvalid,
				"Mobile number may only contain digits, '+', spaces and '-'")
		}
	}
	return nil
}

func (in LoginInput) Validate() error {
	if blank(in.Mobile) || in.Password == "" {
		return core.Invalid("login", core.ErrRequired, "Please enter mobile number and password")
	}
	return validateMobile(in.Mobile)
}

func (in SignupInput) Validate() error {
	if blank(in.Name) || blank(in.Mobile) || in.Password == "" || in.Confirm == "" {
		return core.Invalid("signup", core.ErrRequired, "Please fill in all fields")
	}
	if err := validateMobile(in.Mobile); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Password) < core.MinPasswordLength {
		return core.Invalid("password", core.ErrPasswordShort,
			fmt.Sprintf("Password must be at least %d characters", core.MinPasswordLength))
	}
	if in.Password != in.Confirm {
		return core.Invalid("confirm", core.ErrPasswordMatch, "Passwords do not match")
	}
	return nil
}

func requireState(s *session.Session, want session.State, action string) error {
	if s.State() != want {
		return fmt.Errorf("%w: %s while %s", session.ErrIllegalTransition, action, s.State())
	}
	return nil
}

// Login verifies credentials and moves the session to CodePending.
func (f *Flow) Login(ctx context.Context, s *session.Session, in LoginInput) error {
	if err := requireState(s, session.Unauthenticated, "login"); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	name, err := f.accounts.Verify(ctx, in.Mobile, in.Password)
	if err != nil {
		if IsAuthError(err) {
			f.logger.WarnContext(ctx, "Login rejected",
				log.FieldAccount, core.AccountKey(in.Mobile), log.FieldError, err.Error())
		}
		return err
	}

	code, err := f.issue(ctx, in.Mobile)
	if err != nil {
		return err
	}
	return s.BeginChallenge(session.Challenge{Code: code, Purpose: session.PurposeLogin, DisplayName: name})
}

// Signup delivers the code before registering, so a failed delivery leaves
// no account behind.
func (f *Flow) Signup(ctx context.Context, s *session.Session, in SignupInput) error {
	if err := requireState(s, session.Unauthenticated, "signup"); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	_, err := f.accounts.Lookup(ctx, in.Mobile)
	switch {
	case err == nil:
		return ErrAlreadyRegistered
	case !errors.Is(err, ErrNotRegistered):
		return err
	}

	code, err := f.issue(ctx, in.Mobile)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(in.Name)
	if err := f.accounts.Register(ctx, in.Mobile, in.Password, name); err != nil {
		return err
	}
	return s.BeginChallenge(session.Challenge{Code: code, Purpose: session.PurposeSignup, DisplayName: name})
}

func (f *Flow) issue(ctx context.Context, mobile string) (otp.Code, error) {
	code, err := f.issuer.Issue(mobile)
	if err != nil {
		return otp.Code{}, err
	}
	if err := f.deliver(ctx, code); err != nil {
		return otp.Code{}, err
	}
	return code, nil
}

func (f *Flow) deliver(ctx context.Context, code otp.Code) error {
	if err := f.sender.Send(ctx, code, code.ExpiresAt(f.issuer.TTL())); err != nil {
		// With the code visible on screen a delivery failure is not fatal.
		if f.demo {
			f.logger.WarnContext(ctx, "Code delivery failed", log.FieldError, err.Error())
			return nil
		}
		return fmt.Errorf("deliver code: %w", err)
	}
	return nil
}

// Verify checks the submitted code. On success the session becomes
// Authenticated; on expiry it falls back to Unauthenticated; on mismatch it
// stays CodePending so the user can retry.
func (f *Flow) Verify(ctx context.Context, s *session.Session, submitted string) (session.Identity, error) {
	ch, ok := s.Challenge()
	if !ok {
		return session.Identity{}, requireState(s, session.CodePending, "verify code")
	}

	mobile := ch.Code.Mobile
	err := f.issuer.Check(ch.Code, mobile, strings.TrimSpace(submitted), f.issuer.Now())
	switch {
	case errors.Is(err, otp.ErrExpired):
		f.logger.WarnContext(ctx, "Code expired", log.FieldAccount, core.AccountKey(mobile))
		if aerr := s.Abandon(); aerr != nil {
			return session.Identity{}, aerr
		}
		return session.Identity{}, err
	case errors.Is(err, otp.ErrMismatch):
		f.logger.WarnContext(ctx, "Code mismatch", log.FieldAccount, core.AccountKey(mobile))
		return session.Identity{}, err
	case err != nil:
		return session.Identity{}, err
	}

	acc, err := f.accounts.Lookup(ctx, mobile)
	if err != nil {
		return session.Identity{}, err
	}
	id := session.Identity{Mobile: acc.Mobile, DisplayName: acc.DisplayName}
	if err := s.Authenticate(id); err != nil {
		return session.Identity{}, err
	}

	f.logger.InfoContext(ctx, "Session authenticated",
		log.FieldOperation, log.OpVerify, log.FieldAccount, id.Key(), "purpose", string(ch.Purpose))
	return id, nil
}

// Resend issues a new code for the pending challenge. The previous code stops working.
func (f *Flow) Resend(ctx context.Context, s *session.Session) error {
	ch, ok := s.Challenge()
	if !ok {
		return requireState(s, session.CodePending, "resend code")
	}
	code, err := f.issuer.Reissue(ch.Code)
	if err != nil {
		return err
	}
	if err := f.deliver(ctx, code); err != nil {
		return err
	}
	return s.ReplaceCode(code)
}

// Back abandons the pending challenge.
func (f *Flow) Back(s *session.Session) error {
	return s.Abandon()
}

func (f *Flow) Logout(ctx context.Context, s *session.Session) error {
	id, _ := s.Identity()
	if err := s.Logout(); err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "Session logged out", log.FieldOperation, log.OpLogout, log.FieldAccount, id.Key())
	return nil
}

// CheckExpiry drops an expired pending code. It reports whether that happened.
func (f *Flow) CheckExpiry(s *session.Session) bool {
	ch, ok := s.Challenge()
	if !ok || !f.issuer.Expired(ch.Code, f.issuer.Now()) {
		return false
	}
	return s.Abandon() == nil
}

// ExpiresIn is how long the pending code stays valid, zero when none is pending.
func (f *Flow) ExpiresIn(s *session.Session) time.Duration {
	ch, ok := s.Challenge()
	if !ok {
		return 0
	}
	left := ch.Code.ExpiresAt(f.issuer.TTL()).Sub(f.issuer.Now())
	if left < 0 {
		return 0
	}
	return left
}

// DemoCode returns the pending code when demo mode is on.
func (f *Flow) DemoCode(s *session.Session) (string, bool) {
	if !f.demo {
		return "", false
	}
	ch, ok := s.Challenge()
	if !ok {
		return "", false
	}
	return ch.Code.Value, true
}
