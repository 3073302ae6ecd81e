package otp

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestIssuer(clock *fakeClock, codes ...string) *Issuer {
	n := 0
	gen := func() (string, error) {
		v := codes[n%len(codes)]
		n++
		return v, nil
	}
	return NewIssuer(DefaultTTL, WithClock(clock.Now), WithGenerator(gen))
}

func TestRandomCodeRange(t *testing.T) {
	for range 2000 {
		v, err := RandomCode()
		require.NoError(t, err)
		require.Len(t, v, 6)
		n, err := strconv.Atoi(v)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestIssueAndCheck(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(clock, "123456")

	code, err := iss.Issue("03001234567")
	require.NoError(t, err)
	assert.Equal(t, "123456", code.Value)
	assert.Equal(t, clock.Now(), code.IssuedAt)

	require.NoError(t, iss.Check(code, "03001234567", "123456", clock.Now()))
	// Not consumed by Check.
	require.NoError(t, iss.Check(code, "03001234567", "123456", clock.Now()))

	assert.ErrorIs(t, iss.Check(code, "03001234567", "654321", clock.Now()), ErrMismatch)
	assert.ErrorIs(t, iss.Check(code, "03009999999", "123456", clock.Now()), ErrMismatch)
}

func TestCheckExpiryBoundary(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	iss := newTestIssuer(clock, "123456")

	code, err := iss.Issue("03001234567")
	require.NoError(t, err)

	assert.NoError(t, iss.Check(code, "03001234567", "123456", start.Add(299*time.Second)))
	assert.NoError(t, iss.Check(code, "03001234567", "123456", start.Add(300*time.Second)))
	assert.ErrorIs(t, iss.Check(code, "03001234567", "123456", start.Add(301*time.Second)), ErrExpired)
}

func TestExpiryEvaluatedBeforeMismatch(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	iss := newTestIssuer(&fakeClock{t: start}, "123456")

	code, err := iss.Issue("03001234567")
	require.NoError(t, err)

	err = iss.Check(code, "03001234567", "000000", start.Add(10*time.Minute))
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestReissueInvalidatesPrevious(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(clock, "111111", "222222")

	first, err := iss.Issue("03001234567")
	require.NoError(t, err)
	clock.Advance(time.Minute)

	second, err := iss.Reissue(first)
	require.NoError(t, err)
	assert.Equal(t, first.Mobile, second.Mobile)
	assert.Equal(t, clock.Now(), second.IssuedAt)

	assert.ErrorIs(t, iss.Check(second, "03001234567", "111111", clock.Now()), ErrMismatch)
	assert.NoError(t, iss.Check(second, "03001234567", "222222", clock.Now()))
}

func TestDemoSender(t *testing.T) {
	err := DemoSender{}.Send(context.Background(), Code{Value: "123456", Mobile: "03001234567"}, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, "***567", MaskMobile("03001234567"))
	assert.Equal(t, "***", MaskMobile("12"))
	assert.Equal(t, "***٥٦٧", MaskMobile("٠٣٠٠١٢٣٤٥٦٧"), "multi-byte digits are not cut")
	assert.Equal(t, "***", MaskMobile("٥٦٧"))
}
