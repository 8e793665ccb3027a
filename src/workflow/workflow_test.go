package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

type scriptedReserver struct {
	res   *Reservation
	err   error
	calls int
}

func (r *scriptedReserver) Reserve(ctx context.Context, roomID uint) (*Reservation, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.res, nil
}

type scriptedVerifier struct {
	results        []VerificationResult
	calls          int
	sleepsAtFirst  int
	clock          *fakeClock
	recordedSleeps bool
}

func (v *scriptedVerifier) Verify(ctx context.Context, reference string) (VerificationResult, error) {
	if v.clock != nil && !v.recordedSleeps {
		v.sleepsAtFirst = len(v.clock.sleeps)
		v.recordedSleeps = true
	}
	idx := v.calls
	v.calls++
	if idx >= len(v.results) {
		idx = len(v.results) - 1
	}
	return v.results[idx], nil
}

type recorder struct {
	levels    []Level
	messages  []string
	redirects int
}

func (r *recorder) notify(level Level, message string) {
	r.levels = append(r.levels, level)
	r.messages = append(r.messages, message)
}

func (r *recorder) redirect() { r.redirects++ }

func testReservation() *Reservation {
	return &Reservation{
		Reference:   "TXN-1",
		Description: "Room of Grace (12 months)",
		Duration:    12,
		Amount:      185000,
		Status:      "pending",
		Init: PaymentParams{
			PublicKey: "pk_test_abc",
			Email:     "tenant@example.com",
			Amount:    185000,
			Reference: "TXN-1",
		},
	}
}

func newTestController(reserver Reserver, verifier Verifier, clock *fakeClock, rec *recorder) *Controller {
	return New(reserver, verifier,
		WithClock(clock),
		WithNotify(rec.notify),
		WithRedirect(rec.redirect),
		WithPolicy(TestModePolicy),
	)
}

func TestOperationsBeforeInit(t *testing.T) {
	c := New(&scriptedReserver{res: testReservation()}, &scriptedVerifier{})

	err := c.Reserve(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = c.PaymentParams()
	assert.ErrorIs(t, err, ErrNotReady)

	err = c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"})
	assert.ErrorIs(t, err, ErrNotReady)

	c.Init("pk_test_abc")
	err = c.Reserve(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, PhasePayment, c.Phase())
}

func TestReservationFailureStaysInBooking(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{results: []VerificationResult{{Status: "success", TransactionStatus: "success"}}}
	reserver := &scriptedReserver{err: errors.New("room unavailable")}
	c := newTestController(reserver, verifier, clock, rec)

	err := c.Reserve(context.Background(), 123)
	assert.Error(t, err)
	assert.Equal(t, PhaseBooking, c.Phase())
	// backend message passes through unmodified
	assert.Equal(t, []string{"room unavailable"}, rec.messages)
	assert.Equal(t, []Level{LevelError}, rec.levels)
	assert.Zero(t, verifier.calls)

	// retryable by resubmission
	reserver.err = nil
	reserver.res = testReservation()
	assert.NoError(t, c.Reserve(context.Background(), 123))
	assert.Equal(t, PhasePayment, c.Phase())
}

func TestPaymentParamsRetained(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	c := newTestController(&scriptedReserver{res: testReservation()}, &scriptedVerifier{}, clock, rec)

	_, err := c.PaymentParams()
	assert.ErrorIs(t, err, ErrInvalidPhase)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	params, err := c.PaymentParams()
	assert.NoError(t, err)
	assert.Equal(t, "pk_test_abc", params.PublicKey)
	assert.Equal(t, "TXN-1", params.Reference)
	assert.Equal(t, float64(185000), params.Amount)
}

func TestWidgetFailureKeepsPaymentOpen(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{results: []VerificationResult{{Status: "success", TransactionStatus: "success"}}}
	c := newTestController(&scriptedReserver{res: testReservation()}, verifier, clock, rec)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "failed"}))
	assert.Equal(t, PhasePayment, c.Phase())
	assert.Zero(t, verifier.calls)
	assert.Equal(t, LevelError, rec.levels[len(rec.levels)-1])

	// a later successful callback still goes through
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"}))
	assert.Equal(t, PhaseComplete, c.Phase())
}

func TestFirstVerifyWaitsForInitialDelay(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{
		results: []VerificationResult{{Status: "success", TransactionStatus: "success"}},
		clock:   clock,
	}
	c := newTestController(&scriptedReserver{res: testReservation()}, verifier, clock, rec)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"}))

	// the verify endpoint was not called before the phase delay elapsed
	assert.Equal(t, 1, verifier.sleepsAtFirst)
	assert.Equal(t, TestModePolicy.InitialDelay, clock.sleeps[0])
}

func TestUnpaidThenSuccess(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{results: []VerificationResult{
		{Status: "success", TransactionStatus: "unpaid"},
		{Status: "success", TransactionStatus: "success"},
	}}
	c := newTestController(&scriptedReserver{res: testReservation()}, verifier, clock, rec)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"}))

	assert.Equal(t, PhaseComplete, c.Phase())
	assert.Equal(t, 2, verifier.calls)
	assert.Equal(t, 2, c.Attempts())
	assert.Equal(t, 1, rec.redirects)
	// initial delay, one inter-attempt delay, redirect display delay
	assert.Equal(t, []time.Duration{
		TestModePolicy.InitialDelay,
		TestModePolicy.Interval,
		TestModePolicy.RedirectDelay,
	}, clock.sleeps)
	assert.Equal(t, LevelSuccess, rec.levels[len(rec.levels)-1])
}

func TestExhaustionResolvesOptimistically(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{results: []VerificationResult{
		{Status: "success", TransactionStatus: "unpaid"},
	}}
	c := newTestController(&scriptedReserver{res: testReservation()}, verifier, clock, rec)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"}))

	// bounded attempts = 3 in test mode; still reaches complete
	assert.Equal(t, PhaseComplete, c.Phase())
	assert.Equal(t, TestModePolicy.MaxAttempts, verifier.calls)
	assert.Equal(t, 1, rec.redirects)
	// informational, not an error
	assert.Equal(t, LevelInfo, rec.levels[len(rec.levels)-1])
	assert.NotContains(t, rec.levels, LevelError)
}

func TestUnexpectedStatusTreatedAsUnpaid(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{results: []VerificationResult{
		{Status: "error", TransactionStatus: "reversed"},
	}}
	c := newTestController(&scriptedReserver{res: testReservation()}, verifier, clock, rec)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"}))

	assert.Equal(t, PhaseComplete, c.Phase())
	assert.Equal(t, TestModePolicy.MaxAttempts, verifier.calls)
	assert.Equal(t, 1, rec.redirects)
}

func TestResetClearsState(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{results: []VerificationResult{
		{Status: "success", TransactionStatus: "unpaid"},
	}}
	c := newTestController(&scriptedReserver{res: testReservation()}, verifier, clock, rec)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"}))
	assert.NotZero(t, c.Attempts())

	c.Reset()
	assert.Equal(t, PhaseBooking, c.Phase())
	assert.Zero(t, c.Attempts())
	assert.Nil(t, c.Reservation())
}

func TestCompleteIsTerminal(t *testing.T) {
	clock := &fakeClock{}
	rec := &recorder{}
	verifier := &scriptedVerifier{results: []VerificationResult{
		{Status: "success", TransactionStatus: "success"},
	}}
	c := newTestController(&scriptedReserver{res: testReservation()}, verifier, clock, rec)

	assert.NoError(t, c.Reserve(context.Background(), 1))
	assert.NoError(t, c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"}))
	assert.Equal(t, PhaseComplete, c.Phase())

	err := c.Reserve(context.Background(), 2)
	assert.ErrorIs(t, err, ErrInvalidPhase)
	err = c.HandlePaymentCallback(context.Background(), PaymentCallback{Reference: "TXN-1", Status: "success"})
	assert.ErrorIs(t, err, ErrInvalidPhase)
	assert.Equal(t, 1, rec.redirects)
}

func TestPolicyForKey(t *testing.T) {
	assert.Equal(t, TestModePolicy, PolicyForKey("pk_test_4f90ab"))
	assert.Equal(t, LiveModePolicy, PolicyForKey("pk_live_4f90ab"))
	assert.Equal(t, LiveModePolicy, PolicyForKey(""))
}
