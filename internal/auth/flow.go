package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jobtrack/cli/internal/api"
	"github.com/jobtrack/cli/internal/logging"
	"github.com/jobtrack/cli/internal/models"
	"github.com/jobtrack/cli/internal/utils"
)

const defaultTimeout = 30 * time.Second

// Observer is notified after every state change
type Observer func(prev, next State)

// Flow is the authentication state machine. It holds exactly one State,
// changes it only in response to operation outcomes, and runs at most one
// operation at a time.
//
// Create one Flow per process with NewFlow, call Init before use and Close
// when done.
type Flow struct {
	svc      *Service
	log      logging.Logger
	timeout  time.Duration
	observer Observer

	mu     sync.Mutex
	state  State
	busy   bool
	closed bool
	// epoch changes whenever the session is torn down (logout, expiry) so
	// that an operation finishing afterwards cannot resurrect it.
	epoch uint64
}

// FlowOption configures a Flow
type FlowOption func(*Flow)

// WithLogger sets the flow logger
func WithLogger(l logging.Logger) FlowOption {
	return func(f *Flow) { f.log = l }
}

// WithTimeout bounds every operation. Zero or negative keeps the default.
func WithTimeout(d time.Duration) FlowOption {
	return func(f *Flow) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithObserver registers a state-change callback
func WithObserver(o Observer) FlowOption {
	return func(f *Flow) { f.observer = o }
}

// NewFlow creates a flow in the LOGIN state
func NewFlow(svc *Service, opts ...FlowOption) *Flow {
	f := &Flow{
		svc:     svc,
		log:     logging.Nop(),
		timeout: defaultTimeout,
		state:   loginState(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "auth_flow")
	return f
}

// State returns a snapshot of the current state
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// User returns the cached user of the stored session, if any
func (f *Flow) User(ctx context.Context) (*models.User, bool) {
	cred, err := f.svc.Credential(ctx)
	if err != nil || cred.User == nil {
		return nil, false
	}
	return cred.User, true
}

// op is one in-flight operation
type op struct {
	ctx    context.Context
	cancel context.CancelFunc
	prev   State
	epoch  uint64
}

// begin claims the flow for one operation. When steps are given the current
// step must be one of them. The returned state has Loading set.
func (f *Flow) begin(ctx context.Context, name string, steps ...Step) (*op, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.busy {
		f.mu.Unlock()
		f.log.Debug(ctx, "rejected concurrent operation", "op", name)
		return nil, ErrBusy
	}
	if len(steps) > 0 && !stepIn(f.state.Step, steps) {
		cur := f.state.Step
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s during %s", ErrWrongStep, name, cur)
	}
	prev := f.state
	f.busy = true
	f.state.Loading = true
	loading := f.state
	epoch := f.epoch
	f.mu.Unlock()

	f.notify(ctx, prev, loading)

	opCtx, cancel := context.WithTimeout(ctx, f.timeout)
	return &op{ctx: opCtx, cancel: cancel, prev: prev, epoch: epoch}, nil
}

// finish releases the flow and applies next. If the session was torn down
// while the operation ran, the flow stays in LOGIN and a credential the
// operation wrote is removed again. It reports whether that happened.
func (f *Flow) finish(o *op, next State, installed bool) bool {
	defer o.cancel()
	ctx := context.WithoutCancel(o.ctx)

	f.mu.Lock()
	stale := f.epoch != o.epoch
	if stale {
		next = loginState()
	}
	prev := f.state
	f.state = next
	f.busy = false
	f.mu.Unlock()

	if stale && installed {
		if err := f.svc.Logout(ctx); err != nil {
			f.log.Warn(ctx, "failed to drop credential after session teardown", "error", err)
		}
	}
	f.notify(ctx, prev, next)
	return stale
}

// failed is the state a failed login or register falls back to. A stored
// session survives a failed re-login, so COMPLETED is kept.
func (o *op) failed() State {
	if o.prev.Step == StepCompleted {
		return o.prev
	}
	return loginState()
}

func (f *Flow) notify(ctx context.Context, prev, next State) {
	if prev == next {
		return
	}
	f.log.Debug(ctx, "auth state changed", "from", prev.String(), "to", next.String())
	if f.observer != nil {
		f.observer(prev, next)
	}
}

func stepIn(s Step, steps []Step) bool {
	for _, want := range steps {
		if s == want {
			return true
		}
	}
	return false
}

// stateFor maps a login/register outcome to the next state
func stateFor(out *api.Outcome) (State, error) {
	switch out.Kind {
	case api.Authenticated:
		return completedState(), nil
	case api.TwoFactor:
		return challengeState(StepTwoFactor, out.Challenge.UserID, out.Challenge.Email)
	case api.EmailVerification:
		return challengeState(StepEmailVerification, out.Challenge.UserID, out.Challenge.Email)
	}
	return State{}, fmt.Errorf("%w: %s", api.ErrUnexpectedResponse, out.Kind)
}

// Init derives the starting state from the credential store:
//   - token and cached user: COMPLETED, no network call;
//   - token only: the profile decides; on failure the session is dropped;
//   - nothing: LOGIN.
func (f *Flow) Init(ctx context.Context) error {
	o, err := f.begin(ctx, "init")
	if err != nil {
		return err
	}

	cred, err := f.svc.Credential(o.ctx)
	if err != nil {
		f.finish(o, loginState(), false)
		return fmt.Errorf("failed to read session: %w", err)
	}

	switch {
	case cred.Complete():
		f.finish(o, completedState(), false)
		return nil
	case cred.Token == "":
		if cred.User != nil {
			// orphaned user record without a token
			if err := f.svc.Logout(o.ctx); err != nil {
				f.log.Warn(o.ctx, "failed to clear orphaned user", "error", err)
			}
		}
		f.finish(o, loginState(), false)
		return nil
	}

	if _, err := f.svc.RefreshUser(o.ctx); err != nil {
		f.log.Info(o.ctx, "stored token rejected, dropping session", "error", err)
		if lerr := f.svc.Logout(o.ctx); lerr != nil {
			f.finish(o, loginState(), false)
			return fmt.Errorf("failed to clear session: %w", lerr)
		}
		f.finish(o, loginState(), false)
		return nil
	}
	f.finish(o, completedState(), true)
	return nil
}

// Close tears the flow down. The stored session is left in place for the
// next process; further operations return ErrClosed.
func (f *Flow) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Login runs the login step. A step-up outcome, including a rejection with
// code EMAIL_NOT_VERIFIED, is a normal transition and returns nil; the
// caller inspects State. Any other failure is returned unchanged and leaves
// the flow in LOGIN, or in COMPLETED when a session was already stored.
func (f *Flow) Login(ctx context.Context, form models.LoginForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	o, err := f.begin(ctx, "login")
	if err != nil {
		return err
	}

	out, err := f.svc.Login(o.ctx, form)
	if err != nil {
		f.finish(o, o.failed(), false)
		return err
	}
	next, err := stateFor(out)
	if err != nil {
		f.finish(o, o.failed(), false)
		return err
	}
	f.finish(o, next, out.Kind == api.Authenticated)
	return nil
}

// Register runs registration. It ends in COMPLETED or EMAIL_VERIFICATION;
// failures fall back like Login.
func (f *Flow) Register(ctx context.Context, form models.RegisterForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	o, err := f.begin(ctx, "register")
	if err != nil {
		return err
	}

	out, err := f.svc.Register(o.ctx, form)
	if err != nil {
		f.finish(o, o.failed(), false)
		return err
	}
	next, err := stateFor(out)
	if err != nil {
		f.finish(o, o.failed(), false)
		return err
	}
	f.finish(o, next, out.Kind == api.Authenticated)
	return nil
}

// Resume re-enters a step-up state from a challenge issued earlier, e.g. by
// a previous process. Both identifiers are required.
func (f *Flow) Resume(step Step, userID, email string) error {
	next, err := challengeState(step, userID, email)
	if err != nil {
		return err
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	prev := f.state
	f.state = next
	f.mu.Unlock()

	f.notify(context.Background(), prev, next)
	return nil
}

// Verify2FA submits the second-factor code for the pending challenge. On
// success the session is stored and the flow is COMPLETED; on failure the
// flow stays in TWO_FACTOR_AUTH.
func (f *Flow) Verify2FA(ctx context.Context, code string) error {
	return f.verify(ctx, "verify_2fa", StepTwoFactor, code, f.svc.Verify2FA)
}

// VerifyEmail submits the email-verification code for the pending
// challenge. Same rules as Verify2FA.
func (f *Flow) VerifyEmail(ctx context.Context, code string) error {
	return f.verify(ctx, "verify_email", StepEmailVerification, code, f.svc.VerifyEmail)
}

type verifyFunc func(ctx context.Context, userID, email, code string) (*models.AuthResponse, error)

func (f *Flow) verify(ctx context.Context, name string, step Step, code string, call verifyFunc) error {
	if err := utils.ValidateCode(code); err != nil {
		return utils.NewValidationError("code", err.Error())
	}
	o, err := f.begin(ctx, name, step)
	if err != nil {
		return err
	}

	if _, err := call(o.ctx, o.prev.UserID, o.prev.Email, code); err != nil {
		f.finish(o, o.prev, false)
		return err
	}
	f.finish(o, completedState(), true)
	return nil
}

// ResendCode asks for a new code for the pending challenge. The state does
// not change.
func (f *Flow) ResendCode(ctx context.Context) (*models.Ack, error) {
	o, err := f.begin(ctx, "resend_code", StepTwoFactor, StepEmailVerification)
	if err != nil {
		return nil, err
	}
	defer f.finish(o, o.prev, false)

	purpose := models.PurposeEmailVerification
	if o.prev.Step == StepTwoFactor {
		purpose = models.PurposeTwoFactor
	}
	return f.svc.ResendCode(o.ctx, o.prev.UserID, o.prev.Email, purpose)
}

// ForgotPassword starts the reset sub-flow. It never changes the state and
// answers with the same acknowledgement whether or not the account exists.
func (f *Flow) ForgotPassword(ctx context.Context, email string) (*models.Ack, error) {
	if err := utils.ValidateEmail(email); err != nil {
		return nil, utils.NewValidationError("email", err.Error())
	}
	o, err := f.begin(ctx, "forgot_password")
	if err != nil {
		return nil, err
	}
	defer f.finish(o, o.prev, false)

	return f.svc.ForgotPassword(o.ctx, email)
}

// VerifyResetCode checks a reset code. The answer is advisory only.
func (f *Flow) VerifyResetCode(ctx context.Context, email, code string) (bool, error) {
	o, err := f.begin(ctx, "verify_reset_code")
	if err != nil {
		return false, err
	}
	defer f.finish(o, o.prev, false)

	return f.svc.VerifyResetCode(o.ctx, email, code)
}

// ResetPassword completes the reset sub-flow. Success logs the user in
// directly (COMPLETED); failure leaves the state unchanged.
func (f *Flow) ResetPassword(ctx context.Context, form models.ResetPasswordForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	o, err := f.begin(ctx, "reset_password")
	if err != nil {
		return err
	}

	if _, err := f.svc.ResetPassword(o.ctx, form); err != nil {
		f.finish(o, o.prev, false)
		return err
	}
	f.finish(o, completedState(), true)
	return nil
}

// RefreshToken rotates the stored token. The state does not change unless
// the server rejects the session. If the session is torn down while the
// call runs, the rotated token is discarded and ErrNotAuthenticated returned.
func (f *Flow) RefreshToken(ctx context.Context) error {
	o, err := f.begin(ctx, "refresh_token")
	if err != nil {
		return err
	}
	if _, err := f.svc.RefreshToken(o.ctx); err != nil {
		f.finish(o, o.prev, false)
		return err
	}
	if f.finish(o, o.prev, true) {
		return ErrNotAuthenticated
	}
	return nil
}

// RefreshUser re-fetches the profile and updates the cached user. Failures
// are logged and otherwise ignored.
func (f *Flow) RefreshUser(ctx context.Context) {
	o, err := f.begin(ctx, "refresh_user")
	if err != nil {
		f.log.Warn(ctx, "skipped user refresh", "error", err)
		return
	}
	if _, err := f.svc.RefreshUser(o.ctx); err != nil {
		if !errors.Is(err, ErrNotAuthenticated) {
			f.log.Warn(o.ctx, "user refresh failed", "error", err)
		}
		f.finish(o, o.prev, false)
		return
	}
	f.finish(o, o.prev, true)
}

// Logout clears the stored session and returns to LOGIN. It is local only
// and may be called in any state, any number of times.
func (f *Flow) Logout(ctx context.Context) error {
	f.teardown(ctx)
	return f.svc.Logout(ctx)
}

// SessionExpired is the transport callback for a rejected session: the
// stored credential is dropped and the flow returns to LOGIN.
func (f *Flow) SessionExpired(ctx context.Context) {
	f.teardown(ctx)
	if err := f.svc.Logout(ctx); err != nil {
		f.log.Warn(ctx, "failed to clear expired session", "error", err)
	}
}

func (f *Flow) teardown(ctx context.Context) {
	f.mu.Lock()
	f.epoch++
	prev := f.state
	next := loginState()
	next.Loading = f.busy
	f.state = next
	f.mu.Unlock()

	f.notify(ctx, prev, next)
}
