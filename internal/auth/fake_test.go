package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/cli/internal/api"
	"github.com/jobtrack/cli/internal/models"
	"github.com/jobtrack/cli/internal/session"
)

// fakeBackend implements Backend with per-call hooks; unset hooks fail the test.
type fakeBackend struct {
	t *testing.T

	register        func(models.RegisterForm) (*api.Outcome, error)
	login           func(context.Context, models.LoginForm) (*api.Outcome, error)
	verifyEmail     func(userID, email, code string) (*models.AuthResponse, error)
	verify2FA       func(userID, email, code string) (*models.AuthResponse, error)
	resendCode      func(userID, email, purpose string) (*models.Ack, error)
	forgotPassword  func(email string) (*models.Ack, error)
	verifyResetCode func(email, code string) (*models.Ack, error)
	resetPassword   func(models.ResetPasswordForm) (*models.AuthResponse, error)
	refreshToken    func(context.Context) (string, error)
	getProfile      func(context.Context) (*models.User, error)

	calls []string
}

func (f *fakeBackend) record(name string, set bool) {
	f.calls = append(f.calls, name)
	if !set {
		f.t.Fatalf("unexpected backend call: %s", name)
	}
}

func (f *fakeBackend) Register(_ context.Context, form models.RegisterForm) (*api.Outcome, error) {
	f.record("register", f.register != nil)
	return f.register(form)
}

func (f *fakeBackend) Login(ctx context.Context, form models.LoginForm) (*api.Outcome, error) {
	f.record("login", f.login != nil)
	return f.login(ctx, form)
}

func (f *fakeBackend) VerifyEmail(_ context.Context, userID, email, code string) (*models.AuthResponse, error) {
	f.record("verify_email", f.verifyEmail != nil)
	return f.verifyEmail(userID, email, code)
}

func (f *fakeBackend) Verify2FA(_ context.Context, userID, email, code string) (*models.AuthResponse, error) {
	f.record("verify_2fa", f.verify2FA != nil)
	return f.verify2FA(userID, email, code)
}

func (f *fakeBackend) ResendCode(_ context.Context, userID, email, purpose string) (*models.Ack, error) {
	f.record("resend_code", f.resendCode != nil)
	return f.resendCode(userID, email, purpose)
}

func (f *fakeBackend) ForgotPassword(_ context.Context, email string) (*models.Ack, error) {
	f.record("forgot_password", f.forgotPassword != nil)
	return f.forgotPassword(email)
}

func (f *fakeBackend) VerifyResetCode(_ context.Context, email, code string) (*models.Ack, error) {
	f.record("verify_reset_code", f.verifyResetCode != nil)
	return f.verifyResetCode(email, code)
}

func (f *fakeBackend) ResetPassword(_ context.Context, form models.ResetPasswordForm) (*models.AuthResponse, error) {
	f.record("reset_password", f.resetPassword != nil)
	return f.resetPassword(form)
}

func (f *fakeBackend) RefreshToken(ctx context.Context) (string, error) {
	f.record("refresh_token", f.refreshToken != nil)
	return f.refreshToken(ctx)
}

func (f *fakeBackend) GetProfile(ctx context.Context) (*models.User, error) {
	f.record("get_profile", f.getProfile != nil)
	return f.getProfile(ctx)
}

// rawStore is a session.Store whose contents tests can seed directly,
// including half credentials left behind by older versions or crashes.
type rawStore struct {
	mu       sync.Mutex
	token    string
	user     *models.User
	failNext error
}

func (r *rawStore) Store(_ context.Context, token string, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	if token == "" || user == nil {
		return session.ErrIncompleteCredential
	}
	r.token, r.user = token, user
	return nil
}

func (r *rawStore) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token, r.user = "", nil
	return nil
}

func (r *rawStore) Read(context.Context) (session.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return session.Credential{Token: r.token, User: r.user}, nil
}

func (r *rawStore) IsAuthenticated(context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token != ""
}

var errStoreDown = errors.New("store unavailable")

// ---- helpers ----

func testUser(id string) *models.User {
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &models.User{
		ID:            id,
		Email:         "u@x.com",
		Name:          "User " + id,
		Role:          models.RoleUser,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func authOutcome(token string, user *models.User) *api.Outcome {
	return &api.Outcome{Kind: api.Authenticated, Auth: &models.AuthResponse{User: user, Token: token}}
}

func challengeOutcome(kind api.OutcomeKind, userID, email string) *api.Outcome {
	return &api.Outcome{Kind: kind, Challenge: &api.Challenge{UserID: userID, Email: email}}
}

func newTestFlow(t *testing.T, opts ...FlowOption) (*Flow, *fakeBackend, *session.MemoryStore) {
	t.Helper()
	fb := &fakeBackend{t: t}
	store := session.NewMemoryStore()
	return NewFlow(NewService(fb, store), opts...), fb, store
}

func newSeededFlow(t *testing.T, token string, user *models.User) (*Flow, *fakeBackend, *rawStore) {
	t.Helper()
	fb := &fakeBackend{t: t}
	store := &rawStore{token: token, user: user}
	return NewFlow(NewService(fb, store)), fb, store
}

// completeFlow returns a flow that is already logged in as testUser("u1")
// with token "tok-1".
func completeFlow(t *testing.T) (*Flow, *fakeBackend, *session.MemoryStore) {
	t.Helper()
	f, fb, store := newTestFlow(t)
	require.NoError(t, store.Store(context.Background(), "tok-1", testUser("u1")))
	require.NoError(t, f.Init(context.Background()))
	require.Equal(t, StepCompleted, f.State().Step)
	return f, fb, store
}

// requireConsistent checks the store/state invariants that must hold after
// every operation.
func requireConsistent(t *testing.T, f *Flow, store session.Store) {
	t.Helper()
	ctx := context.Background()
	cred, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred.Token != "", cred.User != nil, "token and user must be stored together")
	st := f.State()
	if st.Completed() {
		assert.True(t, store.IsAuthenticated(ctx), "COMPLETED without a stored session")
	}
	if st.Requires2FA() || st.RequiresEmailVerification() {
		assert.NotEmpty(t, st.UserID)
		assert.NotEmpty(t, st.Email)
	}
	assert.False(t, st.Loading, "flow left loading")
}
