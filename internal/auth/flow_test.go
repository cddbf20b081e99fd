package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/cli/internal/api"
	"github.com/jobtrack/cli/internal/models"
	"github.com/jobtrack/cli/internal/utils"
)

var loginForm = models.LoginForm{Email: "u@x.com", Password: "correct"}

func TestFlow_StartsInLogin(t *testing.T) {
	f, _, _ := newTestFlow(t)
	assert.Equal(t, State{Step: StepLogin}, f.State())
}

// ---- Init ----

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		f, fb, store := newSeededFlow(t, "", nil)
		require.NoError(t, f.Init(ctx))
		assert.Equal(t, State{Step: StepLogin}, f.State())
		assert.Empty(t, fb.calls)
		requireConsistent(t, f, store)
	})

	t.Run("complete credential needs no request", func(t *testing.T) {
		f, fb, store := newSeededFlow(t, "tok-1", testUser("u1"))
		require.NoError(t, f.Init(ctx))
		assert.Equal(t, State{Step: StepCompleted}, f.State())
		assert.Empty(t, fb.calls)
		requireConsistent(t, f, store)
	})

	t.Run("token without user is checked against the profile", func(t *testing.T) {
		f, fb, store := newSeededFlow(t, "tok-1", nil)
		fb.getProfile = func(context.Context) (*models.User, error) { return testUser("u1"), nil }

		require.NoError(t, f.Init(ctx))
		assert.Equal(t, State{Step: StepCompleted}, f.State())
		cred, _ := store.Read(ctx)
		assert.Equal(t, "tok-1", cred.Token)
		assert.Equal(t, "u1", cred.User.ID)
		requireConsistent(t, f, store)
	})

	t.Run("rejected token drops the session", func(t *testing.T) {
		f, fb, store := newSeededFlow(t, "tok-1", nil)
		fb.getProfile = func(context.Context) (*models.User, error) {
			return nil, utils.NewAPIError(http.StatusUnauthorized, "Invalid token", "")
		}

		require.NoError(t, f.Init(ctx))
		assert.Equal(t, State{Step: StepLogin}, f.State())
		assert.False(t, store.IsAuthenticated(ctx))
		requireConsistent(t, f, store)
	})

	t.Run("orphaned user is cleared", func(t *testing.T) {
		f, fb, store := newSeededFlow(t, "", testUser("u1"))
		require.NoError(t, f.Init(ctx))
		assert.Equal(t, State{Step: StepLogin}, f.State())
		assert.Empty(t, fb.calls)
		requireConsistent(t, f, store)
	})
}

// ---- Login ----

func TestLogin_AuthenticatedCompletesAndStores(t *testing.T) {
	f, fb, store := newTestFlow(t)
	user := testUser("u1")
	fb.login = func(_ context.Context, form models.LoginForm) (*api.Outcome, error) {
		assert.Equal(t, loginForm, form)
		return authOutcome("tok-1", user), nil
	}

	require.NoError(t, f.Login(context.Background(), loginForm))

	assert.Equal(t, State{Step: StepCompleted}, f.State())
	cred, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cred.Token)
	assert.Equal(t, user, cred.User)
	requireConsistent(t, f, store)
}

func TestLogin_StepUpOutcomesDoNotStore(t *testing.T) {
	tests := []struct {
		name string
		kind api.OutcomeKind
		want Step
	}{
		{"two factor", api.TwoFactor, StepTwoFactor},
		{"email verification", api.EmailVerification, StepEmailVerification},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, fb, store := newTestFlow(t)
			fb.login = func(context.Context, models.LoginForm) (*api.Outcome, error) {
				return challengeOutcome(tc.kind, "42", "u@x.com"), nil
			}

			require.NoError(t, f.Login(context.Background(), loginForm))

			assert.Equal(t, State{Step: tc.want, UserID: "42", Email: "u@x.com"}, f.State())
			assert.False(t, store.IsAuthenticated(context.Background()))
			requireConsistent(t, f, store)
		})
	}
}

func TestLogin_FailureReturnsToLoginAndPropagates(t *testing.T) {
	f, fb, store := newTestFlow(t)
	require.NoError(t, f.Resume(StepTwoFactor, "42", "u@x.com"))

	wantErr := &utils.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials", Code: "INVALID_CREDENTIALS"}
	fb.login = func(context.Context, models.LoginForm) (*api.Outcome, error) {
		return nil, wantErr
	}

	err := f.Login(context.Background(), loginForm)

	require.Error(t, err)
	apiErr, ok := utils.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
	assert.Equal(t, State{Step: StepLogin}, f.State())
	requireConsistent(t, f, store)
}

func TestLogin_InvalidFormSendsNothing(t *testing.T) {
	f, fb, _ := newTestFlow(t)

	err := f.Login(context.Background(), models.LoginForm{Email: "not-an-email"})

	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, fb.calls)
	assert.Equal(t, State{Step: StepLogin}, f.State())
}

func TestLogin_StoreFailureIsNotCompleted(t *testing.T) {
	fb := &fakeBackend{t: t}
	store := &rawStore{failNext: errStoreDown}
	f := NewFlow(NewService(fb, store))
	fb.login = func(context.Context, models.LoginForm) (*api.Outcome, error) {
		return authOutcome("tok-1", testUser("u1")), nil
	}

	err := f.Login(context.Background(), loginForm)

	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, State{Step: StepLogin}, f.State())
	requireConsistent(t, f, store)
}

// ---- Register ----

func TestRegister(t *testing.T) {
	form := models.RegisterForm{Name: "Ada Lovelace", Email: "ada@x.com", Password: "s3cretpass", ConfirmPassword: "s3cretpass"}

	t.Run("direct session", func(t *testing.T) {
		f, fb, store := newTestFlow(t)
		fb.register = func(got models.RegisterForm) (*api.Outcome, error) {
			assert.Equal(t, form, got)
			return authOutcome("tok-1", testUser("u1")), nil
		}
		require.NoError(t, f.Register(context.Background(), form))
		assert.Equal(t, State{Step: StepCompleted}, f.State())
		requireConsistent(t, f, store)
	})

	t.Run("email verification", func(t *testing.T) {
		f, fb, store := newTestFlow(t)
		fb.register = func(models.RegisterForm) (*api.Outcome, error) {
			return challengeOutcome(api.EmailVerification, "7", "ada@x.com"), nil
		}
		require.NoError(t, f.Register(context.Background(), form))
		assert.Equal(t, State{Step: StepEmailVerification, UserID: "7", Email: "ada@x.com"}, f.State())
		assert.False(t, store.IsAuthenticated(context.Background()))
		requireConsistent(t, f, store)
	})

	t.Run("backend failure", func(t *testing.T) {
		f, fb, store := newTestFlow(t)
		fb.register = func(models.RegisterForm) (*api.Outcome, error) {
			return nil, utils.NewAPIError(http.StatusConflict, "Email already registered", "EMAIL_TAKEN")
		}
		err := f.Register(context.Background(), form)
		assert.Equal(t, "EMAIL_TAKEN", utils.ErrorCode(err))
		assert.Equal(t, State{Step: StepLogin}, f.State())
		requireConsistent(t, f, store)
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		f, fb, _ := newTestFlow(t)
		bad := form
		bad.ConfirmPassword = "other-pass"
		require.Error(t, f.Register(context.Background(), bad))
		assert.Empty(t, fb.calls)
	})
}

// ---- step-up verification ----

func TestVerify2FA_Completes(t *testing.T) {
	f, fb, store := newTestFlow(t)
	require.NoError(t, f.Resume(StepTwoFactor, "42", "u@x.com"))
	fb.verify2FA = func(userID, email, code string) (*models.AuthResponse, error) {
		assert.Equal(t, "42", userID)
		assert.Equal(t, "u@x.com", email)
		assert.Equal(t, "000000", code)
		return &models.AuthResponse{User: testUser("42"), Token: "tok-2"}, nil
	}

	require.NoError(t, f.Verify2FA(context.Background(), "000000"))

	assert.Equal(t, State{Step: StepCompleted}, f.State())
	cred, _ := store.Read(context.Background())
	assert.Equal(t, "tok-2", cred.Token)
	requireConsistent(t, f, store)
}

func TestVerifyEmail_Completes(t *testing.T) {
	f, fb, store := newTestFlow(t)
	require.NoError(t, f.Resume(StepEmailVerification, "7", "ada@x.com"))
	fb.verifyEmail = func(userID, email, code string) (*models.AuthResponse, error) {
		assert.Equal(t, "7", userID)
		assert.Equal(t, "ada@x.com", email)
		return &models.AuthResponse{User: testUser("7"), Token: "tok-3"}, nil
	}

	require.NoError(t, f.VerifyEmail(context.Background(), "123456"))

	assert.Equal(t, State{Step: StepCompleted}, f.State())
	requireConsistent(t, f, store)
}

func TestVerify_FailureKeepsChallenge(t *testing.T) {
	f, fb, store := newTestFlow(t)
	require.NoError(t, f.Resume(StepTwoFactor, "42", "u@x.com"))
	fb.verify2FA = func(string, string, string) (*models.AuthResponse, error) {
		return nil, utils.NewAPIError(http.StatusBadRequest, "Invalid code", "INVALID_CODE")
	}

	err := f.Verify2FA(context.Background(), "111111")

	assert.Equal(t, "INVALID_CODE", utils.ErrorCode(err))
	assert.Equal(t, State{Step: StepTwoFactor, UserID: "42", Email: "u@x.com"}, f.State())
	requireConsistent(t, f, store)
}

func TestVerify_WrongStep(t *testing.T) {
	f, fb, _ := newTestFlow(t)

	assert.ErrorIs(t, f.Verify2FA(context.Background(), "123456"), ErrWrongStep)

	require.NoError(t, f.Resume(StepTwoFactor, "42", "u@x.com"))
	assert.ErrorIs(t, f.VerifyEmail(context.Background(), "123456"), ErrWrongStep)

	assert.Empty(t, fb.calls)
	assert.Equal(t, StepTwoFactor, f.State().Step)
}

func TestVerify_RejectsMalformedCode(t *testing.T) {
	f, fb, _ := newTestFlow(t)
	require.NoError(t, f.Resume(StepTwoFactor, "42", "u@x.com"))

	var verr *utils.ValidationError
	require.ErrorAs(t, f.Verify2FA(context.Background(), "12 34"), &verr)
	assert.Equal(t, "code", verr.Field)
	assert.Empty(t, fb.calls)
}

func TestResume(t *testing.T) {
	f, _, _ := newTestFlow(t)

	assert.ErrorIs(t, f.Resume(StepTwoFactor, "42", ""), ErrMissingChallenge)
	assert.ErrorIs(t, f.Resume(StepCompleted, "42", "u@x.com"), ErrWrongStep)
	assert.Equal(t, State{Step: StepLogin}, f.State())

	require.NoError(t, f.Resume(StepEmailVerification, "42", "u@x.com"))
	assert.True(t, f.State().RequiresEmailVerification())
}

// ---- side channels ----

func TestResendCode_PurposeFollowsStep(t *testing.T) {
	tests := []struct {
		step    Step
		purpose string
	}{
		{StepTwoFactor, models.PurposeTwoFactor},
		{StepEmailVerification, models.PurposeEmailVerification},
	}
	for _, tc := range tests {
		t.Run(tc.step.String(), func(t *testing.T) {
			f, fb, _ := newTestFlow(t)
			require.NoError(t, f.Resume(tc.step, "42", "u@x.com"))
			fb.resendCode = func(userID, email, purpose string) (*models.Ack, error) {
				assert.Equal(t, "42", userID)
				assert.Equal(t, "u@x.com", email)
				assert.Equal(t, tc.purpose, purpose)
				return &models.Ack{Message: "Code sent"}, nil
			}

			ack, err := f.ResendCode(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Code sent", ack.Message)
			assert.Equal(t, State{Step: tc.step, UserID: "42", Email: "u@x.com"}, f.State())
		})
	}
}

func TestResendCode_FailureKeepsState(t *testing.T) {
	f, fb, _ := newTestFlow(t)
	require.NoError(t, f.Resume(StepTwoFactor, "42", "u@x.com"))
	fb.resendCode = func(string, string, string) (*models.Ack, error) {
		return nil, utils.NewAPIError(http.StatusTooManyRequests, "Slow down", "RATE_LIMITED")
	}

	_, err := f.ResendCode(context.Background())
	assert.Equal(t, "RATE_LIMITED", utils.ErrorCode(err))
	assert.Equal(t, State{Step: StepTwoFactor, UserID: "42", Email: "u@x.com"}, f.State())
}

func TestResendCode_OutsideStepUp(t *testing.T) {
	f, _, _ := newTestFlow(t)
	_, err := f.ResendCode(context.Background())
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestForgotPassword(t *testing.T) {
	tests := []struct {
		name    string
		backend error
		wantErr bool
	}{
		{name: "accepted"},
		{name: "unknown account", backend: utils.NewAPIError(http.StatusNotFound, "User not found", "")},
		{name: "server error", backend: utils.NewAPIError(http.StatusInternalServerError, "boom", ""), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, fb, store := newTestFlow(t)
			fb.forgotPassword = func(email string) (*models.Ack, error) {
				assert.Equal(t, "u@x.com", email)
				if tc.backend != nil {
					return nil, tc.backend
				}
				return &models.Ack{Message: "Reset email sent to u@x.com"}, nil
			}

			ack, err := f.ForgotPassword(context.Background(), "u@x.com")
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, ForgotPasswordMessage, ack.Message)
			}
			assert.Equal(t, State{Step: StepLogin}, f.State())
			assert.False(t, store.IsAuthenticated(context.Background()))
		})
	}
}

func TestForgotPassword_InvalidEmail(t *testing.T) {
	f, fb, _ := newTestFlow(t)
	_, err := f.ForgotPassword(context.Background(), "nope")
	require.Error(t, err)
	assert.Empty(t, fb.calls)
}

func TestVerifyResetCode(t *testing.T) {
	no := false
	tests := []struct {
		name string
		ack  *models.Ack
		want bool
	}{
		{"plain ack", &models.Ack{Message: "ok"}, true},
		{"explicit invalid", &models.Ack{Valid: &no}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, fb, store := newTestFlow(t)
			fb.verifyResetCode = func(email, code string) (*models.Ack, error) { return tc.ack, nil }

			ok, err := f.VerifyResetCode(context.Background(), "u@x.com", "123456")
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
			assert.Equal(t, State{Step: StepLogin}, f.State())
			assert.False(t, store.IsAuthenticated(context.Background()))
		})
	}
}

func TestResetPassword(t *testing.T) {
	form := models.ResetPasswordForm{Email: "u@x.com", Code: "123456", NewPassword: "n3wpassword"}

	t.Run("logs in directly", func(t *testing.T) {
		f, fb, store := newTestFlow(t)
		fb.resetPassword = func(got models.ResetPasswordForm) (*models.AuthResponse, error) {
			assert.Equal(t, form, got)
			return &models.AuthResponse{User: testUser("u1"), Token: "tok-9"}, nil
		}
		require.NoError(t, f.ResetPassword(context.Background(), form))
		assert.Equal(t, State{Step: StepCompleted}, f.State())
		assert.NotContains(t, fb.calls, "login")
		requireConsistent(t, f, store)
	})

	t.Run("failure keeps state", func(t *testing.T) {
		f, fb, store := newTestFlow(t)
		fb.resetPassword = func(models.ResetPasswordForm) (*models.AuthResponse, error) {
			return nil, utils.NewAPIError(http.StatusBadRequest, "Invalid or expired code", "INVALID_CODE")
		}
		require.Error(t, f.ResetPassword(context.Background(), form))
		assert.Equal(t, State{Step: StepLogin}, f.State())
		requireConsistent(t, f, store)
	})
}

// ---- session maintenance ----

func TestRefreshToken_KeepsUser(t *testing.T) {
	f, fb, store := completeFlow(t)
	fb.refreshToken = func(context.Context) (string, error) { return "tok-2", nil }

	require.NoError(t, f.RefreshToken(context.Background()))

	cred, _ := store.Read(context.Background())
	assert.Equal(t, "tok-2", cred.Token)
	assert.Equal(t, testUser("u1"), cred.User)
	assert.Equal(t, State{Step: StepCompleted}, f.State())
}

func TestRefreshToken_RequiresSession(t *testing.T) {
	f, fb, _ := newTestFlow(t)
	assert.ErrorIs(t, f.RefreshToken(context.Background()), ErrNotAuthenticated)
	assert.Empty(t, fb.calls)
}

func TestRefreshUser(t *testing.T) {
	t.Run("replaces cached user", func(t *testing.T) {
		f, fb, store := completeFlow(t)
		updated := testUser("u1")
		updated.Name = "Renamed"
		fb.getProfile = func(context.Context) (*models.User, error) { return updated, nil }

		f.RefreshUser(context.Background())

		user, ok := f.User(context.Background())
		require.True(t, ok)
		assert.Equal(t, "Renamed", user.Name)
		cred, _ := store.Read(context.Background())
		assert.Equal(t, "tok-1", cred.Token)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		f, fb, store := completeFlow(t)
		fb.getProfile = func(context.Context) (*models.User, error) {
			return nil, utils.NewAPIError(http.StatusInternalServerError, "boom", "")
		}

		f.RefreshUser(context.Background())

		assert.Equal(t, State{Step: StepCompleted}, f.State())
		user, ok := f.User(context.Background())
		require.True(t, ok)
		assert.Equal(t, "User u1", user.Name)
		requireConsistent(t, f, store)
	})

	t.Run("no session sends nothing", func(t *testing.T) {
		f, fb, _ := newTestFlow(t)
		f.RefreshUser(context.Background())
		assert.Empty(t, fb.calls)
	})
}

func TestSessionExpiredDuringRefreshUser(t *testing.T) {
	f, fb, store := completeFlow(t)
	fb.getProfile = func(ctx context.Context) (*models.User, error) {
		// what the transport does on a 401 for an authenticated request
		f.SessionExpired(ctx)
		return nil, utils.NewAPIError(http.StatusUnauthorized, "Token expired", "")
	}

	f.RefreshUser(context.Background())

	assert.Equal(t, State{Step: StepLogin}, f.State())
	assert.False(t, store.IsAuthenticated(context.Background()))
	requireConsistent(t, f, store)
}

func TestLogoutDuringLoginDoesNotResurrectSession(t *testing.T) {
	f, fb, store := newTestFlow(t)
	fb.login = func(ctx context.Context, _ models.LoginForm) (*api.Outcome, error) {
		require.NoError(t, f.Logout(ctx))
		return authOutcome("tok-1", testUser("u1")), nil
	}

	require.NoError(t, f.Login(context.Background(), loginForm))

	assert.Equal(t, State{Step: StepLogin}, f.State())
	assert.False(t, store.IsAuthenticated(context.Background()))
	requireConsistent(t, f, store)
}

func TestLogoutDuringRefreshTokenDropsRotatedToken(t *testing.T) {
	f, fb, store := completeFlow(t)
	fb.refreshToken = func(ctx context.Context) (string, error) {
		require.NoError(t, f.Logout(ctx))
		return "tok-2", nil
	}

	err := f.RefreshToken(context.Background())

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, State{Step: StepLogin}, f.State())
	cred, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cred.Token)
	assert.Nil(t, cred.User)
	requireConsistent(t, f, store)
}

func TestLogoutDuringRefreshUserDropsSession(t *testing.T) {
	f, fb, store := completeFlow(t)
	fb.getProfile = func(ctx context.Context) (*models.User, error) {
		require.NoError(t, f.Logout(ctx))
		return testUser("u1"), nil
	}

	f.RefreshUser(context.Background())

	assert.Equal(t, State{Step: StepLogin}, f.State())
	cred, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cred.Token)
	assert.Nil(t, cred.User)
	requireConsistent(t, f, store)
}

func TestFailedReloginKeepsStoredSession(t *testing.T) {
	ctx := context.Background()
	rejected := utils.NewAPIError(http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS")

	t.Run("login", func(t *testing.T) {
		f, fb, store := completeFlow(t)
		fb.login = func(context.Context, models.LoginForm) (*api.Outcome, error) {
			return nil, rejected
		}

		err := f.Login(ctx, loginForm)

		assert.ErrorIs(t, err, rejected)
		assert.Equal(t, State{Step: StepCompleted}, f.State())
		assert.True(t, store.IsAuthenticated(ctx))
		requireConsistent(t, f, store)
	})

	t.Run("register", func(t *testing.T) {
		f, fb, store := completeFlow(t)
		fb.register = func(models.RegisterForm) (*api.Outcome, error) {
			return nil, utils.NewAPIError(http.StatusConflict, "Email already registered", "EMAIL_TAKEN")
		}
		form := models.RegisterForm{Name: "Ada Lovelace", Email: "ada@x.com", Password: "s3cretpass", ConfirmPassword: "s3cretpass"}

		err := f.Register(ctx, form)

		assert.Equal(t, "EMAIL_TAKEN", utils.ErrorCode(err))
		assert.Equal(t, State{Step: StepCompleted}, f.State())
		assert.True(t, store.IsAuthenticated(ctx))
		requireConsistent(t, f, store)
	})
}

func TestLogout_IdempotentFromAnyStep(t *testing.T) {
	ctx := context.Background()

	f, _, store := completeFlow(t)
	require.NoError(t, f.Logout(ctx))
	require.NoError(t, f.Logout(ctx))
	assert.Equal(t, State{Step: StepLogin}, f.State())
	assert.False(t, store.IsAuthenticated(ctx))
	requireConsistent(t, f, store)

	require.NoError(t, f.Resume(StepTwoFactor, "42", "u@x.com"))
	require.NoError(t, f.Logout(ctx))
	assert.Equal(t, State{Step: StepLogin}, f.State())
}

// ---- concurrency, timeouts, lifecycle ----

func TestConcurrentOperationIsRejected(t *testing.T) {
	f, fb, store := newTestFlow(t)
	started := make(chan struct{})
	release := make(chan struct{})
	fb.login = func(context.Context, models.LoginForm) (*api.Outcome, error) {
		close(started)
		<-release
		return challengeOutcome(api.TwoFactor, "42", "u@x.com"), nil
	}

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = f.Login(context.Background(), loginForm)
	}()
	<-started

	assert.True(t, f.State().Loading)
	assert.ErrorIs(t, f.Login(context.Background(), loginForm), ErrBusy)
	_, err := f.ForgotPassword(context.Background(), "u@x.com")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, f.Resume(StepEmailVerification, "1", "a@b.com"), ErrBusy)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, State{Step: StepTwoFactor, UserID: "42", Email: "u@x.com"}, f.State())
	assert.Equal(t, []string{"login"}, fb.calls)
	requireConsistent(t, f, store)
}

func TestOperationTimeout(t *testing.T) {
	f, fb, store := newTestFlow(t, WithTimeout(20*time.Millisecond))
	fb.login = func(ctx context.Context, _ models.LoginForm) (*api.Outcome, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	err := f.Login(context.Background(), loginForm)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, State{Step: StepLogin}, f.State())
	requireConsistent(t, f, store)
}

func TestObserverSeesLoadingTransitions(t *testing.T) {
	var seen []State
	f, fb, _ := newTestFlow(t, WithObserver(func(_, next State) { seen = append(seen, next) }))
	fb.login = func(context.Context, models.LoginForm) (*api.Outcome, error) {
		return authOutcome("tok-1", testUser("u1")), nil
	}

	require.NoError(t, f.Login(context.Background(), loginForm))

	assert.Equal(t, []State{
		{Step: StepLogin, Loading: true},
		{Step: StepCompleted},
	}, seen)
}

func TestClose(t *testing.T) {
	f, fb, store := completeFlow(t)
	f.Close()

	assert.ErrorIs(t, f.Login(context.Background(), loginForm), ErrClosed)
	assert.ErrorIs(t, f.Init(context.Background()), ErrClosed)
	assert.Empty(t, fb.calls)
	// the session outlives the flow
	assert.True(t, store.IsAuthenticated(context.Background()))
}
