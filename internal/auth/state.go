package auth

import "fmt"

// Step is where the user currently is in the authentication journey
type Step int

const (
	StepLogin Step = iota
	StepTwoFactor
	StepEmailVerification
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepLogin:
		return "LOGIN"
	case StepTwoFactor:
		return "TWO_FACTOR_AUTH"
	case StepEmailVerification:
		return "EMAIL_VERIFICATION"
	case StepCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// MarshalText renders the step by name in json and yaml output
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStep is the inverse of Step.String
func ParseStep(s string) (Step, error) {
	for _, st := range []Step{StepLogin, StepTwoFactor, StepEmailVerification, StepCompleted} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown auth step %q", s)
}

// State is a snapshot of the flow. UserID and Email are set only for the
// two step-up steps.
type State struct {
	Step    Step   `json:"step" yaml:"step"`
	Loading bool   `json:"isLoading" yaml:"loading"`
	UserID  string `json:"userId,omitempty" yaml:"user_id,omitempty"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Requires2FA reports whether a second-factor code is expected next
func (s State) Requires2FA() bool { return s.Step == StepTwoFactor }

// RequiresEmailVerification reports whether an email code is expected next
func (s State) RequiresEmailVerification() bool { return s.Step == StepEmailVerification }

// Completed reports whether a session has been established
func (s State) Completed() bool { return s.Step == StepCompleted }

func (s State) String() string {
	if s.UserID != "" {
		return fmt.Sprintf("%s(userId=%s, email=%s)", s.Step, s.UserID, s.Email)
	}
	return s.Step.String()
}

func loginState() State     { return State{Step: StepLogin} }
func completedState() State { return State{Step: StepCompleted} }

func challengeState(step Step, userID, email string) (State, error) {
	if step != StepTwoFactor && step != StepEmailVerification {
		return State{}, fmt.Errorf("%w: %s is not a step-up step", ErrWrongStep, step)
	}
	if userID == "" || email == "" {
		return State{}, ErrMissingChallenge
	}
	return State{Step: step, UserID: userID, Email: email}, nil
}
