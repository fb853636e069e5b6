package auth

import (
	"context"
	"fmt"
	"time"

	"sentinel-panel/internal/session"

	"go.uber.org/zap"
)

// Phase marks how far a login attempt progressed. It is logged with failures.
type Phase string

const (
	PhaseInit           Phase = "init"
	PhaseStateIssued    Phase = "state_issued"
	PhaseCodeReceived   Phase = "code_received"
	PhaseTokenExchanged Phase = "token_exchanged"
	PhaseProfileFetched Phase = "profile_fetched"
	PhaseSessionCreated Phase = "session_created"
	PhaseError          Phase = "error"
)

type CallbackInput struct {
	Code  string
	State string
	Error string
}

type CallbackResult struct {
	Token   string
	Session session.Session
}

type Service struct {
	store    *session.Store
	provider Provider
	logger   *zap.Logger
}

func NewService(store *session.Store, provider Provider, logger *zap.Logger) *Service {
	return &Service{store: store, provider: provider, logger: logger}
}

// BeginLogin issues a single-use state token and returns the provider URL
// the browser should visit.
func (s *Service) BeginLogin() (string, error) {
	state, err := s.store.IssueState()
	if err != nil {
		s.fail(PhaseInit, err)
		return "", fmt.Errorf("issue state: %w", err)
	}
	return s.provider.AuthCodeURL(state), nil
}

// HandleCallback completes a login. A presented state token is spent by
// every attempt, including ones that fail before the code is checked.
func (s *Service) HandleCallback(ctx context.Context, in CallbackInput) (CallbackResult, error) {
	stateValid := in.State != "" && s.store.ConsumeState(in.State)

	if in.Error != "" {
		s.fail(PhaseStateIssued, ErrProviderError, zap.String("provider_error", in.Error))
		return CallbackResult{}, fmt.Errorf("%w: %s", ErrProviderError, in.Error)
	}
	if in.Code == "" {
		s.fail(PhaseStateIssued, ErrMissingCode)
		return CallbackResult{}, ErrMissingCode
	}
	if !stateValid {
		s.fail(PhaseCodeReceived, ErrInvalidState)
		return CallbackResult{}, ErrInvalidState
	}

	token, err := s.provider.Exchange(ctx, in.Code)
	if err != nil {
		s.fail(PhaseCodeReceived, err)
		return CallbackResult{}, err
	}

	user, err := s.provider.FetchUser(ctx, token)
	if err != nil {
		s.fail(PhaseTokenExchanged, err)
		return CallbackResult{}, err
	}

	guilds, err := s.provider.FetchGuilds(ctx, token)
	if err != nil {
		s.logger.Warn("guild fetch failed, continuing without guilds",
			zap.String("phase", string(PhaseProfileFetched)),
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		guilds = []session.Guild{}
	}

	now := s.store.Now()
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(session.MaxLifetime)
	}
	data := session.Session{
		User:         user,
		Guilds:       guilds,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}
	sessionToken, err := s.store.CreateSession(data)
	if err != nil {
		s.fail(PhaseProfileFetched, err)
		return CallbackResult{}, fmt.Errorf("create session: %w", err)
	}
	data.Token = sessionToken

	s.logger.Info("login completed",
		zap.String("phase", string(PhaseSessionCreated)),
		zap.String("user_id", user.ID),
		zap.Int("guilds", len(guilds)),
		zap.Duration("expires_in", expiresAt.Sub(now).Round(time.Second)),
	)
	return CallbackResult{Token: sessionToken, Session: data}, nil
}

func (s *Service) Logout(token string) {
	if token != "" {
		s.store.DeleteSession(token)
	}
}

func (s *Service) fail(reached Phase, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("phase", string(PhaseError)),
		zap.String("reached", string(reached)),
		zap.String("code", ErrorCode(err)),
		zap.Error(err),
	)
	s.logger.Warn("login failed", fields...)
}
