package auth

import "errors"

var (
	// ErrUnauthenticated means no session cookie or an unknown token.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrSessionExpired means the session existed but its provider token lapsed.
	ErrSessionExpired = errors.New("auth: session expired")
	// ErrInvalidState means the OAuth state was missing, unknown, reused or stale.
	ErrInvalidState = errors.New("auth: invalid or expired state")
	// ErrProviderError means the provider redirected back with an error parameter.
	ErrProviderError = errors.New("auth: provider returned an error")
	ErrMissingCode   = errors.New("auth: missing authorization code")
	// ErrTokenExchangeFailed wraps the provider's token endpoint failure.
	ErrTokenExchangeFailed = errors.New("auth: token exchange failed")
	ErrProfileFetchFailed  = errors.New("auth: profile fetch failed")
)

// ErrorCode maps an auth error onto the short code placed in redirects and
// JSON bodies. Unrecognised errors map to server_error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrInvalidState):
		return "invalid_or_expired_state"
	case errors.Is(err, ErrProviderError):
		return "oauth_provider_error"
	case errors.Is(err, ErrMissingCode):
		return "missing_code"
	case errors.Is(err, ErrTokenExchangeFailed):
		return "token_exchange_failed"
	case errors.Is(err, ErrProfileFetchFailed):
		return "profile_fetch_failed"
	default:
		return "server_error"
	}
}
