package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentinel-panel/internal/session"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// Provider abstracts the OAuth2 identity provider.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, token *oauth2.Token) (session.User, error)
	FetchGuilds(ctx context.Context, token *oauth2.Token) ([]session.Guild, error)
}

type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

type DiscordProvider struct {
	oauth   *oauth2.Config
	apiBase string
	client  *http.Client
}

func NewDiscordProvider(cfg DiscordConfig, client *http.Client) *DiscordProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: strings.TrimRight(cfg.APIBaseURL, "/"),
		client:  client,
	}
}

func (p *DiscordProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(p.withClient(ctx), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			detail := retrieveErr.ErrorCode
			if detail == "" && retrieveErr.Response != nil {
				detail = retrieveErr.Response.Status
			}
			return nil, fmt.Errorf("%w: %s", ErrTokenExchangeFailed, detail)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	return token, nil
}

func (p *DiscordProvider) FetchUser(ctx context.Context, token *oauth2.Token) (session.User, error) {
	var user discordgo.User
	if err := p.getJSON(ctx, token, "/users/@me", &user); err != nil {
		return session.User{}, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	if user.ID == "" {
		return session.User{}, fmt.Errorf("%w: empty user id", ErrProfileFetchFailed)
	}
	return session.User{
		ID:            user.ID,
		Username:      user.Username,
		Discriminator: user.Discriminator,
		Avatar:        user.Avatar,
		Email:         user.Email,
		GlobalName:    user.GlobalName,
	}, nil
}

func (p *DiscordProvider) FetchGuilds(ctx context.Context, token *oauth2.Token) ([]session.Guild, error) {
	var guilds []*discordgo.UserGuild
	if err := p.getJSON(ctx, token, "/users/@me/guilds", &guilds); err != nil {
		return nil, err
	}
	out := make([]session.Guild, 0, len(guilds))
	for _, guild := range guilds {
		if guild == nil {
			continue
		}
		out = append(out, session.Guild{
			ID:          guild.ID,
			Name:        guild.Name,
			Icon:        guild.Icon,
			Owner:       guild.Owner,
			Permissions: guild.Permissions,
		})
	}
	return out, nil
}

func (p *DiscordProvider) getJSON(ctx context.Context, token *oauth2.Token, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(p.withClient(ctx), token).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, dst)
}

func (p *DiscordProvider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}
