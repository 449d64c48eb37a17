package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
)

// FacebookUser is the subset of the Graph API /me response used to build a
// principal and its profile.
type FacebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (u *FacebookUser) PictureURL() string {
	return u.Picture.Data.URL
}

// FacebookProvider resolves a client-supplied access token to the Facebook
// account it belongs to.
type FacebookProvider interface {
	Me(ctx context.Context, accessToken string) (*FacebookUser, error)
}

type FacebookClient struct {
	graphURL   string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewFacebookClient(cfg config.FacebookConfig, logger *logrus.Logger) *FacebookClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FacebookClient{
		graphURL:   cfg.GraphURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *FacebookClient) Me(ctx context.Context, accessToken string) (*FacebookUser, error) {
	q := url.Values{}
	q.Set("fields", "id,name,email,picture")
	q.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Facebook Graph API request failed")
		return nil, fmt.Errorf("%w: facebook request failed: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: read facebook response: %v", ErrInternal, err)
	}
	if resp.StatusCode >= 500 {
		c.logger.WithField("status", resp.StatusCode).Error("Facebook Graph API unavailable")
		return nil, fmt.Errorf("%w: facebook status %d", ErrInternal, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Warn("Facebook rejected access token")
		return nil, ErrTokenInvalid
	}

	var user FacebookUser
	if err := json.Unmarshal(body, &user); err != nil || user.ID == "" {
		return nil, ErrTokenInvalid
	}
	return &user, nil
}
