package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/foodcrm/internal/common"
)

const (
	pathRegister = common.APIPrefix + "/auth/register"
	pathLogin    = common.APIPrefix + "/auth/login"
	pathRefresh  = common.APIPrefix + "/auth/refresh"
	pathPing     = common.APIPrefix + "/ping"
)

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, pathRegister, nil, common.Credentials{Username: username, Password: password}, nil, false)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (common.TokenPair, error) {
	var out common.TokenPair
	err := c.do(ctx, http.MethodPost, pathLogin, nil, common.Credentials{Username: username, Password: password}, &out, false)
	return out, err
}

// Refresh trades a refresh token for a new token pair.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (common.TokenPair, error) {
	var out common.TokenPair
	err := c.do(ctx, http.MethodPost, pathRefresh, nil, common.RefreshRequest{RefreshToken: refreshToken}, &out, false)
	return out, err
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var out common.PingResponse
	if err := c.do(ctx, http.MethodGet, pathPing, nil, nil, &out, false); err != nil {
		return err
	}
	if out.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}
