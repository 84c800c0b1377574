package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	watchparty_errors "watchparty/pkg/errors"

	"github.com/google/uuid"
)

// Media resolves catalog references. The catalog itself lives behind a
// separate service; the room core only ever asks whether a title exists.
type Media interface {
	Exists(ctx context.Context, mediaID string) (bool, error)
}

// Identity resolves user references against the account service.
type Identity interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type HTTPMedia struct {
	baseURL string
	client  *http.Client
}

func NewHTTPMedia(baseURL string) *HTTPMedia {
	return &HTTPMedia{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (g *HTTPMedia) Exists(ctx context.Context, mediaID string) (bool, error) {
	return headExists(ctx, g.client, fmt.Sprintf("%s/v1/media/%s", g.baseURL, mediaID))
}

type HTTPIdentity struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIdentity(baseURL string) *HTTPIdentity {
	return &HTTPIdentity{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (g *HTTPIdentity) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return headExists(ctx, g.client, fmt.Sprintf("%s/v1/users/%s", g.baseURL, userID))
}

func headExists(ctx context.Context, client *http.Client, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, watchparty_errors.ErrServiceUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, watchparty_errors.ErrServiceUnavailable
	}
}
