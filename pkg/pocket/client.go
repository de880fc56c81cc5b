package pocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mpotapov/pocket-reminder-bot/environments"
	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

// Client talks to the Pocket v3 API: the two-step OAuth handshake and
// the unread-item listing.
type Client struct {
	httpClient  *resty.Client
	baseURL     string
	consumerKey string
	redirectURI string
}

func NewClient(cfg environments.PocketConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json; charset=UTF8").
		SetHeader("X-Accept", "application/json")

	return &Client{
		httpClient:  client,
		baseURL:     cfg.APIBaseURL,
		consumerKey: cfg.ConsumerKey,
		redirectURI: cfg.RedirectURI,
	}
}

type requestTokenRequest struct {
	ConsumerKey string `json:"consumer_key"`
	RedirectURI string `json:"redirect_uri"`
}

type requestTokenResponse struct {
	Code string `json:"code"`
}

type authorizeRequest struct {
	ConsumerKey string `json:"consumer_key"`
	Code        string `json:"code"`
}

type authorizeResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

type getRequest struct {
	ConsumerKey string `json:"consumer_key"`
	AccessToken string `json:"access_token"`
	State       string `json:"state"`
	DetailType  string `json:"detailType"`
}

type getResponse struct {
	List map[string]getItem `json:"list"`
}

type getItem struct {
	ItemID        string `json:"item_id"`
	GivenURL      string `json:"given_url"`
	ResolvedURL   string `json:"resolved_url"`
	GivenTitle    string `json:"given_title"`
	ResolvedTitle string `json:"resolved_title"`
}

// BeginHandshake obtains a request code for a new authorization flow.
func (c *Client) BeginHandshake(ctx context.Context) (string, error) {
	var result requestTokenResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(requestTokenRequest{
			ConsumerKey: c.consumerKey,
			RedirectURI: c.redirectURI,
		}).
		SetResult(&result).
		Post(c.baseURL + "/v3/oauth/request")

	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from oauth/request: %s", resp.StatusCode(), resp.String())
	}

	if result.Code == "" {
		return "", fmt.Errorf("oauth/request returned an empty code")
	}

	logger.Debugf("Obtained request code from Pocket")

	return result.Code, nil
}

// CompleteHandshake exchanges a request code for an access token. It
// succeeds only after the user approved the request in their browser.
func (c *Client) CompleteHandshake(ctx context.Context, requestCode string) (string, error) {
	var result authorizeResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(authorizeRequest{
			ConsumerKey: c.consumerKey,
			Code:        requestCode,
		}).
		SetResult(&result).
		Post(c.baseURL + "/v3/oauth/authorize")

	if err != nil {
		return "", fmt.Errorf("failed to authorize: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from oauth/authorize: %s", resp.StatusCode(), resp.String())
	}

	if result.AccessToken == "" {
		return "", fmt.Errorf("oauth/authorize returned an empty access token")
	}

	logger.Infof("Pocket authorization completed for user %s", result.Username)

	return result.AccessToken, nil
}

// AuthorizeURL builds the link the user must open to approve the
// pending request code.
func (c *Client) AuthorizeURL(requestCode string) string {
	return fmt.Sprintf("%s/auth/authorize?request_token=%s&redirect_uri=%s",
		c.baseURL, url.QueryEscape(requestCode), url.QueryEscape(c.redirectURI))
}

// FetchUnread lists the unread items saved under the access token.
func (c *Client) FetchUnread(ctx context.Context, accessToken string) ([]domain.Item, error) {
	var result getResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(getRequest{
			ConsumerKey: c.consumerKey,
			AccessToken: accessToken,
			State:       "unread",
			DetailType:  "simple",
		}).
		SetResult(&result).
		Post(c.baseURL + "/v3/get")

	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from v3/get: %s", resp.StatusCode(), resp.String())
	}

	items := make([]domain.Item, 0, len(result.List))
	for _, raw := range result.List {
		item := domain.Item{
			ID:    raw.ItemID,
			Title: raw.ResolvedTitle,
			URL:   raw.ResolvedURL,
		}
		if item.Title == "" {
			item.Title = raw.GivenTitle
		}
		if item.URL == "" {
			item.URL = raw.GivenURL
		}
		items = append(items, item)
	}

	return items, nil
}
