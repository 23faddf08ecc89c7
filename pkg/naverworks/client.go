// Package naverworks talks to the NAVER WORKS OAuth 2.0 endpoints used for single sign-on.
package naverworks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	imrocreq "github.com/imroc/req/v3"

	"github.com/ync-lab/intranet/pkg/logutils"
)

const (
	requestTimeout = 10 * time.Second
	profileScope   = "user.profile.read"
)

var (
	// ErrUnauthorized is returned when NAVER WORKS rejects the credentials or the token
	ErrUnauthorized = errors.New("naver works rejected the request")
	// ErrUnavailable is returned for 5xx responses and transport failures
	ErrUnavailable = errors.New("naver works is unavailable")
	// ErrMalformedResponse is returned when a response lacks required fields
	ErrMalformedResponse = errors.New("malformed naver works response")
)

type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

type Client struct {
	opts Options
	req  *imrocreq.Client
}

func NewClient(opts Options) *Client {
	return &Client{
		opts: opts,
		req:  imrocreq.C().SetTimeout(requestTimeout).SetUserAgent("ync-intranet"),
	}
}

// AuthorizationURL returns the login page the browser is redirected to
func (c *Client) AuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.opts.ClientID)
	q.Set("redirect_uri", c.opts.RedirectURI)
	q.Set("scope", profileScope)
	q.Set("response_type", "code")
	q.Set("state", state)
	return c.opts.AuthURL + "?" + q.Encode()
}

// RedirectsToLocalhost reports whether the callback runs on a developer machine
func (c *Client) RedirectsToLocalhost() bool {
	u, err := url.Parse(c.opts.RedirectURI)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    string `json:"expires_in"`
	Scope        string `json:"scope"`
}

type errorResponse struct {
	Code        string `json:"code"`
	Error       string `json:"error"`
	Description string `json:"description"`
}

func (e *errorResponse) String() string {
	return strings.TrimSpace(strings.Join([]string{e.Code, e.Error, e.Description}, " "))
}

func statusError(status int, body *errorResponse) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("status %d %s: %w", status, body, ErrUnauthorized)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("status %d: %w", status, ErrUnavailable)
	default:
		return fmt.Errorf("status %d %s: %w", status, body, ErrUnauthorized)
	}
}

// ExchangeToken trades an authorization code for an access token
func (c *Client) ExchangeToken(ctx context.Context, code string) (string, error) {
	var (
		token   tokenResponse
		errBody errorResponse
	)
	resp, err := c.req.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"code":          code,
			"grant_type":    "authorization_code",
			"client_id":     c.opts.ClientID,
			"client_secret": c.opts.ClientSecret,
			"redirect_uri":  c.opts.RedirectURI,
		}).
		SetSuccessResult(&token).
		SetErrorResult(&errBody).
		Post(c.opts.TokenURL)
	if err != nil {
		return "", fmt.Errorf("exchange token: %v: %w", err, ErrUnavailable)
	}
	if resp.IsErrorState() {
		logutils.Log.WithField("status", resp.StatusCode).Error("naver works token exchange failed")
		return "", fmt.Errorf("exchange token: %w", statusError(resp.StatusCode, &errBody))
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token: %w", ErrMalformedResponse)
	}
	logutils.Log.WithField("token", MaskToken(token.AccessToken)).Info("naver works access token issued")
	return token.AccessToken, nil
}

// UserInfo is the profile of the signed in NAVER WORKS user
type UserInfo struct {
	UserID         string
	Email          string
	Name           string
	Phone          string
	EmployeeNumber string
	Department     string
	Position       string
}

type userResponse struct {
	UserID         string  `json:"userId"`
	Email          string  `json:"email"`
	CellPhone      *string `json:"cellPhone"`
	Telephone      *string `json:"telephone"`
	EmployeeNumber string  `json:"employeeNumber"`
	UserName       *struct {
		LastName  string `json:"lastName"`
		FirstName string `json:"firstName"`
	} `json:"userName"`
	Organizations []struct {
		OrgUnits []struct {
			OrgUnitName  string `json:"orgUnitName"`
			PositionName string `json:"positionName"`
		} `json:"orgUnits"`
	} `json:"organizations"`
}

func (u *userResponse) info() *UserInfo {
	info := &UserInfo{
		UserID:         u.UserID,
		Email:          u.Email,
		EmployeeNumber: u.EmployeeNumber,
	}
	switch {
	case u.CellPhone != nil && *u.CellPhone != "":
		info.Phone = *u.CellPhone
	case u.Telephone != nil:
		info.Phone = *u.Telephone
	}
	if u.UserName != nil {
		info.Name = strings.TrimSpace(u.UserName.LastName + u.UserName.FirstName)
	}
	if len(u.Organizations) > 0 && len(u.Organizations[0].OrgUnits) > 0 {
		unit := u.Organizations[0].OrgUnits[0]
		info.Department = unit.OrgUnitName
		info.Position = unit.PositionName
	}
	return info
}

// UserInfo reads the profile of the token owner
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	var (
		user    userResponse
		errBody errorResponse
	)
	resp, err := c.req.R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		SetSuccessResult(&user).
		SetErrorResult(&errBody).
		Get(c.opts.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info: %v: %w", err, ErrUnavailable)
	}
	if resp.IsErrorState() {
		logutils.Log.WithField("status", resp.StatusCode).Error("naver works user info failed")
		return nil, fmt.Errorf("get user info: %w", statusError(resp.StatusCode, &errBody))
	}

	info := user.info()
	entry := logutils.Log.WithFields(logutils.Fields{"email": MaskEmail(info.Email), "name": info.Name})
	if info.Name == "" {
		entry.Warn("naver works profile without name")
	}
	if info.UserID == "" {
		entry.Warn("naver works profile without userId")
	}
	entry.Info("naver works user info fetched")
	return info, nil
}
