// Package scrape talks to the BoilerJuice website: it logs in with the
// account credentials, locates the tank, and extracts the level, capacity,
// volume and current kerosene price from the account pages. There is no API;
// everything comes out of the HTML.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/willbeeching/boilerjuice/internal/models"
)

const (
	DefaultBaseURL  = "https://www.boilerjuice.com/uk"
	DefaultPriceURL = "https://www.boilerjuice.com/kerosene-prices/"

	defaultTimeout = 30 * time.Second
)

var (
	ErrInvalidCredentials = errors.New("boilerjuice rejected the credentials")
	ErrNoCSRFToken        = errors.New("could not find CSRF token on login page")
	ErrTankNotFound       = errors.New("could not find a tank on the tanks page")
)

// Config holds the account and endpoint settings for the client.
type Config struct {
	BaseURL  string // defaults to DefaultBaseURL
	PriceURL string // defaults to DefaultPriceURL
	Email    string
	Password string
	Timeout  time.Duration
}

// Client is a session-holding scraper for the BoilerJuice account pages.
type Client struct {
	http     *http.Client
	baseURL  string
	priceURL string
	email    string
	password string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return nil, errors.New("boilerjuice email and password are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PriceURL == "" {
		cfg.PriceURL = DefaultPriceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	// The session cookie from the login POST carries the authentication.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		http:     &http.Client{Jar: jar, Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		priceURL: cfg.PriceURL,
		email:    cfg.Email,
		password: cfg.Password,
	}, nil
}

// Login fetches the CSRF token from the login page and posts the sign-in
// form. The site answers 200 for bad credentials too; the tell is that the
// response is still the sign-in page.
func (c *Client) Login(ctx context.Context) error {
	loginURL := c.baseURL + "/users/login"

	doc, err := c.getDocument(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("get login page: %w", err)
	}
	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		return ErrNoCSRFToken
	}

	form := url.Values{
		"user[email]":        {c.email},
		"user[password]":     {c.password},
		"authenticity_token": {token},
		"commit":             {"Sign in"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post login form: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if strings.Contains(string(body), "Sign in") {
		return ErrInvalidCredentials
	}
	return nil
}

// FindTankID discovers the first tank linked from the tanks page, for
// accounts that did not configure a tank id explicitly.
func (c *Client) FindTankID(ctx context.Context) (string, error) {
	doc, err := c.getDocument(ctx, c.baseURL+"/users/tanks")
	if err != nil {
		return "", fmt.Errorf("get tanks page: %w", err)
	}

	var tankID string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if m := tankLinkRe.FindStringSubmatch(href); m != nil {
			tankID = m[1]
			return false
		}
		return true
	})
	if tankID == "" {
		return "", ErrTankNotFound
	}
	return tankID, nil
}

// FetchTank loads and parses the tank edit page.
func (c *Client) FetchTank(ctx context.Context, tankID string) (models.Reading, models.TankInfo, error) {
	doc, err := c.getDocument(ctx, fmt.Sprintf("%s/users/tanks/%s/edit", c.baseURL, tankID))
	if err != nil {
		return models.Reading{}, models.TankInfo{}, fmt.Errorf("get tank page: %w", err)
	}

	reading, info, err := parseTankPage(doc)
	if err != nil {
		return models.Reading{}, models.TankInfo{}, err
	}
	info.TankID = tankID
	return reading, info, nil
}

// FetchPrice scrapes the public kerosene prices page. A missing price is
// not an error: the page layout changes now and then and the price is a
// nice-to-have, so callers get nil and carry on.
func (c *Client) FetchPrice(ctx context.Context) (*float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.priceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get price page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price page returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read price page: %w", err)
	}
	return parsePrice(string(body)), nil
}

// FetchReading performs the full polling cycle: sign in, resolve the tank,
// parse its page, and attach the current price when available.
func (c *Client) FetchReading(ctx context.Context, tankID string) (models.Reading, models.TankInfo, error) {
	if err := c.Login(ctx); err != nil {
		return models.Reading{}, models.TankInfo{}, err
	}

	if tankID == "" {
		var err error
		if tankID, err = c.FindTankID(ctx); err != nil {
			return models.Reading{}, models.TankInfo{}, err
		}
	}

	reading, info, err := c.FetchTank(ctx, tankID)
	if err != nil {
		return models.Reading{}, models.TankInfo{}, err
	}

	if price, err := c.FetchPrice(ctx); err == nil && price != nil {
		reading.PricePence = price
	}
	return reading, info, nil
}

func (c *Client) getDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
