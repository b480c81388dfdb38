package mst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultApiUrl = "https://esgoo.net/api-mst/"

var (
	ErrNotFound     = errors.New("tax id not found")
	ErrInvalidTaxID = errors.New("tax id must be 10 to 14 digits")
)

var log = logrus.StandardLogger().WithField("package", "mst")

var taxIdRegexp = regexp.MustCompile(`^[0-9]{10,14}$`)

// Company is what the registry knows about a tax id.
type Company struct {
	TaxID          string `json:"mst"`
	Name           string `json:"companyName"`
	Address        string `json:"companyAddress"`
	Representative string `json:"representative"`
}

type envelope struct {
	Error     int    `json:"error"`
	ErrorText string `json:"error_text"`
	Data      *struct {
		Id      string `json:"id"`
		Ten     string `json:"ten"`
		Dc      string `json:"dc"`
		Daidien string `json:"daidien"`
	} `json:"data"`
}

// Client looks companies up in the public tax registry by their tax id
// (mã số thuế).
type Client struct {
	http     *http.Client
	endpoint *url.URL
}

func New(endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultApiUrl
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %s is not supported", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return &Client{
		endpoint: u,
		http:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *Client) SetHttpTransport(transport http.RoundTripper) {
	c.http.Transport = transport
}

// Normalize strips the separators people type into tax ids and checks what
// is left.
func Normalize(taxId string) (string, error) {
	taxId = strings.NewReplacer("-", "", " ", "", ".", "").Replace(strings.TrimSpace(taxId))
	if !taxIdRegexp.MatchString(taxId) {
		return "", ErrInvalidTaxID
	}
	return taxId, nil
}

func (c *Client) Lookup(ctx context.Context, taxId string) (*Company, error) {
	taxId, err := Normalize(taxId)
	if err != nil {
		return nil, err
	}

	lookupUrl, err := c.endpoint.Parse(taxId + ".htm")
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupUrl.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to perform HTTP request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("unable to decode response: %v", err)
	}
	if env.Error != 0 || env.Data == nil {
		log.Debugf("%s not found: %s", taxId, env.ErrorText)
		return nil, ErrNotFound
	}

	return &Company{
		TaxID:          taxId,
		Name:           strings.TrimSpace(env.Data.Ten),
		Address:        strings.TrimSpace(env.Data.Dc),
		Representative: strings.TrimSpace(env.Data.Daidien),
	}, nil
}
