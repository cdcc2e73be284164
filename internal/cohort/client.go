package cohort

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "spigell/mentor-match"
	// Max value for list requests per page.
	perPage = "100"
)

// Client reads cohort profiles and the active matching model from the profile store API.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// ItemResponse is one page of a list endpoint.
type ItemResponse struct {
	Items   []map[string]any `json:"items"`
	Found   int              `json:"found"`
	Pages   int              `json:"pages"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

func NewClient(apiURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// Fetch loads the full cohort: every mentor and mentee page.
func (c *Client) Fetch(ctx context.Context, cohortID string) (*Cohort, error) {
	cohortID = strings.TrimSpace(cohortID)
	if cohortID == "" {
		return nil, fmt.Errorf("cohort id is required")
	}

	result := &Cohort{ID: cohortID}

	mentors, err := c.GetItems(ctx, c.cohortURL(cohortID, "mentors"), nil)
	if err != nil {
		return nil, fmt.Errorf("get mentors: %w", err)
	}
	if err := DecodeRecords(mentors, &result.Mentors); err != nil {
		return nil, fmt.Errorf("decode mentors: %w", err)
	}

	mentees, err := c.GetItems(ctx, c.cohortURL(cohortID, "mentees"), nil)
	if err != nil {
		return nil, fmt.Errorf("get mentees: %w", err)
	}
	if err := DecodeRecords(mentees, &result.Mentees); err != nil {
		return nil, fmt.Errorf("decode mentees: %w", err)
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	result.Normalize()

	c.logger.Info("cohort fetched from profile store",
		zap.String("cohort_id", cohortID),
		zap.Int("mentors", len(result.Mentors)),
		zap.Int("mentees", len(result.Mentees)),
	)

	return result, nil
}

// ActiveModel returns the raw document of the cohort's active matching model.
func (c *Client) ActiveModel(ctx context.Context, cohortID string) (map[string]any, error) {
	q := url.Values{}
	q.Set("status", "active")

	var doc map[string]any
	if err := c.getJSON(ctx, c.cohortURL(cohortID, "matching-model"), q, &doc); err != nil {
		return nil, fmt.Errorf("get active matching model: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("cohort %q has no active matching model", cohortID)
	}

	return doc, nil
}

// GetItems makes GET requests to a list endpoint and returns the items of all pages.
func (c *Client) GetItems(ctx context.Context, endpoint string, q url.Values) ([]map[string]any, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("per_page", perPage)

	var items []map[string]any

	response, err := c.getPage(ctx, endpoint, q, 0)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from profile store", zap.Int("pages", response.Pages), zap.Int("max items per page", response.PerPage))

	items = append(items, response.Items...)

	// The page count of the first response bounds the walk, later echoes are not trusted.
	for page := 1; page < response.Pages; page++ {
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", page, response.Pages),
		))

		next, err := c.getPage(ctx, endpoint, q, page)
		if err != nil {
			return nil, err
		}

		items = append(items, next.Items...)
	}

	return items, nil
}

func (c *Client) getPage(ctx context.Context, endpoint string, q url.Values, page int) (*ItemResponse, error) {
	q.Set("page", strconv.Itoa(page))

	var response ItemResponse
	if err := c.getJSON(ctx, endpoint, q, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	c.setHeaders(req)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	}

	return json.NewDecoder(reader).Decode(target)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
}

func (c *Client) cohortURL(cohortID, resource string) string {
	return fmt.Sprintf("%s/cohorts/%s/%s", c.APIURL, url.PathEscape(cohortID), resource)
}
