package docrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// listingWindowQuery is the trailing recency window Paperless-ngx is asked
// for; only documents added within the last week are candidates.
const listingWindowQuery = "added:[-1 week to now]"

// listingSchemaJSON describes the minimum shape the listing endpoint must
// return: an object whose "all" field holds every matching document id.
const listingSchemaJSON = `{
	"type": "object",
	"required": ["all"],
	"properties": {
		"all": {
			"type": "array",
			"items": {"type": "integer", "minimum": 0}
		}
	}
}`

var (
	listingSchemaOnce sync.Once
	listingSchema     *jsonschema.Schema
	listingSchemaErr  error
)

func compiledListingSchema() (*jsonschema.Schema, error) {
	listingSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(listingSchemaJSON))
		if err != nil {
			listingSchemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("listing.json", doc); err != nil {
			listingSchemaErr = err
			return
		}
		listingSchema, listingSchemaErr = compiler.Compile("listing.json")
	})
	return listingSchema, listingSchemaErr
}

type PaperlessClientOptions struct {
	BaseURL      string
	Token        string
	FilterTagID  string
	FilterTypeID string
	HTTPClient   *http.Client
}

// PaperlessClient is the Paperless-ngx DocumentSource. It authenticates
// with a token header and never follows redirects; a redirect from the
// API means a misconfigured base URL, not a document.
type PaperlessClient struct {
	baseURL      string
	token        string
	filterTagID  string
	filterTypeID string
	httpClient   *http.Client
}

func NewPaperlessClient(opts PaperlessClientOptions) (*PaperlessClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: paperless base url is required", ErrInvalidInput)
	}
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: paperless token is required", ErrInvalidInput)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &PaperlessClient{
		baseURL:      baseURL,
		token:        token,
		filterTagID:  strings.TrimSpace(opts.FilterTagID),
		filterTypeID: strings.TrimSpace(opts.FilterTypeID),
		httpClient:   httpClient,
	}, nil
}

func (c *PaperlessClient) ListDocumentIDs(ctx context.Context) ([]int64, error) {
	q := url.Values{}
	q.Set("query", listingWindowQuery)
	q.Set("sort", "created")
	q.Set("reverse", "1")
	if c.filterTagID != "" {
		q.Set("tags__id__all", c.filterTagID)
	}
	if c.filterTypeID != "" {
		q.Set("document_type__id__in", c.filterTypeID)
	}

	body, err := c.get(ctx, "/api/documents/?"+q.Encode())
	if err != nil {
		return nil, err
	}

	schema, err := compiledListingSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: decode listing: %v", ErrSourceUnavailable, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: listing payload: %v", ErrSourceUnavailable, err)
	}

	payload, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: listing payload is not an object", ErrSourceUnavailable)
	}
	raw, _ := payload["all"].([]any)
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		switch number := item.(type) {
		case json.Number:
			id, convErr := number.Int64()
			if convErr != nil {
				continue
			}
			ids = append(ids, id)
		case float64:
			ids = append(ids, int64(number))
		}
	}
	return ids, nil
}

func (c *PaperlessClient) DownloadDocument(ctx context.Context, id int64) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("/api/documents/%d/download/", id))
}

func (c *PaperlessClient) get(ctx context.Context, requestPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+requestPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrSourceUnavailable, requestPath, resp.StatusCode)
	}
	return body, nil
}
