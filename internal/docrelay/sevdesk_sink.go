package docrelay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSevdeskBaseURL = "https://my.sevdesk.de/api/v1"
	sevdeskUploadPath     = "/Voucher/Factory/uploadTempFile"
	// Uploaded documents are booked on the debit side (incoming invoices).
	sevdeskCreditDebit = "D"
)

type SevdeskSinkOptions struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// SevdeskSink posts staged documents to the sevDesk voucher upload
// endpoint as multipart form data. Only 201 Created counts as delivered.
type SevdeskSink struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewSevdeskSink(opts SevdeskSinkOptions) (*SevdeskSink, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: sevdesk token is required", ErrInvalidInput)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSevdeskBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SevdeskSink{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}, nil
}

func (s *SevdeskSink) Deliver(ctx context.Context, filename string, content []byte) error {
	if s == nil {
		return ErrInvalidState
	}
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := writer.WriteField("creditDebit", sevdeskCreditDebit); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+sevdeskUploadPath, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", s.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, readErr)
	}
	if resp.StatusCode != http.StatusCreated {
		message := strings.TrimSpace(string(respBody))
		if len(message) > 200 {
			message = message[:200]
		}
		return fmt.Errorf("%w: upload %s returned status %d: %s", ErrSinkUnavailable, filename, resp.StatusCode, message)
	}
	return nil
}
