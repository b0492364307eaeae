package docrelay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSevdeskSinkDeliversMultipartUpload(t *testing.T) {
	var gotAuth, gotFilename, gotCreditDebit string
	var gotContent []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Voucher/Factory/uploadTempFile" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form failed: %v", err)
		}
		gotCreditDebit = r.FormValue("creditDebit")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file missing: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotContent, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sink, err := NewSevdeskSink(SevdeskSinkOptions{BaseURL: server.URL, Token: "apikey"})
	if err != nil {
		t.Fatalf("new sink failed: %v", err)
	}
	if err := sink.Deliver(context.Background(), "104.pdf", []byte("%PDF")); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if gotAuth != "apikey" {
		t.Fatalf("expected bare token auth header, got %q", gotAuth)
	}
	if gotFilename != "104.pdf" {
		t.Fatalf("expected filename 104.pdf, got %q", gotFilename)
	}
	if !bytes.Equal(gotContent, []byte("%PDF")) {
		t.Fatalf("uploaded content changed: %q", gotContent)
	}
	if gotCreditDebit != "D" {
		t.Fatalf("expected debit-side upload, got creditDebit=%q", gotCreditDebit)
	}
}

func TestSevdeskSinkTreatsNonCreatedAsFailure(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusUnauthorized, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("upload rejected"))
		}))
		sink, err := NewSevdeskSink(SevdeskSinkOptions{BaseURL: server.URL, Token: "apikey"})
		if err != nil {
			t.Fatalf("new sink failed: %v", err)
		}
		err = sink.Deliver(context.Background(), "1.pdf", []byte("x"))
		server.Close()
		if !errors.Is(err, ErrSinkUnavailable) {
			t.Fatalf("status %d: expected ErrSinkUnavailable, got %v", status, err)
		}
	}
}

func TestSevdeskSinkDefaultsBaseURL(t *testing.T) {
	sink, err := NewSevdeskSink(SevdeskSinkOptions{Token: "apikey"})
	if err != nil {
		t.Fatalf("new sink failed: %v", err)
	}
	if sink.baseURL != defaultSevdeskBaseURL {
		t.Fatalf("expected default base url, got %q", sink.baseURL)
	}
}

func TestNewSevdeskSinkRequiresToken(t *testing.T) {
	if _, err := NewSevdeskSink(SevdeskSinkOptions{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing token, got %v", err)
	}
}
