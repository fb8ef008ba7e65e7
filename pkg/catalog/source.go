package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultListingTimeout bounds a listing fetch.
const DefaultListingTimeout = 30 * time.Second

// ListingSource selects where the listing HTML comes from.
// Priority: Stdin, then HTMLFile, then URL.
type ListingSource struct {
	Stdin     io.Reader // read when UseStdin is set
	UseStdin  bool
	HTMLFile  string
	URL       string
	UserAgent string
	Client    *http.Client
}

// ReadListing returns the listing HTML.
func ReadListing(ctx context.Context, src ListingSource) (string, error) {
	switch {
	case src.UseStdin:
		if src.Stdin == nil {
			return "", ErrEmptyInput
		}
		data, err := io.ReadAll(src.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", ErrEmptyInput
		}
		return string(data), nil
	case src.HTMLFile != "":
		data, err := os.ReadFile(src.HTMLFile)
		if err != nil {
			return "", fmt.Errorf("read listing file: %w", err)
		}
		return string(data), nil
	case src.URL != "":
		return fetchListing(ctx, src)
	}
	return "", ErrNoSource
}

func fetchListing(ctx context.Context, src ListingSource) (string, error) {
	client := src.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultListingTimeout}
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultListingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if src.UserAgent != "" {
		req.Header.Set("User-Agent", src.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch listing: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch listing: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read listing body: %w", err)
	}
	return string(body), nil
}

// Origin derives "scheme://host/" from a listing URL.
func Origin(listingURL string) (string, error) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("listing url %q: missing scheme or host", listingURL)
	}
	return u.Scheme + "://" + u.Host + "/", nil
}
