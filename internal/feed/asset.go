package feed

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// MaxAssetBytes caps the size of an inlined asset.
const MaxAssetBytes = 5 << 20

// AssetFetcher downloads a remote asset and returns it as a data URL.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPAssets fetches assets over HTTP.
type HTTPAssets struct {
	client    *http.Client
	userAgent string
}

// NewHTTPAssets creates an AssetFetcher using client. A nil client means
// http.DefaultClient.
func NewHTTPAssets(client *http.Client, userAgent string) *HTTPAssets {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPAssets{client: client, userAgent: userAgent}
}

// Fetch downloads url and encodes it as a data URL.
func (a *HTTPAssets) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build asset request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("asset %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAssetBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read asset: %w", err)
	}
	if len(data) > MaxAssetBytes {
		return "", fmt.Errorf("asset %s exceeds %d bytes", url, MaxAssetBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("asset %s is empty", url)
	}
	return DataURL(resp.Header.Get("Content-Type"), data), nil
}

// DataURL encodes data as a base64 data URL. When contentType is blank or
// unparseable it is sniffed from the bytes.
func DataURL(contentType string, data []byte) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" {
		mediaType, _, _ = strings.Cut(http.DetectContentType(data), ";")
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
