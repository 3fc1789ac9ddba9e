package vmd

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const EndpointDefaultTimeout = 10 * time.Second
const FetchCacheDefaultTTL = 120 * time.Second

var ErrTransport = errors.New("transport error")

type Header struct {
	Name  string
	Value string
}

// Fetcher performs GET requests against the data API. Responses are cached
// for CacheTTL and all requests share one rate limiter.
type Fetcher struct {
	HttpClient         *http.Client
	Headers            []Header
	AllowedStatusCodes []int
	Limiter            *rate.Limiter
	Cache              *ResponseCache
	CacheTTL           time.Duration
}

func NewFetcher(timeout time.Duration, requestsPerSecond float64) *Fetcher {
	if timeout <= 0 {
		timeout = EndpointDefaultTimeout
	}

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &Fetcher{
		HttpClient: &http.Client{
			Timeout: timeout,
		},
		Headers: []Header{
			{Name: "Accept", Value: "application/json"},
			{Name: "Accept-Encoding", Value: "gzip"},
			{Name: "User-Agent", Value: "vitemadose-go/1.0"},
		},
		Limiter:  rate.NewLimiter(limit, 4),
		Cache:    NewResponseCache(),
		CacheTTL: FetchCacheDefaultTTL,
	}
}

func (f *Fetcher) FetchCached(ctx context.Context, url string) (body []byte, cacheMiss bool, err error) {
	if f.Cache == nil || f.CacheTTL <= 0 {
		body, err = f.Fetch(ctx, url)
		return body, true, err
	}

	body, err = f.Cache.GetOrLock(ctx, url)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", ErrTransport, url, err)
	}
	if body != nil {
		return body, false, nil
	}
	defer f.Cache.Unlock(url)

	body, err = f.Fetch(ctx, url)
	if err != nil {
		return body, true, err
	}
	f.Cache.Put(url, body, f.CacheTTL)

	return body, true, nil
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTransport, url, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	for _, header := range f.Headers {
		req.Header.Add(header.Name, header.Value)
	}

	client := f.HttpClient
	if client == nil {
		client = &http.Client{Timeout: EndpointDefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		Log.Debugf("Error during fetch: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, url, err)
	}

	//only set when we asked for gzip ourselves, the transport won't decode it
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		Log.Debug("Decompressing gzipped content...")

		gzReader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTransport, url, err)
		}
		defer gzReader.Close()

		body, err = io.ReadAll(gzReader)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTransport, url, err)
		}
	}

	Log.Debugf("Fetched %d bytes with status code %d from %s", len(body), resp.StatusCode, url)

	if resp.StatusCode != http.StatusOK && !f.allowed(resp.StatusCode) {
		Log.Warnf("Status code: %d, %s", resp.StatusCode, truncate(body, 128))
		return body, fmt.Errorf("%w: %s: status code %d", ErrTransport, url, resp.StatusCode)
	}

	return body, nil
}

func (f *Fetcher) allowed(statusCode int) bool {
	for _, code := range f.AllowedStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

func truncate(body []byte, max int) string {
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
