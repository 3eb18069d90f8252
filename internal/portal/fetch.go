package portal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// DetailFetcher retrieves detail pages over plain HTTP when a row carries a
// direct URL. Detail pages are server-rendered at their canonical URLs, so a
// cheap HTTP GET avoids burning the browser session on them; the extractor
// falls back to in-session navigation when no URL is available.
type DetailFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewDetailFetcher constructs a Colly-backed detail page fetcher.
func NewDetailFetcher(userAgent string, timeout time.Duration, logger *zap.Logger) *DetailFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(colly.UserAgent(userAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	})
	base.SetRequestTimeout(timeout)

	return &DetailFetcher{
		base:   base,
		logger: logger.Named("detail_fetch"),
	}
}

// Fetch returns the HTML body of rawURL.
func (f *DetailFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	collector := f.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{body: string(r.Body)})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return "", err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return res.body, res.err
	default:
		return "", errors.New("detail fetch produced no result")
	}
}

type fetchResult struct {
	body string
	err  error
}
