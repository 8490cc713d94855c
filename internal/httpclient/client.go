// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package httpclient provides the HTTP client used to retrieve pages.
// Its [Transport] adds default headers, refuses to connect to denied
// IP ranges and logs every request.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"codeberg.org/readeck/microdata/configs"
)

// ErrDeniedIP is returned when a request's destination is in a denied range.
var ErrDeniedIP = errors.New("destination IP is denied")

const uaString = "Mozilla/5.0 (X11; Linux x86_64; rv:140.0) Gecko/20100101 Firefox/140.0"

var defaultDialer = net.Dialer{
	Timeout:   15 * time.Second,
	KeepAlive: 30 * time.Second,
}

var defaultTransport = &http.Transport{
	DialContext: defaultDialer.DialContext,
	Proxy:       http.ProxyFromEnvironment,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          50,
	MaxIdleConnsPerHost:   2,
	IdleConnTimeout:       30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// defaultHeaders are sent with every request that doesn't already
// carry them.
var defaultHeaders = http.Header{
	"User-Agent":      []string{uaString},
	"Accept":          []string{"text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"},
	"Accept-Language": []string{"en-US,en;q=0.8"},
}

// Transport wraps an [http.RoundTripper].
type Transport struct {
	http.RoundTripper
	header   http.Header
	deniedIP []*net.IPNet
	lookupIP func(ctx context.Context, host string) ([]net.IP, error)
	logger   *slog.Logger
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.checkDestIP(r); err != nil {
		return nil, err
	}

	// Work on a shallow copy with its own header.
	req := new(http.Request)
	*req = *r
	req.Header = req.Header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}

	for k, values := range t.header {
		if _, ok := req.Header[textproto.CanonicalMIMEHeaderKey(k)]; !ok {
			req.Header[k] = values
		}
	}

	now := time.Now()
	rsp, err := t.RoundTripper.RoundTrip(req)

	attrs := []slog.Attr{
		slog.String("url", req.URL.String()),
		slog.String("method", req.Method),
		slog.Duration("time", time.Since(now)),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("err", err))
	} else {
		attrs = append(attrs, slog.Int("status", rsp.StatusCode))
	}
	t.Log().LogAttrs(req.Context(), slog.LevelDebug-10, "http request", attrs...)

	return rsp, err
}

func (t *Transport) checkDestIP(r *http.Request) error {
	if len(t.deniedIP) == 0 {
		// An empty list disables the IP check.
		return nil
	}

	hostname := r.URL.Hostname()
	host, err := idna.ToASCII(hostname)
	if err != nil {
		return fmt.Errorf("invalid hostname %s", hostname)
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else if ips, err = t.lookupIP(r.Context(), host); err != nil {
		return fmt.Errorf("cannot resolve %s", host)
	}

	for _, cidr := range t.deniedIP {
		for _, ip := range ips {
			if cidr.Contains(ip) {
				return fmt.Errorf("%w: %s (%s)", ErrDeniedIP, ip, cidr)
			}
		}
	}

	return nil
}

// Log returns the transport's logger.
func (t *Transport) Log() *slog.Logger {
	return t.logger
}

// SetLogger sets the transport's logger.
func (t *Transport) SetLogger(l *slog.Logger) {
	t.logger = l
}

// SetHeader receives a function that can manipulate the
// transport's default headers.
func (t *Transport) SetHeader(fn func(h http.Header)) {
	fn(t.header)
}

// SetDeniedIPs replaces the IP ranges the transport refuses to connect to.
func (t *Transport) SetDeniedIPs(ranges []*net.IPNet) {
	t.deniedIP = ranges
}

func lookupIP(ctx context.Context, host string) ([]net.IP, error) {
	return net.DefaultResolver.LookupIP(ctx, "ip", host)
}

// New returns a new client with an empty cookie storage and a [Transport]
// configured from the "fetch" configuration section.
func New() *http.Client {
	cookies, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	header := maps.Clone(defaultHeaders)
	if ua := configs.Config.Fetch.UserAgent; ua != "" {
		header.Set("User-Agent", ua)
	}

	return &http.Client{
		Transport: &Transport{
			RoundTripper: defaultTransport.Clone(),
			header:       header,
			deniedIP:     configs.DeniedIPs(),
			lookupIP:     lookupIP,
			logger:       slog.Default(),
		},
		Timeout: configs.Config.Fetch.Timeout.Duration,
		Jar:     cookies,
	}
}
