// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"context"
	"net/http"
)

type ctxRequestHeaderKey struct{}

// WithRequestHeader returns a new context that contains the given [http.Header].
// [Fetch] uses it for its request.
func WithRequestHeader(ctx context.Context, header http.Header) context.Context {
	return context.WithValue(ctx, ctxRequestHeaderKey{}, header)
}

// CheckRequestHeader returns the [http.Header] of a given context.
func CheckRequestHeader(ctx context.Context) (http.Header, bool) {
	h, ok := ctx.Value(ctxRequestHeaderKey{}).(http.Header)
	return h, ok
}

// Fetch builds and performs a GET requests to a given URL.
// The request headers are taken from the context, if any.
func Fetch(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if header, ok := CheckRequestHeader(ctx); ok {
		req.Header = header.Clone()
	}

	return client.Do(req)
}
