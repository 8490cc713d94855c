// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpclient_test

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/microdata/configs"
	"codeberg.org/readeck/microdata/internal/httpclient"
)

type echoResponse struct {
	URL    string
	Method string
	Header http.Header
}

func mockResponder(client *http.Client) func() {
	tr := client.Transport.(*httpclient.Transport)
	ot := tr.RoundTripper
	mt := httpmock.NewMockTransport()

	mt.RegisterResponder("GET", `=~.*`,
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(200, echoResponse{
				URL:    req.URL.String(),
				Method: req.Method,
				Header: req.Header,
			})
		})

	tr.RoundTripper = mt

	return func() {
		tr.RoundTripper = ot
	}
}

func getEcho(t *testing.T, client *http.Client, req *http.Request) echoResponse {
	t.Helper()
	rsp, err := client.Do(req)
	require.NoError(t, err)
	defer rsp.Body.Close() //nolint:errcheck

	var data echoResponse
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&data))
	return data
}

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

func TestClient(t *testing.T) {
	t.Run("default headers", func(t *testing.T) {
		assert := require.New(t)

		client := httpclient.New()
		defer mockResponder(client)()

		req, _ := http.NewRequest(http.MethodGet, "https://example.net/", nil)
		data := getEcho(t, client, req)

		assert.Equal("https://example.net/", data.URL)
		assert.Equal("GET", data.Method)
		assert.Contains(data.Header.Get("User-Agent"), "Mozilla/5.0")
		assert.Equal("en-US,en;q=0.8", data.Header.Get("Accept-Language"))
	})

	t.Run("request headers win", func(t *testing.T) {
		assert := require.New(t)

		client := httpclient.New()
		defer mockResponder(client)()

		req, _ := http.NewRequest(http.MethodGet, "https://example.net/", nil)
		req.Header.Set("Accept-Language", "fr")
		data := getEcho(t, client, req)

		assert.Equal("fr", data.Header.Get("Accept-Language"))
		assert.Contains(data.Header.Get("User-Agent"), "Mozilla/5.0")
	})

	t.Run("SetHeader", func(t *testing.T) {
		assert := require.New(t)

		client := httpclient.New()
		defer mockResponder(client)()

		client.Transport.(*httpclient.Transport).SetHeader(func(h http.Header) {
			h.Set("x-test", "abc")
		})

		req, _ := http.NewRequest(http.MethodGet, "https://example.net/", nil)
		data := getEcho(t, client, req)
		assert.Equal("abc", data.Header.Get("x-test"))
	})

	t.Run("user agent", func(t *testing.T) {
		assert := require.New(t)

		ua := configs.Config.Fetch.UserAgent
		configs.Config.Fetch.UserAgent = "microdata-test/1.0"
		defer func() {
			configs.Config.Fetch.UserAgent = ua
		}()

		client := httpclient.New()
		defer mockResponder(client)()

		req, _ := http.NewRequest(http.MethodGet, "https://example.net/", nil)
		data := getEcho(t, client, req)
		assert.Equal("microdata-test/1.0", data.Header.Get("User-Agent"))
	})

	t.Run("denied IPs", func(t *testing.T) {
		client := httpclient.New()
		defer mockResponder(client)()

		client.Transport.(*httpclient.Transport).SetDeniedIPs([]*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("::1/128"),
		})

		tests := []struct {
			url    string
			denied bool
		}{
			{"http://127.0.0.1/", true},
			{"http://127.0.1.12:8080/", true},
			{"http://[::1]/", true},
			{"http://192.0.2.10/", false},
		}

		for _, test := range tests {
			t.Run(test.url, func(t *testing.T) {
				rsp, err := client.Get(test.url)
				if test.denied {
					require.ErrorIs(t, err, httpclient.ErrDeniedIP)
					return
				}
				require.NoError(t, err)
				rsp.Body.Close() //nolint:errcheck
			})
		}
	})
}
