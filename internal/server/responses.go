// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/readeck/microdata/internal/extractions"
	"codeberg.org/readeck/microdata/internal/httpclient"
	"codeberg.org/readeck/microdata/pkg/extract"
)

// Message is a JSON message response.
type Message struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Render converts any value to JSON and sends the response.
func Render(w http.ResponseWriter, r *http.Request, status int, value any) {
	b := &bytes.Buffer{}
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		Log(r).Error("encoding error", slog.Any("err", err))
		http.Error(w, http.StatusText(500), 500)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	if status >= 100 {
		w.WriteHeader(status)
	}
	w.Write(b.Bytes()) //nolint:errcheck
}

// TextMsg sends a JSON formatted message response with a status and a message.
func TextMsg(w http.ResponseWriter, r *http.Request, status int, msg string) {
	Render(w, r, status, Message{Status: status, Message: msg})
}

// Err renders an error as a JSON message. Known errors get their own
// status, any other error is logged and returns a 500 response.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= 500 && status != http.StatusBadGateway {
		Log(r).Error("server error", slog.Any("err", err))
		TextMsg(w, r, status, http.StatusText(status))
		return
	}

	Log(r).Warn(http.StatusText(status), slog.Int("status", status), slog.Any("err", err))
	TextMsg(w, r, status, err.Error())
}

func errorStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, extractions.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, extractions.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, httpclient.ErrDeniedIP):
		return http.StatusForbidden
	case errors.Is(err, extract.ErrNotHTML):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extractions.ErrLoad):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
