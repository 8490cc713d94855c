// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type ctxReqIDKey struct{}

// InitRequest gives every request an ID, taken from a valid
// X-Request-Id header or generated. The ID is sent back in the
// response's X-Request-Id header.
func InitRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxReqIDKey{}, id)))
	})
}

// GetReqID returns the request ID.
func GetReqID(r *http.Request) string {
	id, _ := r.Context().Value(ctxReqIDKey{}).(string)
	return id
}

// Log returns a log entry including the request ID.
func Log(r *http.Request) *slog.Logger {
	return slog.With(slog.String("@id", GetReqID(r)))
}
