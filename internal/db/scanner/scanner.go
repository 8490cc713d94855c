// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package scanner iterates over goqu query results.
package scanner

import (
	"context"
	"iter"

	"github.com/doug-martin/goqu/v9"
)

// Iterator is the [iter.Seq2] returned by [Iter] and [IterContext].
type Iterator[T any] iter.Seq2[*T, error]

// Iter runs [IterContext] with a background context.
func Iter[T any](ds *goqu.SelectDataset) Iterator[T] {
	return IterContext[T](context.Background(), ds)
}

// IterContext performs a [*goqu.SelectDataset] query and yields
// a pointer to T, or an error, for each scanned row.
func IterContext[T any](ctx context.Context, ds *goqu.SelectDataset) Iterator[T] {
	return func(yield func(*T, error) bool) {
		s, err := ds.Executor().ScannerContext(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer s.Close() //nolint:errcheck

		for s.Next() {
			r := new(T)
			if err = s.ScanStruct(r); err != nil {
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
		if err = s.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Collect returns every item of an [Iterator], stopping at the first error.
func Collect[T any](it Iterator[T]) ([]*T, error) {
	res := []*T{}
	for x, err := range it {
		if err != nil {
			return nil, err
		}
		res = append(res, x)
	}
	return res, nil
}
