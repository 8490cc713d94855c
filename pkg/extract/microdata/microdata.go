// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package microdata extracts HTML microdata items and their properties.
//
// Property values are resolved following the WHATWG microdata rules:
// the element's tag (or, for a few product properties, the property name)
// decides which attribute holds the value, URL attributes are made absolute
// against the page URL and an element that opens a new item scope yields
// a nested [Item].
//
// The package also collects JSON-LD blocks so that both sources can be
// queried through a single [Tree].
package microdata

import (
	"errors"
)

// ErrInvalidElement is returned when a nil [Element] is given to an extractor.
var ErrInvalidElement = errors.New("microdata: invalid element")
