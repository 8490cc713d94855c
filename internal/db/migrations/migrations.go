// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package migrations contains the database migrations.
package migrations

import (
	"github.com/doug-martin/goqu/v9"
)

// Migration is a numbered database migration.
type Migration struct {
	ID   int
	Name string
	Func func(*goqu.TxDatabase) error
}

// List is the ordered list of migrations.
var List = []Migration{
	{1, "extraction", M01extraction},
	{2, "extraction_url_index", M02extractionURLIndex},
}
