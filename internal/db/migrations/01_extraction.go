// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package migrations

import (
	"github.com/doug-martin/goqu/v9"
)

// M01extraction creates the extraction table.
func M01extraction(db *goqu.TxDatabase) error {
	var err error

	switch db.Dialect() {
	case "sqlite3":
		_, err = db.Exec(`CREATE TABLE extraction (
			id         text     PRIMARY KEY,
			created    datetime NOT NULL,
			url        text     NOT NULL,
			item_count integer  NOT NULL DEFAULT 0,
			data       json     NOT NULL
		)`)
	case "postgres":
		_, err = db.Exec(`CREATE TABLE extraction (
			id         uuid        PRIMARY KEY,
			created    timestamptz NOT NULL,
			url        text        NOT NULL,
			item_count integer     NOT NULL DEFAULT 0,
			data       jsonb       NOT NULL
		)`)
	}

	return err
}
