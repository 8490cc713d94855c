// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package migrations

import (
	"github.com/doug-martin/goqu/v9"
)

// M02extractionURLIndex adds an index on the extraction's url and created columns.
func M02extractionURLIndex(db *goqu.TxDatabase) error {
	_, err := db.Exec(`CREATE INDEX idx_extraction_url_created ON extraction(url, created)`)
	return err
}
