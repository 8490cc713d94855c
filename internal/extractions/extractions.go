// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package extractions stores the microdata extracted from remote pages.
package extractions

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TableName is the extraction table's name.
const TableName = "extraction"

// ErrNotFound is returned when an extraction doesn't exist.
var ErrNotFound = errors.New("extraction not found")

// Extraction is the stored result of a page extraction.
type Extraction struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Created   time.Time `db:"created" json:"created"`
	URL       string    `db:"url" json:"url"`
	ItemCount int       `db:"item_count" json:"item_count"`
	Data      Data      `db:"data" json:"data"`
}

// Data is the JSON encoded microdata document of an extraction.
type Data []byte

// MarshalJSON implements [json.Marshaler].
func (d Data) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (d *Data) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

// Scan loads a JSON value from the database.
func (d *Data) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append(Data{}, v...)
	case string:
		*d = Data(v)
	default:
		return fmt.Errorf("cannot scan %T into Data", value)
	}
	return nil
}

// Value encodes the data for the database.
func (d Data) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "null", nil
	}
	return string(d), nil
}
