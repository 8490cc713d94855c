// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Microdata extracts HTML microdata items from web pages.
package main

import (
	"fmt"
	"os"

	"codeberg.org/readeck/microdata/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err) //nolint:errcheck
		os.Exit(1)
	}
}
