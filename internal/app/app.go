// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package app is the command line application.
package app

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cristalhq/acmd"

	"codeberg.org/readeck/microdata/configs"
)

var commands = []acmd.Command{}

// Run starts the application's command runner.
func Run() error {
	r := acmd.RunnerOf(commands, acmd.Config{
		AppName:        "microdata",
		AppDescription: "Extract HTML microdata items",
		Version:        configs.Version(),
	})

	return r.Run()
}

type appFlags struct {
	ConfigFile string
}

func (f *appFlags) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&f.ConfigFile, "config", "config.toml", "configuration file path")

	return fs
}

// stringsFlag is a flag that can be repeated.
type stringsFlag []string

func (f *stringsFlag) String() string {
	return strings.Join(*f, ", ")
}

func (f *stringsFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// appPreRun loads the configuration and initializes the logger.
func appPreRun(flags *appFlags) error {
	if err := configs.LoadConfiguration(flags.ConfigFile); err != nil {
		return fmt.Errorf("error loading configuration (%w)", err)
	}

	initLogger(os.Stderr)
	slog.Debug("configuration loaded", slog.String("file", flags.ConfigFile))

	return nil
}

func appPostRun() {
	slog.Debug("done")
}
