// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristalhq/acmd"

	"codeberg.org/readeck/microdata/configs"
	"codeberg.org/readeck/microdata/internal/cache"
	"codeberg.org/readeck/microdata/internal/db"
	"codeberg.org/readeck/microdata/internal/extractions"
	"codeberg.org/readeck/microdata/internal/httpclient"
	"codeberg.org/readeck/microdata/internal/metrics"
	"codeberg.org/readeck/microdata/internal/server"
	"codeberg.org/readeck/microdata/pkg/extract"
)

func init() {
	commands = append(commands, acmd.Command{
		Name:        "serve",
		Description: "Start the HTTP API",
		ExecFunc:    runServe,
	})
}

func runServe(ctx context.Context, args []string) error {
	var flags appFlags
	var host string
	var port int

	fs := flags.Flags()
	// nolint: errcheck
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: serve [arguments...]")
		fs.PrintDefaults()
	}
	fs.StringVar(&host, "host", "", "server host (overrides the configuration)")
	fs.IntVar(&port, "port", 0, "server port (overrides the configuration)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := appPreRun(&flags); err != nil {
		return err
	}
	defer appPostRun()

	if host != "" {
		configs.Config.Server.Host = host
	}
	if port > 0 {
		configs.Config.Server.Port = port
	}

	database, err := db.Open(configs.Config.Database.Source)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close(database) //nolint:errcheck

	if err = db.Migrate(database); err != nil {
		return err
	}

	store, err := cache.New(configs.Config.Cache.Source, "microdata")
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close() //nolint:errcheck
	}

	loader := extract.NewLoader(httpclient.New())
	loader.MaxSize = configs.Config.Fetch.MaxSize

	m := metrics.New()
	manager := extractions.NewManager(database, store, loader,
		extractions.WithMetrics(m),
		extractions.WithTTL(configs.Config.Cache.TTL.Duration),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := server.New(manager, m)
	if err = s.ListenAndServe(ctx); err != nil {
		slog.Error("server error", slog.Any("err", err))
		return err
	}
	return nil
}
