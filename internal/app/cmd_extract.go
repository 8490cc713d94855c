// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/cristalhq/acmd"
	"golang.org/x/sync/errgroup"

	"codeberg.org/readeck/microdata/configs"
	"codeberg.org/readeck/microdata/internal/httpclient"
	"codeberg.org/readeck/microdata/pkg/extract"
	"codeberg.org/readeck/microdata/pkg/extract/microdata"
)

func init() {
	commands = append(commands, acmd.Command{
		Name:        "extract",
		Description: "Extract microdata from URLs or HTML files",
		ExecFunc:    runExtract,
	})
}

type extractFlags struct {
	appFlags
	base        string
	format      string
	query       string
	encoding    string
	headers     stringsFlag
	concurrency int
}

func runExtract(ctx context.Context, args []string) error {
	var flags extractFlags
	fs := flags.Flags()
	// nolint: errcheck
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: extract [arguments...] SOURCE...")
		fmt.Fprintln(fs.Output(), "  SOURCE")
		fmt.Fprintln(fs.Output(), "    \tURL, file path or \"-\" for the standard input")
		fs.PrintDefaults()
	}
	fs.StringVar(&flags.base, "base", "", "base URL of local documents")
	fs.StringVar(&flags.format, "format", formatJSON, "output format (json, jsonld, yaml, paths)")
	fs.StringVar(&flags.query, "query", "", "jq expression applied to the output")
	fs.StringVar(&flags.query, "q", "", "jq expression (shorthand)")
	fs.StringVar(&flags.encoding, "encoding", "", "encoding of local documents (detected when empty)")
	fs.Var(&flags.headers, "H", "HTTP header sent with remote requests (\"Name: value\")")
	fs.IntVar(&flags.concurrency, "concurrency", 0, "maximum number of concurrent extractions")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	sources := fs.Args()
	if len(sources) == 0 {
		return errors.New("at least one source is required")
	}

	out, err := newOutput(flags.format, flags.query)
	if err != nil {
		return err
	}

	header, err := parseHeaders(flags.headers)
	if err != nil {
		return err
	}

	if err := appPreRun(&flags.appFlags); err != nil {
		return err
	}
	defer appPostRun()

	flags.concurrency = extractLimit(flags.concurrency, configs.Config.Fetch.Concurrency)

	loader := extract.NewLoader(httpclient.New())
	loader.MaxSize = configs.Config.Fetch.MaxSize
	if len(header) > 0 {
		ctx = extract.WithRequestHeader(ctx, header)
	}

	// Every source writes into its own buffer so the output
	// keeps the order of the arguments.
	results := make([]bytes.Buffer, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(flags.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			doc, err := loadDocument(ctx, loader, src, flags.base, flags.encoding)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			slog.Debug("document extracted",
				slog.String("source", src),
				slog.Int("items", len(doc.Items)),
				slog.Int("jsonld", len(doc.JSONLD)),
			)
			return out.write(ctx, &results[i], doc)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range results {
		if _, err := results[i].WriteTo(os.Stdout); err != nil {
			return err
		}
	}

	return nil
}

// extractLimit returns the number of sources processed at the same time.
// The flag wins over the configuration and the result is at least 1.
func extractLimit(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return max(configured, 1)
}

func loadDocument(ctx context.Context, loader *extract.Loader, src, base, encoding string) (*microdata.Document, error) {
	var page *extract.Page
	var err error

	switch {
	case isRemote(src):
		page, err = loader.Load(ctx, src)
	case src == "-":
		page, err = extract.Read(os.Stdin, base, encoding)
	default:
		page, err = readFile(src, base, encoding)
	}
	if err != nil {
		return nil, err
	}

	return page.Document()
}

func readFile(name, base, encoding string) (*extract.Page, error) {
	fd, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fd.Close() //nolint:errcheck

	return extract.Read(io.Reader(fd), base, encoding)
}

func isRemote(src string) bool {
	s := strings.ToLower(src)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func parseHeaders(values []string) (http.Header, error) {
	h := http.Header{}
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q", v)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}
