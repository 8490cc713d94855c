// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"codeberg.org/readeck/microdata/pkg/extract/microdata"
)

const (
	formatJSON   = "json"
	formatJSONLD = "jsonld"
	formatYAML   = "yaml"
	formatPaths  = "paths"
)

// output writes extracted documents in a given format,
// optionally filtered by a jq expression.
type output struct {
	format string
	query  *gojq.Code
}

func newOutput(format, query string) (*output, error) {
	o := &output{format: format}

	switch format {
	case formatJSON, formatJSONLD, formatYAML:
	case formatPaths:
		if query != "" {
			return nil, errors.New("a query can't be used with the paths format")
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if query != "" {
		q, err := gojq.Parse(query)
		if err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
		if o.query, err = gojq.Compile(q); err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
	}

	return o, nil
}

func (o *output) write(ctx context.Context, w io.Writer, doc *microdata.Document) error {
	if o.format == formatPaths {
		for n := range doc.Tree().Properties() {
			if _, err := fmt.Fprintf(w, "%s = %v\n", n.Path, n.Data); err != nil {
				return err
			}
		}
		return nil
	}

	var value any = doc
	if o.format == formatJSONLD {
		value = doc.Raw()
	}

	data, err := marshalJSON(value)
	if err != nil {
		return err
	}

	if o.query == nil {
		return o.encode(w, data)
	}

	var input any
	if err = json.Unmarshal(data, &input); err != nil {
		return err
	}

	iter := o.query.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			var haltErr *gojq.HaltError
			if errors.As(err, &haltErr) && haltErr.Value() == nil {
				break
			}
			return err
		}

		if data, err = marshalJSON(v); err != nil {
			return err
		}
		if err = o.encode(w, data); err != nil {
			return err
		}
	}

	return nil
}

// encode writes JSON data in the output format. YAML keeps
// the order of the JSON keys.
func (o *output) encode(w io.Writer, data []byte) error {
	if o.format != formatYAML {
		buf := new(bytes.Buffer)
		if err := json.Indent(buf, data, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle removes the JSON styles (flow collections and quoted
// strings). Scalars are still quoted when their tag requires it.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func marshalJSON(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
