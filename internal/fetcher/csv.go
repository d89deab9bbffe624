// Package fetcher reads source data, dictionary and mapping files into rows and tables.
package fetcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	LazyQuotes bool
	TrimSpace  bool
	NoQuotes   bool // split on the delimiter only; quote characters are literal

	// SkipMalformed drops rows that fail to parse instead of aborting.
	// OnMalformed, if set, is called for each dropped row.
	SkipMalformed bool
	OnMalformed   func(err error)
}

// rowReader abstracts encoding/csv and the quote-less splitter.
type rowReader interface {
	Read() ([]string, error)
}

// StreamCSV reads a CSV file and sends rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := newRowReader(r, opts)

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var perr *csv.ParseError
				if opts.SkipMalformed && errors.As(err, &perr) {
					if opts.OnMalformed != nil {
						opts.OnMalformed(err)
					}
					continue
				}
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV collects every row of a CSV stream. The header, if requested, is
// returned separately.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([]string, [][]string, error) {
	var headerCh chan []string
	if opts.HasHeader {
		headerCh = make(chan []string, 1)
		opts.HeaderCh = headerCh
	}

	rowCh, errCh := StreamCSV(ctx, r, opts)
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, rows, err
		}
	}

	var header []string
	if headerCh != nil {
		select {
		case header = <-headerCh:
		default:
		}
	}
	return header, rows, nil
}

func newRowReader(r io.Reader, opts CSVOptions) rowReader {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	if opts.NoQuotes {
		return &splitReader{sc: bufio.NewScanner(r), delim: string(delim)}
	}

	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.ReuseRecord = false
	return reader
}

// splitReader splits lines on a delimiter without any quote handling.
type splitReader struct {
	sc      *bufio.Scanner
	delim string
	init  bool
}

func (s *splitReader) Read() ([]string, error) {
	if !s.init {
		s.sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		s.init = true
	}
	for s.sc.Scan() {
		line := strings.TrimSuffix(s.sc.Text(), "\r")
		if line == "" {
			continue
		}
		return strings.Split(line, s.delim), nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
