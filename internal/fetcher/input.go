package fetcher

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Input formats accepted by StreamISBNs.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// StreamISBNs reads ISBNs from r and sends each non-empty value on the
// returned channel. CSV input uses the column headed "isbn" when present and
// the first column otherwise. JSON input is an array of strings or of
// objects with an "isbn" key. Both channels close when reading ends.
func StreamISBNs(ctx context.Context, r io.Reader, format string) (<-chan string, <-chan error) {
	out := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		emit := func(v string) bool {
			v = strings.TrimSpace(v)
			if v == "" {
				return true
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "input: cancelled")
				return false
			}
		}

		var err error
		switch format {
		case FormatJSON:
			err = streamJSON(ctx, r, emit)
		case FormatCSV, "":
			err = streamCSV(ctx, r, emit)
		default:
			err = eris.Errorf("input: unknown format %q", format)
		}
		if err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

func streamCSV(ctx context.Context, r io.Reader, emit func(string) bool) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	col := 0
	first := true
	for {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "input: csv cancelled")
		}
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "input: read csv row")
		}
		if first {
			first = false
			if idx, ok := headerColumn(rec); ok {
				col = idx
				continue
			}
		}
		if col < len(rec) && !emit(rec[col]) {
			return nil
		}
	}
}

// headerColumn reports whether rec looks like a header row and which column
// holds ISBNs.
func headerColumn(rec []string) (int, bool) {
	for i, h := range rec {
		if strings.EqualFold(strings.TrimSpace(h), "isbn") {
			return i, true
		}
	}
	return 0, false
}

func streamJSON(ctx context.Context, r io.Reader, emit func(string) bool) error {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "input: read json opening token")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return eris.Errorf("input: expected '[', got %v", tok)
	}

	for dec.More() {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "input: json cancelled")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrap(err, "input: decode json element")
		}
		v, err := isbnFromJSON(raw)
		if err != nil {
			return err
		}
		if !emit(v) {
			return nil
		}
	}
	return nil
}

func isbnFromJSON(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		ISBN string `json:"isbn"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", eris.Wrap(err, "input: json element is neither string nor object")
	}
	return obj.ISBN, nil
}
