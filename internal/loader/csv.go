package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/logging"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	errInvalidUTF8 = errors.New("invalid utf-8 byte sequence")
	errUndecodable = errors.New("bytes not representable in encoding")
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	knownEncodings = map[string]encoding.Encoding{
		"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM),
		"utf16":        unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM),
		"latin-1":      charmap.ISO8859_1,
		"latin1":       charmap.ISO8859_1,
		"iso-8859-1":   charmap.ISO8859_1,
		"cp1252":       charmap.Windows1252,
		"windows-1252": charmap.Windows1252,
	}
)

// decodeFunc turns raw file bytes into UTF-8 text or fails.
type decodeFunc func([]byte) (string, error)

// resolveEncoding maps an encoding name to a strict decoder. Names outside the
// built-in table are looked up in the IANA registry.
func resolveEncoding(name string) (decodeFunc, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "utf-8", "utf8", "utf-8-sig":
		return decodeUTF8, nil
	}
	enc, ok := knownEncodings[key]
	if !ok {
		var err error
		enc, err = ianaindex.IANA.Encoding(name)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
		}
		if enc == nil {
			return nil, fmt.Errorf("encoding %q is not supported", name)
		}
	}
	return func(b []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		if bytes.ContainsRune(out, utf8.RuneError) {
			return "", errUndecodable
		}
		return string(out), nil
	}, nil
}

func decodeUTF8(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return "", errInvalidUTF8
	}
	return string(b), nil
}

// parseCSV tries each configured encoding until one decodes. A CSV syntax
// error after a successful decode is final: the content is corrupted.
func parseCSV(path string, opt Options) (*dataset.Dataset, []Attempt) {
	log := logging.Or(opt.Logger)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, []Attempt{{Engine: "read", Err: err}}
	}
	encs := opt.Encodings
	if len(encs) == 0 {
		encs = DefaultEncodings
	}
	var attempts []Attempt
	for _, name := range encs {
		decode, err := resolveEncoding(name)
		if err != nil {
			attempts = append(attempts, Attempt{Engine: name, Err: err})
			continue
		}
		text, err := decode(raw)
		if err != nil {
			log.WithField("encoding", name).WithError(err).Debug("decode failed, trying next encoding")
			attempts = append(attempts, Attempt{Engine: name, Err: err})
			continue
		}
		ds, err := readCSV(filepath.Base(path), text, opt)
		if err != nil {
			attempts = append(attempts, Attempt{Engine: name, Err: err})
			return nil, attempts
		}
		log.WithField("encoding", name).Debug("decoded csv")
		return ds, attempts
	}
	return nil, attempts
}

func readCSV(name, text string, opt Options) (*dataset.Dataset, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(text)
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}
	return dataset.FromRecords(name, header, records, opt.Parse)
}

// sniffDelimiter picks the candidate separator that occurs most often
// outside quotes on the first line, defaulting to a comma.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	counts := map[rune]int{}
	inQuote := false
	for _, c := range line {
		switch {
		case c == '"':
			inQuote = !inQuote
		case !inQuote && (c == ',' || c == ';' || c == '\t' || c == '|'):
			counts[c]++
		}
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}
