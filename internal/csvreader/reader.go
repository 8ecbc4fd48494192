// Package csvreader turns uploaded return-section extracts into header-keyed rows.
package csvreader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Reader parses delimited text. The zero value reads comma-separated input.
type Reader struct {
	Comma rune
}

// NewReader creates a comma-separated Reader
func NewReader() *Reader {
	return &Reader{Comma: ','}
}

// Decode converts raw upload bytes to UTF-8. Byte-order marks select UTF-8 or UTF-16;
// input that is not valid UTF-8 is treated as Windows-1252, which is what older
// accounting packages export.
func Decode(raw []byte) (string, error) {
	if bytes.HasPrefix(raw, bomUTF8) || bytes.HasPrefix(raw, bomUTF16LE) || bytes.HasPrefix(raw, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err != nil {
			return "", fmt.Errorf("failed to decode text with byte-order mark: %w", err)
		}
		return string(out), nil
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode windows-1252 text: %w", err)
	}
	return string(out), nil
}

// ReadBytes decodes and parses an uploaded file
func (r *Reader) ReadBytes(raw []byte) ([]models.Record, error) {
	text, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return r.Read(strings.NewReader(text))
}

// Read parses delimited text whose first line is the header row. Every data row becomes a
// record keyed by header; short rows are padded with blanks and blank lines are skipped.
// Fields are trimmed. Input with no data rows yields an empty slice.
func (r *Reader) Read(in io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(in)
	if r.Comma != 0 {
		cr.Comma = r.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := make([]models.Record, 0)
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if isBlank(fields) {
			continue
		}

		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(fields) {
				row[h] = strings.TrimSpace(fields[i])
			} else {
				row[h] = ""
			}
		}
		records = append(records, models.RecordFromStrings(row))
	}

	return records, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
