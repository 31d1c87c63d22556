package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"trade-journal-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrUnreadableFile is returned when no supported encoding yields a table.
	ErrUnreadableFile = errors.New("could not read the CSV file")
	// ErrNoValidTrades is returned when every data row was skipped.
	ErrNoValidTrades = errors.New("no valid trades found in file")
)

// textEncoding is one candidate decoding of the raw upload.
type textEncoding struct {
	name    string
	decoder func() transform.Transformer
}

// encodings are tried in order; the first that decodes and parses wins.
var encodings = []textEncoding{
	{"utf-8", func() transform.Transformer { return encoding.UTF8Validator }},
	{"latin-1", func() transform.Transformer { return charmap.ISO8859_1.NewDecoder() }},
	{"cp1252", func() transform.Transformer { return charmap.Windows1252.NewDecoder() }},
}

// Result is the outcome of parsing one file.
type Result struct {
	Trades   []models.Trade   `json:"-"`
	Skipped  []RowError       `json:"skipped"`
	Encoding string           `json:"encoding"`
	Mapping  map[Field]string `json:"mapping"`
}

// Pipeline turns raw CSV bytes into canonical trades.
type Pipeline struct {
	normalizer Normalizer
	logger     *zap.Logger
}

// NewPipeline creates a new Pipeline. Zone-less timestamps are read in loc.
func NewPipeline(loc *time.Location, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		normalizer: Normalizer{Now: time.Now, Location: loc},
		logger:     logger.Named("csv-import"),
	}
}

// WithClock overrides the import-moment clock.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.normalizer.Now = now
	return p
}

// Parse decodes, maps and normalizes a CSV file. Bad rows are skipped and
// reported in the result; only file-level problems are returned as errors.
func (p *Pipeline) Parse(raw []byte) (*Result, error) {
	headers, rows, enc, err := ReadTable(raw)
	if err != nil {
		return nil, err
	}

	mapping, err := MapColumns(headers, rows)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Encoding: enc,
		Mapping:  mapping.Named(headers),
	}
	for i, row := range rows {
		trade, rowErr := p.normalizer.Normalize(i+1, row, mapping)
		if rowErr != nil {
			p.logger.Warn("Skipping row", zap.Int("row", rowErr.Row), zap.String("reason", rowErr.Reason))
			result.Skipped = append(result.Skipped, *rowErr)
			continue
		}
		result.Trades = append(result.Trades, trade)
	}

	if len(result.Trades) == 0 {
		return nil, fmt.Errorf("%w (%d rows skipped)", ErrNoValidTrades, len(result.Skipped))
	}

	p.logger.Info("Parsed CSV file",
		zap.String("encoding", enc),
		zap.Int("trades", len(result.Trades)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// ReadTable decodes raw with the first encoding that yields a header row and
// returns the normalized headers, the data rows and the encoding name.
func ReadTable(raw []byte) (headers []string, rows [][]string, enc string, err error) {
	records, enc, err := readRecords(raw)
	if err != nil {
		return nil, nil, "", err
	}
	headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = NormalizeHeader(h)
	}
	return headers, records[1:], enc, nil
}

func readRecords(raw []byte) ([][]string, string, error) {
	var lastErr error
	for _, enc := range encodings {
		text, _, err := transform.Bytes(enc.decoder(), raw)
		if err != nil {
			lastErr = err
			continue
		}
		records, err := parseRecords(text)
		if err != nil {
			lastErr = err
			continue
		}
		return records, enc.name, nil
	}
	return nil, "", fmt.Errorf("%w: %v", ErrUnreadableFile, lastErr)
}

func parseRecords(text []byte) ([][]string, error) {
	text = bytes.TrimPrefix(text, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || isBlankRecord(records[0]) {
		return nil, errors.New("missing header row")
	}
	return records, nil
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
