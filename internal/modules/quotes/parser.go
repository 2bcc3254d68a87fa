package quotes

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ParseFile reads a B3 COTAHIST daily file (fixed-width layout) and
// returns its lot-market and fractional-market records.
func ParseFile(path string) ([]DailyQuote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quotes file: %w", err)
	}
	defer f.Close()

	var records []DailyQuote

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 245 {
			continue
		}
		// Record type 01 = daily quote; 00/99 are header and trailer
		if line[0:2] != "01" {
			continue
		}

		marketType, err := strconv.Atoi(strings.TrimSpace(line[24:27]))
		if err != nil {
			continue
		}
		if marketType != MarketTypeLot && marketType != MarketTypeFractional {
			continue
		}

		tradeDate, err := time.Parse("20060102", line[2:10])
		if err != nil {
			return nil, fmt.Errorf("invalid trade date %q: %w", line[2:10], err)
		}

		tradedQty, err := strconv.ParseInt(strings.TrimSpace(line[152:170]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid traded quantity: %w", err)
		}

		records = append(records, DailyQuote{
			TradeDate:      tradeDate,
			BDICode:        strings.TrimSpace(line[10:12]),
			Ticker:         strings.TrimSpace(line[12:24]),
			MarketType:     marketType,
			CompanyName:    strings.TrimSpace(line[27:39]),
			Open:           parsePrice(line[56:69]),
			High:           parsePrice(line[69:82]),
			Low:            parsePrice(line[82:95]),
			Average:        parsePrice(line[95:108]),
			Close:          parsePrice(line[108:121]),
			TradedQuantity: tradedQty,
			TradedVolume:   parsePrice(line[170:188]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read quotes file: %w", err)
	}

	return records, nil
}

// parsePrice converts a zero-padded price field in cents to a decimal value
func parsePrice(raw string) decimal.Decimal {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return decimal.Zero
	}
	return decimal.New(value, -2)
}

// FileSource serves closing prices from the most recent COTAHIST file
// in a directory. Parsed files are cached per path.
type FileSource struct {
	dir   string
	cache map[string][]DailyQuote
	log   zerolog.Logger
}

// NewFileSource creates a quote source backed by COTAHIST files
func NewFileSource(dir string, log zerolog.Logger) *FileSource {
	return &FileSource{
		dir:   dir,
		cache: make(map[string][]DailyQuote),
		log:   log.With().Str("component", "quotes").Logger(),
	}
}

// Quote returns the latest closing price for the ticker on the lot market,
// or zero when no file carries it.
func (s *FileSource) Quote(ticker string) decimal.Decimal {
	files, err := filepath.Glob(filepath.Join(s.dir, "COTAHIST_D*.TXT"))
	if err != nil || len(files) == 0 {
		return decimal.Zero
	}

	// Most recent file first; file names embed the trading date
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	for _, file := range files {
		records, ok := s.cache[file]
		if !ok {
			records, err = ParseFile(file)
			if err != nil {
				s.log.Warn().Err(err).Str("file", file).Msg("Failed to parse quotes file")
				continue
			}
			s.cache[file] = records
		}

		for _, r := range records {
			if r.MarketType == MarketTypeLot && strings.EqualFold(r.Ticker, ticker) {
				return r.Close
			}
		}
	}

	return decimal.Zero
}
