package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "options-scanner/internal/errors"
)

// InvalidDeltaThreshold is the absolute delta above which a quote is treated as
// a sentinel value from the upstream feed (the broker reports -999 for missing greeks).
const InvalidDeltaThreshold = 10.0

// ExpiryDateLayout is the calendar layout of ExpirationKey.Date.
const ExpiryDateLayout = "2006-01-02"

// ExpirationKey identifies one expiry in a chain. Date is the identity, DTE is
// informational; two keys are equal only when both match.
type ExpirationKey struct {
	Date string
	DTE  int
}

// ParseExpirationKey parses the provider's composite "date:dte" key.
// A key without a colon has DTE 0.
func ParseExpirationKey(raw string) (ExpirationKey, error) {
	date, dte, found := strings.Cut(raw, ":")
	if !found {
		return ExpirationKey{Date: raw}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(dte))
	if err != nil {
		return ExpirationKey{}, fmt.Errorf("invalid expiration key %q: %w", raw, err)
	}
	return ExpirationKey{Date: date, DTE: n}, nil
}

// String returns the composite "date:dte" form.
func (k ExpirationKey) String() string {
	return fmt.Sprintf("%s:%d", k.Date, k.DTE)
}

// Time parses the calendar date. The zero time is returned for malformed dates.
func (k ExpirationKey) Time() time.Time {
	t, err := time.Parse(ExpiryDateLayout, k.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MarshalText implements encoding.TextMarshaler so keys survive as JSON map keys.
func (k ExpirationKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ExpirationKey) UnmarshalText(text []byte) error {
	parsed, err := ParseExpirationKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// OptionQuote is a single contract quote from a chain snapshot.
type OptionQuote struct {
	PutCall          OptionType `json:"putCall"`
	Symbol           string     `json:"symbol"`
	Description      string     `json:"description,omitempty"`
	Bid              float64    `json:"bid"`
	Ask              float64    `json:"ask"`
	Last             float64    `json:"last"`
	Mark             float64    `json:"mark"`
	Delta            float64    `json:"delta"`
	Gamma            float64    `json:"gamma"`
	Theta            float64    `json:"theta"`
	Vega             float64    `json:"vega"`
	Volatility       float64    `json:"volatility"`
	StrikePrice      float64    `json:"strikePrice"`
	ExpirationDate   string     `json:"expirationDate"`
	DaysToExpiration int        `json:"daysToExpiration"`
	OpenInterest     int64      `json:"openInterest"`
	TotalVolume      int64      `json:"totalVolume"`
	IntrinsicValue   float64    `json:"intrinsicValue"`
	ExtrinsicValue   float64    `json:"extrinsicValue"`
	InTheMoney       bool       `json:"inTheMoney"`
}

// AbsDelta returns |delta|.
func (q OptionQuote) AbsDelta() float64 {
	return math.Abs(q.Delta)
}

// StrikeMap maps a strike string (e.g. "110.0") to the quotes at that strike.
type StrikeMap map[string][]OptionQuote

// ExpiryMap maps an expiry to its strikes.
type ExpiryMap map[ExpirationKey]StrikeMap

// OptionChain is an option-chain snapshot for one underlying.
type OptionChain struct {
	Symbol          string    `json:"symbol"`
	Status          string    `json:"status,omitempty"`
	UnderlyingPrice float64   `json:"underlyingPrice"`
	DividendYield   float64   `json:"dividendYield"`
	Volatility      float64   `json:"volatility,omitempty"`
	InterestRate    float64   `json:"interestRate,omitempty"`
	CallExpDateMap  ExpiryMap `json:"callExpDateMap"`
	PutExpDateMap   ExpiryMap `json:"putExpDateMap"`
}

func (c *OptionChain) side(optionType OptionType) ExpiryMap {
	if optionType == Call {
		return c.CallExpDateMap
	}
	return c.PutExpDateMap
}

// OptionsForExpiry returns the strike map of one side at an expiry, matched by
// date. An absent expiry yields an empty map.
func (c *OptionChain) OptionsForExpiry(optionType OptionType, expiry ExpirationKey) StrikeMap {
	side := c.side(optionType)
	if strikes, ok := side[expiry]; ok {
		return strikes
	}
	for key, strikes := range side {
		if key.Date == expiry.Date {
			return strikes
		}
	}
	return StrikeMap{}
}

// Expiries returns the distinct expiries of both sides ordered by DTE, then date.
func (c *OptionChain) Expiries() []ExpirationKey {
	seen := make(map[ExpirationKey]struct{}, len(c.PutExpDateMap)+len(c.CallExpDateMap))
	keys := make([]ExpirationKey, 0, len(seen))
	for _, side := range []ExpiryMap{c.PutExpDateMap, c.CallExpDateMap} {
		for key := range side {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].DTE != keys[j].DTE {
			return keys[i].DTE < keys[j].DTE
		}
		return keys[i].Date < keys[j].Date
	})
	return keys
}

// ExpiryNearestTo returns the expiry minimising |DTE - targetDTE|. Ties go to
// the first expiry in Expiries order, i.e. the shorter-dated one.
func (c *OptionChain) ExpiryNearestTo(targetDTE int) (ExpirationKey, error) {
	keys := c.Expiries()
	if len(keys) == 0 {
		return ExpirationKey{}, apperrors.ErrNoExpiryFound
	}
	best := keys[0]
	bestDiff := absInt(best.DTE - targetDTE)
	for _, key := range keys[1:] {
		if diff := absInt(key.DTE - targetDTE); diff < bestDiff {
			best, bestDiff = key, diff
		}
	}
	return best, nil
}

// ExpiriesInRange returns the expiries a strategy should evaluate. A positive
// targetDTE selects the single nearest expiry; otherwise every expiry with
// minDTE <= DTE <= maxDTE is returned in ascending DTE order. maxDTE <= 0 means
// no upper bound.
func (c *OptionChain) ExpiriesInRange(targetDTE, minDTE, maxDTE int) []ExpirationKey {
	if targetDTE > 0 {
		key, err := c.ExpiryNearestTo(targetDTE)
		if err != nil {
			return nil
		}
		return []ExpirationKey{key}
	}
	if maxDTE <= 0 {
		maxDTE = math.MaxInt
	}
	var out []ExpirationKey
	for _, key := range c.Expiries() {
		if key.DTE >= minDTE && key.DTE <= maxDTE {
			out = append(out, key)
		}
	}
	return out
}

// ScrubInvalidQuotes removes quotes whose |delta| exceeds InvalidDeltaThreshold
// from both sides and drops strikes left empty. It returns the number of quotes
// removed; a second call removes nothing.
func (c *OptionChain) ScrubInvalidQuotes() int {
	removed := 0
	for _, side := range []ExpiryMap{c.CallExpDateMap, c.PutExpDateMap} {
		for _, strikes := range side {
			for strike, quotes := range strikes {
				kept := quotes[:0]
				for _, q := range quotes {
					if q.AbsDelta() > InvalidDeltaThreshold || math.IsNaN(q.Delta) {
						removed++
						continue
					}
					kept = append(kept, q)
				}
				if len(kept) == 0 {
					delete(strikes, strike)
					continue
				}
				strikes[strike] = kept
			}
		}
	}
	return removed
}

// QuoteCount returns the number of quotes across both sides.
func (c *OptionChain) QuoteCount() int {
	n := 0
	for _, side := range []ExpiryMap{c.CallExpDateMap, c.PutExpDateMap} {
		for _, strikes := range side {
			for _, quotes := range strikes {
				n += len(quotes)
			}
		}
	}
	return n
}

// StrikeLadder is a strike map with its strikes parsed and sorted ascending.
type StrikeLadder struct {
	Strikes []float64
	quotes  []OptionQuote
}

// NewStrikeLadder sorts the strikes of m and keeps the first quote of each.
// Unparseable or empty strikes are skipped.
func NewStrikeLadder(m StrikeMap) StrikeLadder {
	type entry struct {
		strike float64
		quote  OptionQuote
	}
	entries := make([]entry, 0, len(m))
	for raw, quotes := range m {
		if len(quotes) == 0 {
			continue
		}
		strike, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		entries = append(entries, entry{strike: strike, quote: quotes[0]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].strike < entries[j].strike })

	ladder := StrikeLadder{
		Strikes: make([]float64, len(entries)),
		quotes:  make([]OptionQuote, len(entries)),
	}
	for i, e := range entries {
		ladder.Strikes[i] = e.strike
		ladder.quotes[i] = e.quote
	}
	return ladder
}

// Len returns the number of strikes.
func (l StrikeLadder) Len() int { return len(l.Strikes) }

// Quote returns the quote at index i.
func (l StrikeLadder) Quote(i int) OptionQuote { return l.quotes[i] }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
