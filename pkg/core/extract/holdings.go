package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// VotingAuthority is the tri-state voting breakdown of one holding.
// Fields are nil when the reported number is zero or absent; the two are
// intentionally conflated.
type VotingAuthority struct {
	Sole   *float64 `json:"sole,omitempty"`
	Shared *float64 `json:"shared,omitempty"`
	None   *float64 `json:"none,omitempty"`
}

// HoldingRecord is one normalized row of a 13F information table. Value
// is in thousands of USD. Numeric fields are nil rather than NaN when the
// source value doesn't parse to a finite number.
type HoldingRecord struct {
	IssuerName           string           `json:"issuerName,omitempty"`
	ClassTitle           string           `json:"classTitle,omitempty"`
	CUSIP                string           `json:"cusip,omitempty"`
	Value                *float64         `json:"value,omitempty"`
	Shares               *float64         `json:"shares,omitempty"`
	ShareType            string           `json:"shareType,omitempty"`
	InvestmentDiscretion string           `json:"investmentDiscretion,omitempty"`
	PutCall              string           `json:"putCall,omitempty"`
	OtherManagerRef      string           `json:"otherManagerRef,omitempty"`
	VotingAuthority      *VotingAuthority `json:"votingAuthority,omitempty"`
}

// HoldingsStats summarizes a parsed information table.
type HoldingsStats struct {
	TotalPositions     int     `json:"totalPositions"`
	TotalValueMillions float64 `json:"totalValueMillions"`
}

// ParseHoldings parses a 13F information-table XML document into
// holding records. Real-world documents disagree on tag casing
// (<infoTable> vs <infotable>, <nameOfIssuer> vs <nameofissuer>), so
// matching is done case-insensitively on local names with a token walk
// instead of fixed struct tags.
func ParseHoldings(data []byte) ([]HoldingRecord, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	var holdings []HoldingRecord
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse information table: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if strings.EqualFold(start.Name.Local, "infoTable") {
			record, err := parseInfoTable(decoder)
			if err != nil {
				return nil, fmt.Errorf("parse information table row: %w", err)
			}
			holdings = append(holdings, record)
		}
	}

	if len(holdings) == 0 {
		return nil, fmt.Errorf("information table contains no holdings")
	}
	return holdings, nil
}

// parseInfoTable consumes one <infoTable> subtree. Field names are unique
// within a row even across nesting levels (shrsOrPrnAmt, votingAuthority),
// so a flat name switch suffices.
func parseInfoTable(decoder *xml.Decoder) (HoldingRecord, error) {
	var record HoldingRecord
	var voting VotingAuthority
	var field string
	depth := 1

	for depth > 0 {
		tok, err := decoder.Token()
		if err != nil {
			return record, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			field = strings.ToLower(t.Name.Local)
		case xml.EndElement:
			depth--
			field = ""
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch field {
			case "nameofissuer":
				record.IssuerName = text
			case "titleofclass":
				record.ClassTitle = text
			case "cusip":
				record.CUSIP = text
			case "value":
				record.Value = parseNumeric(text)
			case "sshprnamt":
				record.Shares = parseNumeric(text)
			case "sshprnamttype":
				record.ShareType = text
			case "investmentdiscretion":
				record.InvestmentDiscretion = text
			case "putcall":
				record.PutCall = text
			case "othermanager":
				record.OtherManagerRef = text
			case "sole":
				voting.Sole = positiveOrNil(parseNumeric(text))
			case "shared":
				voting.Shared = positiveOrNil(parseNumeric(text))
			case "none":
				voting.None = positiveOrNil(parseNumeric(text))
			}
		}
	}

	if voting.Sole != nil || voting.Shared != nil || voting.None != nil {
		record.VotingAuthority = &voting
	}
	return record, nil
}

// SortHoldingsByValue orders holdings descending by value, in place.
// Records without a value sort last. The sort is stable so equal-valued
// rows keep their document order.
func SortHoldingsByValue(holdings []HoldingRecord) {
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdingValue(holdings[i]) > holdingValue(holdings[j])
	})
}

// ComputeHoldingsStats sums the full (pre-limit) holdings list. Values
// are reported in thousands, so the total is divided down to millions and
// rounded to two decimals.
func ComputeHoldingsStats(holdings []HoldingRecord) HoldingsStats {
	total := 0.0
	for _, h := range holdings {
		if h.Value != nil {
			total += *h.Value
		}
	}
	return HoldingsStats{
		TotalPositions:     len(holdings),
		TotalValueMillions: math.Round(total/1000*100) / 100,
	}
}

func holdingValue(h HoldingRecord) float64 {
	if h.Value == nil {
		return 0
	}
	return *h.Value
}

// parseNumeric coerces a source value to a float, returning nil for
// anything that doesn't parse to a finite number. Thousands separators
// and currency signs occasionally show up in hand-edited tables.
func parseNumeric(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}
