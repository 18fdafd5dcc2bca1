package analysis

import (
	"errors"
	"fmt"
	"sort"
)

// ErrZeroTotal is returned when a measure totals zero and shares are
// undefined.
var ErrZeroTotal = errors.New("measure totals zero; shares are undefined")

// Concentration bands, from common antitrust thresholds on the HHI.
const (
	Unconcentrated         = "unconcentrated"
	ModeratelyConcentrated = "moderately_concentrated"
	HighlyConcentrated     = "highly_concentrated"
)

// GroupShare is one group's part of a measure total.
type GroupShare struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
	Share float64 `json:"share"`
}

// Concentration describes how much of a measure the largest groups hold.
type Concentration struct {
	Measure    string       `json:"measure"`
	TopN       int          `json:"top_n"`
	Groups     []GroupShare `json:"groups"`
	TopShare   float64      `json:"top_share"`
	OtherShare float64      `json:"other_share"`
	HHI        float64      `json:"hhi"`
	Band       string       `json:"band"`
}

// Concentrate computes the top-N share and the Herfindahl-Hirschman index
// of a summary measure. Groups with a missing value are ignored.
func Concentrate(s *Summary, measure string, topN int) (*Concentration, error) {
	values, ok := s.Column(measure)
	if !ok {
		return nil, fmt.Errorf("measure %q is not part of the summary", measure)
	}
	if topN <= 0 {
		topN = 5
	}

	shares := make([]GroupShare, 0, len(values))
	var total float64
	for i, v := range values {
		if !v.Valid {
			continue
		}
		shares = append(shares, GroupShare{Label: s.Rows[i].Label, Total: v.Float})
		total += v.Float
	}
	if total == 0 {
		return nil, ErrZeroTotal
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Total > shares[j].Total })

	out := &Concentration{Measure: measure, TopN: topN}
	for i := range shares {
		sh := shares[i].Total / total
		shares[i].Share = sh
		out.HHI += sh * sh
		if i < topN {
			out.TopShare += sh
		}
	}
	if len(shares) > topN {
		shares = shares[:topN]
	}
	out.Groups = shares
	out.OtherShare = 1 - out.TopShare

	switch {
	case out.HHI < 0.15:
		out.Band = Unconcentrated
	case out.HHI < 0.25:
		out.Band = ModeratelyConcentrated
	default:
		out.Band = HighlyConcentrated
	}
	return out, nil
}
