package analysis

// Delta compares a scenario total against a baseline total.
//
// Negative values mean the scenario collects less than the baseline, e.g.
// a statutory cap reducing the amount due. When the baseline is zero the
// percentage is reported as 0 and BaselineZero is set, so callers can tell
// "no baseline" apart from "no change".
type Delta struct {
	Baseline     float64 `json:"baseline"`
	Value        float64 `json:"value"`
	Absolute     float64 `json:"absolute"`
	Percent      float64 `json:"percent"`
	BaselineZero bool    `json:"baseline_zero"`
}

// Compare computes the delta of value against baseline.
func Compare(baseline, value float64) Delta {
	d := Delta{
		Baseline: baseline,
		Value:    value,
		Absolute: value - baseline,
	}
	if baseline == 0 {
		d.BaselineZero = true
		return d
	}
	d.Percent = d.Absolute / baseline * 100
	return d
}

// Direction returns -1, 0 or 1 following the sign of the absolute change.
func (d Delta) Direction() int {
	switch {
	case d.Absolute < 0:
		return -1
	case d.Absolute > 0:
		return 1
	default:
		return 0
	}
}
