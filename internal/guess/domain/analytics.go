package domain

// DefaultSmoothingWindow is the window used when smoothing is turned on
// without an explicit size.
const DefaultSmoothingWindow = 3

// Smoothed returns the trailing moving average of series over window points.
//
// Element i is the mean of series[max(0, i-window+1) .. i], so the first
// window-1 points average over however many values exist so far. A window
// of 1 returns an equal copy of series. The result always has the same
// length as series and is recomputed from scratch on every call.
func Smoothed(series []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, invalidWindow(window)
	}
	out := make([]float64, len(series))
	if window == 1 {
		copy(out, series)
		return out, nil
	}
	for i := range series {
		start := max(0, i-window+1)
		sum := 0.0
		for _, v := range series[start : i+1] {
			sum += v
		}
		out[i] = sum / float64(i+1-start)
	}
	return out, nil
}

// IntSeries converts a score history into a series for Smoothed.
func IntSeries(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// RunningAccuracy returns, after each result, the fraction of results so far
// that were Correct.
func RunningAccuracy(results []Result) []float64 {
	out := make([]float64, len(results))
	correct := 0
	for i, r := range results {
		if r == ResultCorrect {
			correct++
		}
		out[i] = float64(correct) / float64(i+1)
	}
	return out
}

// PartySummary aggregates one party's results.
type PartySummary struct {
	Correct  int
	Wrong    int
	NetScore int
	Accuracy float64
}

// Summary aggregates a ledger.
type Summary struct {
	Rounds       int
	Human        PartySummary
	Opponent     PartySummary
	RedDraws     int
	RedFrequency float64
}

// Summarize aggregates records into per-party totals and the observed
// frequency of Red draws. Rates are zero for an empty ledger.
func Summarize(records []RoundRecord) Summary {
	summary := Summary{Rounds: len(records)}
	for _, r := range records {
		tally(&summary.Human, r.HumanResult)
		tally(&summary.Opponent, r.OpponentResult)
		if r.Draw == OutcomeRed {
			summary.RedDraws++
		}
	}
	if summary.Rounds > 0 {
		n := float64(summary.Rounds)
		summary.Human.Accuracy = float64(summary.Human.Correct) / n
		summary.Opponent.Accuracy = float64(summary.Opponent.Correct) / n
		summary.RedFrequency = float64(summary.RedDraws) / n
	}
	return summary
}

func tally(p *PartySummary, r Result) {
	switch r {
	case ResultCorrect:
		p.Correct++
	case ResultWrong:
		p.Wrong++
	}
	p.NetScore += r.Delta()
}

// HumanResults extracts the human result column.
func HumanResults(records []RoundRecord) []Result {
	out := make([]Result, len(records))
	for i, r := range records {
		out[i] = r.HumanResult
	}
	return out
}

// OpponentResults extracts the opponent result column.
func OpponentResults(records []RoundRecord) []Result {
	out := make([]Result, len(records))
	for i, r := range records {
		out[i] = r.OpponentResult
	}
	return out
}
