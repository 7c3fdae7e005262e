package eval

import (
	"encoding/json"
	"fmt"

	"github.com/lox/wordwolf/internal/fileutil"
)

type savedResult struct {
	Result
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type savedReport struct {
	Cases    int           `json:"cases"`
	Failed   int           `json:"failed"`
	Average  float64       `json:"average"`
	StdDev   float64       `json:"stdDev"`
	CI95     [2]float64    `json:"ci95"`
	HitRate  float64       `json:"hitRate"`
	Hits     int           `json:"hits"`
	Misses   int           `json:"misses"`
	Abstains int           `json:"abstains"`
	Results  []savedResult `json:"results"`
}

// Save writes the report as JSON. Readers never see a partial file.
func (r *Report) Save(path string) error {
	lo, hi := r.Stats.ConfidenceInterval95()
	out := savedReport{
		Cases:    len(r.Results),
		Failed:   r.Failed,
		Average:  r.Average,
		StdDev:   r.Stats.StdDev(),
		CI95:     [2]float64{lo, hi},
		HitRate:  r.Stats.HitRate(),
		Hits:     r.Stats.Hits,
		Misses:   r.Stats.Misses,
		Abstains: r.Stats.Abstains,
		Results:  make([]savedResult, len(r.Results)),
	}
	for i, res := range r.Results {
		out.Results[i] = savedResult{Result: res, Outcome: res.Outcome.String()}
		if res.Err != nil {
			out.Results[i].Outcome = "error"
			out.Results[i].Error = res.Err.Error()
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
