package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/calder-stats/semfit/internal/engine"
)

// fitDetail is the JSON shape stored in fits.detail. It carries the
// full parameter table and modification indices so reports can be
// regenerated from the store without refitting.
type fitDetail struct {
	Groups     []engine.GroupStats `json:"groups"`
	Indices    engine.FitIndices   `json:"indices"`
	Parameters []engine.Parameter  `json:"parameters"`
	ModIndices []engine.Score      `json:"mod_indices"`
}

func marshalFitDetail(fm *engine.FittedModel) (string, error) {
	detail := fitDetail{
		Groups:     fm.Groups,
		Indices:    fm.Indices,
		Parameters: fm.Parameters,
		ModIndices: fm.ModIndices,
	}
	// NaN standard errors are legal engine output but not legal JSON.
	for i := range detail.Parameters {
		p := &detail.Parameters[i]
		p.StdErr = sanitize(p.StdErr)
		p.Std = sanitize(p.Std)
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return "", fmt.Errorf("marshal fit detail: %w", err)
	}
	return string(data), nil
}

func unmarshalFitDetail(data string) (fitDetail, error) {
	var detail fitDetail
	if err := json.Unmarshal([]byte(data), &detail); err != nil {
		return fitDetail{}, fmt.Errorf("unmarshal fit detail: %w", err)
	}
	return detail, nil
}

func sanitize(v float64) float64 {
	if v != v {
		return 0
	}
	return v
}

// constraintKey flattens a constraint list into the stable string the
// fits table keys on. Order-insensitive.
func constraintKey(constraints []engine.Constraint) string {
	parts := make([]string, len(constraints))
	for i, c := range constraints {
		parts[i] = string(c)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
