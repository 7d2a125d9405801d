// Package export flattens run results into rows and appends them to a
// spreadsheet or CSV destination. Export failures never affect the run that
// produced the results.
package export

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// Exporter appends a run's flattened results to a destination.
type Exporter interface {
	Export(results domain.RunResult) error
}

// Header is the first row of every destination.
var Header = []string{"Agent", "KeyPath", "Value"}

// Flatten turns a run result into [agent, keypath, value] rows. Nested
// objects flatten to dotted paths, array elements to "[i]" suffixes, so
// heterogeneous agent shapes union into the same three columns. Rows are
// ordered by agent key and key path for stable output.
func Flatten(results domain.RunResult) [][]string {
	agents := make([]string, 0, len(results))
	for k := range results {
		agents = append(agents, k)
	}
	sort.Strings(agents)

	var rows [][]string
	for _, agent := range agents {
		res := results[agent]
		if !res.OK() {
			rows = append(rows, []string{agent, "_error", res.Err})
			if res.Raw != "" {
				rows = append(rows, []string{agent, "raw", res.Raw})
			}
			continue
		}
		var payload interface{}
		if err := json.Unmarshal(res.Value, &payload); err != nil {
			rows = append(rows, []string{agent, "raw", string(res.Value)})
			continue
		}
		rows = append(rows, flattenValue(agent, "", payload)...)
	}
	return rows
}

func flattenValue(agent, prefix string, v interface{}) [][]string {
	switch val := v.(type) {
	case map[string]interface{}:
		if len(val) == 0 {
			return [][]string{{agent, prefix, "{}"}}
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var rows [][]string
		for _, k := range keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			rows = append(rows, flattenValue(agent, p, val[k])...)
		}
		return rows
	case []interface{}:
		if len(val) == 0 {
			return [][]string{{agent, prefix, "[]"}}
		}
		var rows [][]string
		for i, item := range val {
			rows = append(rows, flattenValue(agent, fmt.Sprintf("%s[%d]", prefix, i), item)...)
		}
		return rows
	case nil:
		return [][]string{{agent, prefix, ""}}
	case string:
		return [][]string{{agent, prefix, val}}
	case float64:
		return [][]string{{agent, prefix, formatNumber(val)}}
	case bool:
		return [][]string{{agent, prefix, fmt.Sprintf("%t", val)}}
	default:
		return [][]string{{agent, prefix, fmt.Sprintf("%v", val)}}
	}
}

// formatNumber renders integers without a decimal point.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
