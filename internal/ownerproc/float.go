// SPDX-License-Identifier: MPL-2.0

package ownerproc

import (
	"math"
)

// nonFiniteKey tags an object standing in for a float JSON cannot carry.
const nonFiniteKey = "$nonfinite"

// wrapNonFinite replaces NaN and infinities in script results with tagged
// objects, descending into slices and maps.
func wrapNonFinite(v any) any {
	switch x := v.(type) {
	case float64:
		switch {
		case math.IsNaN(x):
			return map[string]any{nonFiniteKey: "NaN"}
		case math.IsInf(x, 1):
			return map[string]any{nonFiniteKey: "+Inf"}
		case math.IsInf(x, -1):
			return map[string]any{nonFiniteKey: "-Inf"}
		}
		return x
	case float32:
		return wrapNonFinite(float64(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = wrapNonFinite(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = wrapNonFinite(e)
		}
		return out
	default:
		return v
	}
}

// unwrapNonFinite reverses wrapNonFinite on a decoded result.
func unwrapNonFinite(v any) any {
	switch x := v.(type) {
	case []any:
		for i, e := range x {
			x[i] = unwrapNonFinite(e)
		}
		return x
	case map[string]any:
		if tag, ok := x[nonFiniteKey].(string); ok && len(x) == 1 {
			switch tag {
			case "NaN":
				return math.NaN()
			case "+Inf":
				return math.Inf(1)
			case "-Inf":
				return math.Inf(-1)
			}
		}
		for k, e := range x {
			x[k] = unwrapNonFinite(e)
		}
		return x
	default:
		return v
	}
}
