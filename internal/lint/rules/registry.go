// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package rules

import (
	"github.com/cardinalhq/pqlint/internal/lint"
)

// All returns the full rule set under the given policy, in registry
// order.
func All(p Policy) []lint.Rule {
	return []lint.Rule{
		&compressionCodec{p: p},
		&compressionRatio{p: p},
		&dictionaryEncoding{p: p},
		&floatEncoding{p: p},
		&timestampEncoding{p: p},
		&stringEncoding{p: p},
		&pageSize{p: p},
		&pageStatistics{},
		&vectorEmbedding{p: p},
		&bloomFilter{p: p},
		&sortedIntegers{},
		&stringStatistics{p: p},
	}
}

// Get filters the registry by rule name. An empty filter selects every
// rule; unknown names simply match nothing.
func Get(names []string, p Policy) []lint.Rule {
	all := All(p)
	if len(names) == 0 {
		return all
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []lint.Rule
	for _, r := range all {
		if want[r.Name()] {
			out = append(out, r)
		}
	}
	return out
}
