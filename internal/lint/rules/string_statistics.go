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
	"context"
	"fmt"
	"strings"

	"github.com/cardinalhq/pqlint/internal/lint"
	"github.com/cardinalhq/pqlint/internal/prescription"
)

// stringStatistics flags footers bloated by untruncated min/max values
// of byte array columns and recommends a truncation length.
type stringStatistics struct{ p Policy }

func (*stringStatistics) Name() string { return "oversized-string-statistics" }

func (r *stringStatistics) Check(_ context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var oversized []string
	for _, cc := range lc.Columns {
		if !isByteArray(cc) {
			continue
		}
		minLen, maxLen, ok := declaredBoundLengths(cc.Stats)
		if !ok {
			continue
		}
		if minLen > r.p.StatsTruncateBytes || maxLen > r.p.StatsTruncateBytes {
			oversized = append(oversized, cc.Leaf.DottedPath)
		}
	}
	if len(oversized) == 0 {
		return nil, nil
	}

	return []lint.Diagnostic{{
		Rule:     r.Name(),
		Severity: lint.Suggestion,
		Message: fmt.Sprintf(
			"columns %s carry min/max statistics longer than %d bytes; truncating keeps the footer small without losing pruning power",
			strings.Join(oversized, ", "), r.p.StatsTruncateBytes),
		Directives: []prescription.Directive{
			prescription.FileStatsTruncate{Length: r.p.StatsTruncateBytes},
		},
	}}, nil
}

// declaredBoundLengths pulls the footer min/max bound lengths out of a
// byte-valued stats variant. Sampled-only stats carry no bounds.
func declaredBoundLengths(st lint.TypeStats) (minLen, maxLen int, ok bool) {
	switch st := st.(type) {
	case lint.StringStats:
		return st.MinValueLen, st.MaxValueLen, true
	case lint.BinaryStats:
		return st.MinValueLen, st.MaxValueLen, true
	case lint.FixedLenBytesStats:
		return st.MinValueLen, st.MaxValueLen, true
	default:
		return 0, 0, false
	}
}
