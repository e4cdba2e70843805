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
	"math"

	"github.com/parquet-go/parquet-go/format"

	"github.com/cardinalhq/pqlint/internal/lint"
	"github.com/cardinalhq/pqlint/internal/prescription"
)

// dictState classifies one row group's dictionary usage. Unresolved is
// distinct from every proven state and never triggers a diagnostic.
type dictState int

const (
	dictUnresolved dictState = iota
	dictNone
	dictOnly
	dictFallback
)

// dictionaryEncoding detects dictionary encoding gone wrong: chunks
// that overflowed their dictionary and fell back to plain pages, and
// low-cardinality columns not using a dictionary at all.
type dictionaryEncoding struct{ p Policy }

func (*dictionaryEncoding) Name() string { return "dictionary-encoding-cardinality" }

func (r *dictionaryEncoding) Check(ctx context.Context, lc *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for col, cc := range lc.Columns {
		states := make([]dictState, len(cc.Chunks))
		var ambiguous []int
		for rg, chunk := range cc.Chunks {
			states[rg] = classifyChunk(chunk)
			if states[rg] == dictUnresolved {
				ambiguous = append(ambiguous, rg)
			}
		}

		if len(ambiguous) > 0 && lc.File != nil {
			if err := r.resolveByPageScan(ctx, lc, col, ambiguous, states); err != nil {
				return nil, err
			}
		}

		fallback := false
		allNone := len(states) > 0
		for _, s := range states {
			if s == dictFallback {
				fallback = true
			}
			if s != dictNone {
				allNone = false
			}
		}

		switch {
		case fallback:
			diags = append(diags, r.fixFallback(lc, cc))
		case allNone && cc.Cardinality.NonNull > 0 &&
			cc.Cardinality.Ratio() < r.p.LowCardinalityRatio:
			diags = append(diags, lint.Diagnostic{
				Rule:     r.Name(),
				Severity: lint.Suggestion,
				Column:   cc.Leaf.DottedPath,
				Message: fmt.Sprintf(
					"column %s has ~%d distinct of %d values (ratio %.3f) but no dictionary; dictionary encoding would collapse it",
					cc.Leaf.DottedPath, cc.Cardinality.Distinct, cc.Cardinality.NonNull, cc.Cardinality.Ratio()),
				Directives: []prescription.Directive{
					prescription.ColumnDictionary{Path: cc.Leaf.DottedPath, Enabled: true},
				},
			})
		}
	}
	return diags, nil
}

// classifyChunk proves the dictionary state from metadata alone where
// possible.
func classifyChunk(chunk *format.ColumnChunk) dictState {
	md := &chunk.MetaData

	if len(md.EncodingStats) > 0 {
		hasDict := false
		plainData := false
		for _, es := range md.EncodingStats {
			switch es.PageType {
			case format.DictionaryPage:
				hasDict = true
			case format.DataPage, format.DataPageV2:
				switch es.Encoding {
				case format.RLEDictionary, format.PlainDictionary:
				default:
					plainData = true
				}
			}
		}
		switch {
		case !hasDict:
			return dictNone
		case plainData:
			return dictFallback
		default:
			return dictOnly
		}
	}

	if md.DictionaryPageOffset <= 0 {
		return dictNone
	}
	// A dictionary page is itself plain-encoded, so PLAIN in the
	// chunk encoding list proves nothing about data pages. Only the
	// absence of PLAIN is a proof.
	hasPlain := false
	for _, e := range md.Encoding {
		if e == format.Plain {
			hasPlain = true
		}
	}
	if !hasPlain {
		return dictOnly
	}
	return dictUnresolved
}

// resolveByPageScan scans the data page headers of a small, evenly
// spread subset of the ambiguous row groups. Groups outside the subset
// stay unresolved.
func (r *dictionaryEncoding) resolveByPageScan(ctx context.Context, lc *lint.Context, col int, ambiguous []int, states []dictState) error {
	sample := int(math.Ceil(r.p.AmbiguousSampleFraction * float64(len(ambiguous))))
	if sample < 1 {
		sample = 1
	}
	if sample > len(ambiguous) {
		sample = len(ambiguous)
	}
	stride := len(ambiguous) / sample

	for i := 0; i < sample; i++ {
		rg := ambiguous[i*stride]
		scan, err := lc.File.ScanPages(ctx, rg, col, 0)
		if err != nil {
			return fmt.Errorf("resolve dictionary state of row group %d: %w", rg, err)
		}
		state := dictOnly
		for _, hdr := range scan.Headers {
			var enc format.Encoding
			switch hdr.Type {
			case format.DataPage:
				enc = hdr.DataPageHeader.Encoding
			case format.DataPageV2:
				enc = hdr.DataPageHeaderV2.Encoding
			default:
				continue
			}
			if enc != format.RLEDictionary && enc != format.PlainDictionary {
				state = dictFallback
				break
			}
		}
		states[rg] = state
	}
	return nil
}

func (r *dictionaryEncoding) fixFallback(lc *lint.Context, cc *lint.ColumnContext) lint.Diagnostic {
	ratio := cc.Cardinality.Ratio()
	path := cc.Leaf.DottedPath

	if ratio > r.p.HighCardinalityRatio {
		return lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Warning,
			Column:   path,
			Message: fmt.Sprintf(
				"column %s overflows its dictionary and is mostly unique (ratio %.2f); dictionary encoding only adds overhead here",
				path, ratio),
			Directives: []prescription.Directive{
				prescription.ColumnDictionary{Path: path, Enabled: false},
			},
		}
	}

	// Moderate cardinality: the dictionary is worth keeping, it just
	// needs room. Estimate the payload and round up to a power-of-two
	// step.
	payload := float64(cc.UncompressedSize) * ratio * r.p.DictHeadroom
	limit := r.p.DictPageFloorBytes
	for float64(limit) < payload && limit < r.p.DictPageCapBytes {
		limit *= 2
	}

	if float64(limit) >= payload {
		return lint.Diagnostic{
			Rule:     r.Name(),
			Severity: lint.Suggestion,
			Column:   path,
			Message: fmt.Sprintf(
				"column %s overflows its dictionary at moderate cardinality (ratio %.2f); a %d MiB dictionary page limit would hold it",
				path, ratio, limit>>20),
			Directives: []prescription.Directive{
				prescription.ColumnDictionaryPageSizeLimit{Path: path, Bytes: limit},
			},
		}
	}

	// Even the cap cannot hold the dictionary; shrink row groups so
	// each group's share fits under it.
	maxRows := int64(0)
	for _, g := range lc.Meta.RowGroups {
		maxRows = max(maxRows, g.NumRows)
	}
	shrunk := int64(float64(maxRows) * float64(r.p.DictPageCapBytes) / payload)
	if shrunk < 1 {
		shrunk = 1
	}
	return lint.Diagnostic{
		Rule:     r.Name(),
		Severity: lint.Warning,
		Column:   path,
		Message: fmt.Sprintf(
			"column %s needs a ~%d MiB dictionary, past the %d MiB cap; capping the page limit and shrinking row groups to %d rows keeps it dictionary-encoded",
			path, int64(payload)>>20, r.p.DictPageCapBytes>>20, shrunk),
		Directives: []prescription.Directive{
			prescription.ColumnDictionaryPageSizeLimit{Path: path, Bytes: r.p.DictPageCapBytes},
			prescription.FileMaxRowGroupSize{Rows: shrunk},
		},
	}
}
