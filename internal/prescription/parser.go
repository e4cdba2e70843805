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

package prescription

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a malformed directive line. Line numbers are
// 1-based.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid prescription at line %d: %s", e.Line, e.Message)
}

// Parse reads a prescription from its text form. Blank lines and lines
// starting with '#' are skipped. The first malformed line aborts the
// parse.
func Parse(text string) (*Prescription, error) {
	p := &Prescription{}
	for lineNo, raw := range strings.Split(text, "\n") {
		// Everything after '#' is a comment, trailing or whole-line.
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		d, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo + 1, Message: err.Error()}
		}
		p.Add(d)
	}
	return p, nil
}

func parseLine(line string) (Directive, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "set" {
		return nil, fmt.Errorf("expected 'set file ...' or 'set column ...', got %q", line)
	}
	switch fields[1] {
	case "file":
		if len(fields) != 4 {
			return nil, fmt.Errorf("expected 'set file <property> <value>', got %q", line)
		}
		return parseFileDirective(fields[2], fields[3])
	case "column":
		if len(fields) != 5 {
			return nil, fmt.Errorf("expected 'set column <path> <property> <value>', got %q", line)
		}
		return parseColumnDirective(fields[2], fields[3], fields[4])
	default:
		return nil, fmt.Errorf("unknown scope %q", fields[1])
	}
}

func parseFileDirective(prop, value string) (Directive, error) {
	switch prop {
	case "compression":
		codec, err := parseCodec(value)
		if err != nil {
			return nil, err
		}
		return FileCompression{Codec: codec}, nil
	case "max_row_group_size":
		n, err := parsePositiveInt(prop, value)
		if err != nil {
			return nil, err
		}
		return FileMaxRowGroupSize{Rows: n}, nil
	case "data_page_size_limit":
		n, err := parsePositiveInt(prop, value)
		if err != nil {
			return nil, err
		}
		return FileDataPageSizeLimit{Bytes: n}, nil
	case "statistics_truncate_length":
		if value == "none" {
			return FileStatsTruncate{Length: 0}, nil
		}
		n, err := parsePositiveInt(prop, value)
		if err != nil {
			return nil, err
		}
		return FileStatsTruncate{Length: int(n)}, nil
	default:
		return nil, fmt.Errorf("unknown file property %q", prop)
	}
}

func parseColumnDirective(path, prop, value string) (Directive, error) {
	switch prop {
	case "compression":
		codec, err := parseCodec(value)
		if err != nil {
			return nil, err
		}
		return ColumnCompression{Path: path, Codec: codec}, nil
	case "encoding":
		switch DataEncoding(value) {
		case EncodingPlain, EncodingDeltaBinaryPacked, EncodingDeltaLengthByteArray,
			EncodingDeltaByteArray, EncodingByteStreamSplit:
			return ColumnEncoding{Path: path, Encoding: DataEncoding(value)}, nil
		default:
			return nil, fmt.Errorf("unknown encoding %q", value)
		}
	case "dictionary":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("dictionary wants true or false, got %q", value)
		}
		return ColumnDictionary{Path: path, Enabled: b}, nil
	case "dictionary_page_size_limit":
		n, err := parsePositiveInt(prop, value)
		if err != nil {
			return nil, err
		}
		return ColumnDictionaryPageSizeLimit{Path: path, Bytes: n}, nil
	case "statistics":
		switch StatisticsLevel(value) {
		case StatsNone, StatsChunk, StatsPage:
			return ColumnStatistics{Path: path, Level: StatisticsLevel(value)}, nil
		default:
			return nil, fmt.Errorf("statistics wants none, chunk or page, got %q", value)
		}
	case "bloom_filter":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("bloom_filter wants true or false, got %q", value)
		}
		return ColumnBloomFilter{Path: path, Enabled: b}, nil
	case "bloom_filter_ndv":
		n, err := parsePositiveInt(prop, value)
		if err != nil {
			return nil, err
		}
		return ColumnBloomFilterNDV{Path: path, NDV: n}, nil
	case "bloom_filter_fpp":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 || f >= 1 {
			return nil, fmt.Errorf("bloom_filter_fpp wants a value in (0, 1), got %q", value)
		}
		return ColumnBloomFilterFPP{Path: path, FPP: f}, nil
	default:
		return nil, fmt.Errorf("unknown column property %q", prop)
	}
}

// codecLevels bounds the accepted compression level per codec.
var codecLevels = map[CodecKind][2]int{
	CodecGzip:   {0, 9},
	CodecBrotli: {0, 11},
	CodecZstd:   {1, 22},
}

func parseCodec(value string) (Codec, error) {
	name := value
	var level int
	hasLevel := false
	if open := strings.IndexByte(value, '('); open >= 0 {
		if !strings.HasSuffix(value, ")") {
			return Codec{}, fmt.Errorf("malformed codec %q", value)
		}
		name = value[:open]
		n, err := strconv.Atoi(value[open+1 : len(value)-1])
		if err != nil {
			return Codec{}, fmt.Errorf("malformed codec level in %q", value)
		}
		level = n
		hasLevel = true
	}

	kind := CodecKind(name)
	switch kind {
	case CodecUncompressed, CodecSnappy, CodecLz4Raw, CodecGzip, CodecBrotli, CodecZstd:
	default:
		return Codec{}, fmt.Errorf("unknown codec %q", name)
	}

	bounds, leveled := codecLevels[kind]
	if hasLevel {
		if !leveled {
			return Codec{}, fmt.Errorf("codec %s does not take a level", kind)
		}
		if level < bounds[0] || level > bounds[1] {
			return Codec{}, fmt.Errorf("codec %s level %d out of range [%d, %d]",
				kind, level, bounds[0], bounds[1])
		}
	}
	return Codec{Kind: kind, Level: level, HasLevel: hasLevel}, nil
}

func parsePositiveInt(prop, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s wants a positive integer, got %q", prop, value)
	}
	return n, nil
}
