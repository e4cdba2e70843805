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

// Package rules ships the diagnostic rule set. Every rule reads the
// shared lint context and emits diagnostics carrying corrective
// directives; none of them mutates the context. Thresholds are
// empirically tuned policy, not structural requirements, and load from
// configuration.
package rules

// Policy holds the tunable thresholds the rule set decides with.
type Policy struct {
	// TargetZstdLevel is the compression level recommended when a
	// column should move to zstd.
	TargetZstdLevel int `mapstructure:"target_zstd_level"`

	// MinColumnBytes is the smallest aggregate compressed column size
	// worth re-compressing.
	MinColumnBytes int64 `mapstructure:"min_column_bytes"`

	// LargeChunkBytes marks a column chunk as scan-heavy; columns made
	// of such chunks prefer fast decompression over density.
	LargeChunkBytes int64 `mapstructure:"large_chunk_bytes"`
	// SmallChunkAvgBytes and ManySmallChunks describe the many-small-
	// chunks profile that also prefers a fast codec.
	SmallChunkAvgBytes int64 `mapstructure:"small_chunk_avg_bytes"`
	ManySmallChunks    int   `mapstructure:"many_small_chunks"`

	// ModerateRatioLow/High bound the compression ratio band where a
	// fast codec still earns its keep.
	ModerateRatioLow  float64 `mapstructure:"moderate_ratio_low"`
	ModerateRatioHigh float64 `mapstructure:"moderate_ratio_high"`
	// SnappySkipRatio skips codec upgrades for snappy columns that
	// barely compress.
	SnappySkipRatio float64 `mapstructure:"snappy_skip_ratio"`
	// IncompressibleRatio is the ratio past which a column counts as
	// nearly incompressible.
	IncompressibleRatio float64 `mapstructure:"incompressible_ratio"`

	// LowCardinalityRatio and HighCardinalityRatio split the distinct
	// ratio domain for dictionary decisions.
	LowCardinalityRatio  float64 `mapstructure:"low_cardinality_ratio"`
	HighCardinalityRatio float64 `mapstructure:"high_cardinality_ratio"`

	// DictPageFloorBytes, DictPageCapBytes and DictHeadroom size
	// dictionary page limit recommendations.
	DictPageFloorBytes int64   `mapstructure:"dict_page_floor_bytes"`
	DictPageCapBytes   int64   `mapstructure:"dict_page_cap_bytes"`
	DictHeadroom       float64 `mapstructure:"dict_headroom"`

	// AmbiguousSampleFraction bounds how many ambiguous row groups the
	// dictionary rule resolves by scanning page headers.
	AmbiguousSampleFraction float64 `mapstructure:"ambiguous_sample_fraction"`

	// MaxRowGroupRows and MaxRowGroupBytes are the row group ceilings.
	MaxRowGroupRows  int64 `mapstructure:"max_row_group_rows"`
	MaxRowGroupBytes int64 `mapstructure:"max_row_group_bytes"`
	// DataPageSizeBytes is the standard data page size recommended
	// alongside row group caps.
	DataPageSizeBytes int64 `mapstructure:"data_page_size_bytes"`

	// StringProfileLargeBytes etc. describe the two byte-array column
	// profiles the string encoding rule matches.
	StringLargeTotalBytes  int64   `mapstructure:"string_large_total_bytes"`
	StringLargeMinGroups   int     `mapstructure:"string_large_min_groups"`
	StringLargeMaxGroups   int     `mapstructure:"string_large_max_groups"`
	StringLargeAvgBytes    int64   `mapstructure:"string_large_avg_bytes"`
	StringLargeRatioLow    float64 `mapstructure:"string_large_ratio_low"`
	StringLargeRatioHigh   float64 `mapstructure:"string_large_ratio_high"`
	StringSmallTotalBytes  int64   `mapstructure:"string_small_total_bytes"`
	StringSmallMinGroups   int     `mapstructure:"string_small_min_groups"`
	StringSmallAvgBytes    int64   `mapstructure:"string_small_avg_bytes"`
	StringSmallRatioLow    float64 `mapstructure:"string_small_ratio_low"`
	StringSmallRatioHigh   float64 `mapstructure:"string_small_ratio_high"`

	// VectorMinAvgValues and VectorPageSizeBytes drive the embedding
	// detection and its page size recommendation.
	VectorMinAvgValues  float64 `mapstructure:"vector_min_avg_values"`
	VectorPageSizeBytes int64   `mapstructure:"vector_page_size_bytes"`

	// BloomRatioThreshold is the cardinality ratio past which byte
	// array columns get a bloom filter recommendation.
	BloomRatioThreshold float64 `mapstructure:"bloom_ratio_threshold"`

	// StatsTruncateBytes caps min/max statistics value lengths.
	StatsTruncateBytes int `mapstructure:"stats_truncate_bytes"`
}

// DefaultPolicy returns the tuned defaults.
func DefaultPolicy() Policy {
	return Policy{
		TargetZstdLevel:    3,
		MinColumnBytes:     8 << 20,
		LargeChunkBytes:    4 << 20,
		SmallChunkAvgBytes:  1 << 20,
		ManySmallChunks:     64,

		ModerateRatioLow:    0.55,
		ModerateRatioHigh:   0.85,
		SnappySkipRatio:     0.90,
		IncompressibleRatio: 0.95,

		LowCardinalityRatio:  0.1,
		HighCardinalityRatio: 0.5,

		DictPageFloorBytes: 2 << 20,
		DictPageCapBytes:   16 << 20,
		DictHeadroom:       1.25,

		AmbiguousSampleFraction: 0.05,

		MaxRowGroupRows:   64 << 10,
		MaxRowGroupBytes:  256 << 20,
		DataPageSizeBytes: 1 << 20,

		StringLargeTotalBytes: 32 << 20,
		StringLargeMinGroups:  2,
		StringLargeMaxGroups:  32,
		StringLargeAvgBytes:   4 << 20,
		StringLargeRatioLow:   0.35,
		StringLargeRatioHigh:  0.75,
		StringSmallTotalBytes: 64 << 20,
		StringSmallMinGroups:  64,
		StringSmallAvgBytes:   1 << 20,
		StringSmallRatioLow:   0.55,
		StringSmallRatioHigh:  0.85,

		VectorMinAvgValues:  64,
		VectorPageSizeBytes: 256 << 10,

		BloomRatioThreshold: 0.5,

		StatsTruncateBytes: 64,
	}
}
