// Package domain models per-city socioeconomic metrics and the livability
// score derived from them.
//
// # Metric Catalog
//
// Six metrics are recognized. Each has a valid input range, a weight in the
// composite score, and a direction:
//
//	metric                 range              weight  better
//	population             50,000–10,000,000  0.10    higher
//	median_income          20,000–150,000     0.22    higher
//	education_level        0–100              0.22    higher
//	unemployment_rate      1–15               0.16    lower
//	crime_index            20–80              0.15    lower
//	cost_of_living_index   70–140             0.15    lower
//
// Weights sum to 1.0, so a city scoring 100 on every metric scores 100
// overall. The set of names is fixed; a [Catalog] may override ranges,
// weights, and directions but never introduce a new metric.
//
// # Normalization
//
// Raw values are min-max scaled into [0, 1] against the metric range and
// clamped, so values outside the range saturate instead of extrapolating.
// Lower-is-better metrics are inverted after clamping. The result is scaled
// to 0–100 and rounded to two decimals.
//
// A metric the source did not report normalizes to 0 regardless of its
// direction: missing data is always the worst case. See [Normalizer.Normalize].
//
// # Scoring
//
// Each normalized value contributes value/100 × weight. Breakdown entries are
// rounded individually and the total is rounded once from the unrounded
// parts, so the breakdown may differ from the score by up to 0.01 per metric.
// This drift is expected; the breakdown is never re-derived from the rounded
// score. See [Scorer.Score].
//
// # Rounding
//
// All rounding is half away from zero at two decimals ([math.Round] on the
// value × 100). Results are bit-reproducible for identical input.
package domain
