// Package grades models a section's letter-grade distribution as a fixed
// 12-bucket vector and derives totals, GPA, and cumulative threshold stats.
package grades

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Letters is the canonical bucket order, highest grade first. Changing it is
// a breaking change for persisted data and the grade_distribution columns.
var Letters = [NumBuckets]string{"A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}

// Points holds the 4.0-scale grade points for each bucket in Letters order.
var Points = [NumBuckets]float64{4.0, 3.7, 3.3, 3.0, 2.7, 2.3, 2.0, 1.7, 1.3, 1.0, 0.7, 0.0}

// NumBuckets is the number of letter-grade buckets.
const NumBuckets = 12

// Vector is a count of students per letter bucket, indexed in Letters order.
type Vector [NumBuckets]int

// Stats is the cumulative at-or-above result for a threshold letter.
type Stats struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Index returns the bucket index for a letter. "A+" aliases onto "A".
func Index(letter string) (int, bool) {
	l := strings.ToUpper(strings.TrimSpace(letter))
	if l == "A+" {
		l = "A"
	}
	for i, name := range Letters {
		if name == l {
			return i, true
		}
	}
	return -1, false
}

// Canonical returns the canonical spelling of a bucket or family letter, or
// "" when it is not part of the vocabulary.
func Canonical(letter string) string {
	if i, ok := Index(letter); ok {
		return Letters[i]
	}
	return ""
}

// Normalize maps an arbitrary letter-keyed mapping onto a Vector. Missing,
// non-numeric and negative entries count as zero and unknown keys are dropped.
func Normalize(raw map[string]any) Vector {
	var v Vector
	for key, value := range raw {
		i, ok := Index(key)
		if !ok {
			continue
		}
		v[i] += toCount(value)
	}
	return v
}

// FromCounts builds a Vector from an int map, typically decoded JSON.
func FromCounts(counts map[string]int) Vector {
	raw := make(map[string]any, len(counts))
	for k, c := range counts {
		raw[k] = c
	}
	return Normalize(raw)
}

func toCount(value any) int {
	var n float64
	switch x := value.(type) {
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case float32:
		n = float64(x)
	case float64:
		n = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return int(n)
}

// Map returns the vector keyed by canonical letter.
func (v Vector) Map() map[string]int {
	m := make(map[string]int, NumBuckets)
	for i, name := range Letters {
		m[name] = v[i]
	}
	return m
}

// Sum returns the total number of graded students across all buckets.
func (v Vector) Sum() int {
	total := 0
	for _, c := range v {
		total += c
	}
	return total
}

// Count returns the count in a single bucket, or 0 for an unknown letter.
func (v Vector) Count(letter string) int {
	if i, ok := Index(letter); ok {
		return v[i]
	}
	return 0
}

// MarshalJSON encodes the vector as an object keyed by letter.
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// UnmarshalJSON decodes any letter-keyed object through Normalize.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode grade breakdown: %w", err)
	}
	*v = Normalize(raw)
	return nil
}

// Total returns the authoritative enrollment when present and non-negative,
// never less than the bucket sum; otherwise the bucket sum.
func Total(v Vector, authoritative *int) int {
	sum := v.Sum()
	if authoritative == nil || *authoritative < 0 {
		return sum
	}
	if *authoritative < sum {
		return sum
	}
	return *authoritative
}

// GPA returns the authoritative GPA when supplied, otherwise the weighted
// average of bucket points. It returns nil when there are no graded students.
func GPA(v Vector, authoritative *float64) *float64 {
	if authoritative != nil {
		g := *authoritative
		return &g
	}
	total := v.Sum()
	if total == 0 {
		return nil
	}
	points := 0.0
	for i, c := range v {
		points += float64(c) * Points[i]
	}
	g := points / float64(total)
	return &g
}

// ThresholdStats returns the cumulative count of students at or above the
// threshold bucket and its share of total.
func ThresholdStats(v Vector, threshold string, total int) Stats {
	idx, ok := Index(threshold)
	if !ok {
		return Stats{}
	}
	count := 0
	for i := 0; i <= idx; i++ {
		count += v[i]
	}
	return Stats{Count: count, Percent: Percent(count, total)}
}

// Percent returns part/total*100, or 0 when total is not positive.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
