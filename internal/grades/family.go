package grades

import "strings"

// BOrAboveFloor is the lowest bucket counted as "B or above".
const BOrAboveFloor = "B-"

// IsFamily reports whether letter is a bare family letter (A, B, C, D, F).
func IsFamily(letter string) bool {
	switch strings.ToUpper(strings.TrimSpace(letter)) {
	case "A", "B", "C", "D", "F":
		return true
	}
	return false
}

// Buckets returns the bucket indexes a key addresses. A bare letter covers
// its whole family (B covers B+, B and B-); a modified letter covers one
// bucket. Unknown keys return nil.
func Buckets(key string) []int {
	k := strings.ToUpper(strings.TrimSpace(key))
	if k == "A+" {
		k = "A"
	}
	if IsFamily(k) {
		var idx []int
		for i, name := range Letters {
			if name[:1] == k {
				idx = append(idx, i)
			}
		}
		return idx
	}
	if i, ok := Index(k); ok {
		return []int{i}
	}
	return nil
}

// Floor returns the lowest bucket a key addresses, used for cumulative
// "or above" thresholds. It returns "" for unknown keys.
func Floor(key string) string {
	idx := Buckets(key)
	if len(idx) == 0 {
		return ""
	}
	return Letters[idx[len(idx)-1]]
}

// FamilyCount sums the buckets addressed by key.
func (v Vector) FamilyCount(key string) int {
	count := 0
	for _, i := range Buckets(key) {
		count += v[i]
	}
	return count
}

// AtOrAbove counts students in every bucket from A down to the floor of key.
func (v Vector) AtOrAbove(key string) int {
	floor := Floor(key)
	if floor == "" {
		return 0
	}
	return ThresholdStats(v, floor, 0).Count
}

// BOrAbove counts students graded B- or better.
func (v Vector) BOrAbove() int {
	return v.AtOrAbove(BOrAboveFloor)
}
