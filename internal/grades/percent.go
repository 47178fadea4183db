package grades

import "sort"

// PercentagesToCounts converts per-bucket percentages (0-100) into integer
// counts that sum exactly to enrollment, distributing rounding error with the
// largest-remainder method. Counts never go below zero.
func PercentagesToCounts(pcts [NumBuckets]float64, enrollment int) Vector {
	var v Vector
	if enrollment <= 0 {
		return v
	}

	var fracs [NumBuckets]float64
	floorSum := 0
	for i, p := range pcts {
		if p < 0 {
			p = 0
		}
		raw := p * float64(enrollment) / 100.0
		v[i] = int(raw)
		fracs[i] = raw - float64(v[i])
		floorSum += v[i]
	}

	diff := enrollment - floorSum
	if diff == 0 {
		return v
	}

	order := make([]int, NumBuckets)
	for i := range order {
		order[i] = i
	}

	if diff > 0 {
		sort.SliceStable(order, func(a, b int) bool { return fracs[order[a]] > fracs[order[b]] })
		for diff > 0 {
			for _, i := range order {
				if diff == 0 {
					break
				}
				v[i]++
				diff--
			}
		}
		return v
	}

	// Percentages summed above 100: trim from the smallest remainders first.
	sort.SliceStable(order, func(a, b int) bool { return fracs[order[a]] < fracs[order[b]] })
	for diff < 0 {
		removed := false
		for _, i := range order {
			if diff == 0 {
				break
			}
			if v[i] > 0 {
				v[i]--
				diff++
				removed = true
			}
		}
		if !removed {
			break
		}
	}
	return v
}
