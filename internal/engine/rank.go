package engine

import "github.com/jonathan/grade-explorer/internal/types"

// ApplyRanking orders sections by the hinted metric and truncates them to the
// hinted limit. A nil hint returns sections unchanged.
func ApplyRanking(sections []types.Section, hint *types.RankingHint) []types.Section {
	if hint == nil {
		return sections
	}
	key := SortEnrollment
	if hint.By == types.RankByGPA {
		key = SortGPA
	}
	out := Sort(sections, key, hint.Order != types.OrderAscending, "")
	if hint.Limit != nil && *hint.Limit >= 0 && *hint.Limit < len(out) {
		out = out[:*hint.Limit]
	}
	return out
}
