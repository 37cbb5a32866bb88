package seat

import "sort"

// ValidateIDs はリクエストされた座席ID集合を検証する（空・0以下・重複は不可）
func ValidateIDs(ids []int64) error {
	if len(ids) == 0 {
		return ErrSeatIDsRequired
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return ErrInvalidSeatID
		}
		if _, ok := seen[id]; ok {
			return ErrDuplicateSeatID
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SortedIDs は昇順にソートしたコピーを返す
func SortedIDs(ids []int64) []int64 {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}
