// Package workday は土日を除いた営業日計算を提供する。祝日は考慮しない。
package workday

import "time"

// DefaultDueDays は期日未指定の台帳エントリに与える営業日数
const DefaultDueDays = 5

// Add は start から n 営業日進めた日付を返す。
// 1 日ずつ進め、土曜・日曜以外の日だけを数える。n <= 0 の場合は start をそのまま返す。
func Add(start time.Time, n int) time.Time {
	d := start
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, 1)
		if IsWorkingDay(d) {
			counted++
		}
	}
	return d
}

// IsWorkingDay は土日でなければ true
func IsWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// Today は now のタイムゾーンにおける当日 0 時を返す
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
