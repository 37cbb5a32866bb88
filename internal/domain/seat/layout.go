package seat

import "strconv"

// ZoneLayout はゾーンごとの座席配置
type ZoneLayout struct {
	Zone        string
	FirstRow    int
	LastRow     int
	SeatsPerRow int
	Price       int
}

// Layout は会場の座席配置
type Layout []ZoneLayout

// DefaultLayout は標準の会場配置（FLOOR / 1층 / 2층）
var DefaultLayout = Layout{
	{Zone: "FLOOR", FirstRow: 1, LastRow: 5, SeatsPerRow: 15, Price: 15000},
	{Zone: "1층", FirstRow: 6, LastRow: 8, SeatsPerRow: 15, Price: 12000},
	{Zone: "2층", FirstRow: 9, LastRow: 10, SeatsPerRow: 15, Price: 10000},
}

// Build は公演回の座席一覧を生成する
func (l Layout) Build(showtimeID int64) []*Seat {
	seats := make([]*Seat, 0, l.Capacity())
	for _, z := range l {
		for row := z.FirstRow; row <= z.LastRow; row++ {
			for n := 1; n <= z.SeatsPerRow; n++ {
				seats = append(seats, NewSeat(showtimeID, z.Zone, strconv.Itoa(row), n, z.Price))
			}
		}
	}
	return seats
}

// Capacity は配置の総座席数を返す
func (l Layout) Capacity() int {
	total := 0
	for _, z := range l {
		if z.LastRow >= z.FirstRow {
			total += (z.LastRow - z.FirstRow + 1) * z.SeatsPerRow
		}
	}
	return total
}
