package problem

// TimeWindowSample is the 17-node, 4-vehicle instance with per-node time
// windows and a depot window on every start.
func TimeWindowSample() *Document {
	windows := [][2]int64{
		{0, 5}, {7, 12}, {10, 15}, {16, 18}, {10, 13}, {0, 5}, {5, 10}, {0, 4}, {5, 10},
		{0, 3}, {10, 16}, {10, 15}, {0, 5}, {5, 10}, {7, 8}, {10, 15}, {11, 15},
	}
	dim := Dimension{
		Name:             "Time",
		SlackMax:         30,
		Capacity:         30,
		StartWindow:      []int64{windows[0][0], windows[0][1]},
		MinimizeStartEnd: true,
	}
	for n := 1; n < len(windows); n++ {
		dim.Windows = append(dim.Windows, Window{Node: n, Min: windows[n][0], Max: windows[n][1]})
	}
	return &Document{
		Name: "time-windows",
		Matrix: [][]int64{
			{0, 6, 9, 8, 7, 3, 6, 2, 3, 2, 6, 6, 4, 4, 5, 9, 7},
			{6, 0, 8, 3, 2, 6, 8, 4, 8, 8, 13, 7, 5, 8, 12, 10, 14},
			{9, 8, 0, 11, 10, 6, 3, 9, 5, 8, 4, 15, 14, 13, 9, 18, 9},
			{8, 3, 11, 0, 1, 7, 10, 6, 10, 10, 14, 6, 7, 9, 14, 6, 16},
			{7, 2, 10, 1, 0, 6, 9, 4, 8, 9, 13, 4, 6, 8, 12, 8, 14},
			{3, 6, 6, 7, 6, 0, 2, 3, 2, 2, 7, 9, 7, 7, 6, 12, 8},
			{6, 8, 3, 10, 9, 2, 0, 6, 2, 5, 4, 12, 10, 10, 6, 15, 5},
			{2, 4, 9, 6, 4, 3, 6, 0, 4, 4, 8, 5, 4, 3, 7, 8, 10},
			{3, 8, 5, 10, 8, 2, 2, 4, 0, 3, 4, 9, 8, 7, 3, 13, 6},
			{2, 8, 8, 10, 9, 2, 5, 4, 3, 0, 4, 6, 5, 4, 3, 9, 5},
			{6, 13, 4, 14, 13, 7, 4, 8, 4, 4, 0, 10, 9, 8, 4, 13, 4},
			{6, 7, 15, 6, 4, 9, 12, 5, 9, 6, 10, 0, 1, 3, 7, 3, 10},
			{4, 5, 14, 7, 6, 7, 10, 4, 8, 5, 9, 1, 0, 2, 6, 4, 8},
			{4, 8, 13, 9, 8, 7, 10, 3, 7, 4, 8, 3, 2, 0, 4, 5, 6},
			{5, 12, 9, 14, 12, 6, 6, 7, 3, 3, 4, 7, 6, 4, 0, 9, 2},
			{9, 10, 18, 6, 8, 12, 15, 8, 13, 9, 13, 3, 4, 5, 9, 0, 9},
			{7, 14, 9, 16, 14, 8, 5, 10, 6, 5, 4, 10, 8, 6, 2, 9, 0},
		},
		Vehicles:   4,
		Depot:      0,
		Dimensions: []Dimension{dim},
		Search: Search{
			FirstSolutionStrategy: "PATH_CHEAPEST_ARC",
			TimeLimit:             "20s",
			LNSTimeLimit:          "20s",
		},
	}
}

// PickupDeliverySample is the 5-node, single-vehicle instance whose pairs
// chain 3 -> 4 -> 1 -> 2.
func PickupDeliverySample() *Document {
	return &Document{
		Name: "pickup-delivery",
		Matrix: [][]int64{
			{0, 100, 100, 80, 100},
			{100, 0, 80, 100, 100},
			{100, 100, 0, 100, 80},
			{100, 80, 100, 0, 100},
			{100, 100, 100, 100, 0},
		},
		Vehicles: 1,
		Depot:    0,
		Dimensions: []Dimension{{
			Name:                  "Distance",
			Capacity:              3000,
			FixStartToZero:        true,
			GlobalSpanCoefficient: 100,
		}},
		PickupsDeliveries:   [][]int{{1, 2}, {3, 4}, {4, 1}},
		PrecedenceDimension: "Distance",
		Search: Search{
			FirstSolutionStrategy: "PATH_CHEAPEST_ARC",
		},
	}
}

// Sample returns a sample by name: "timewindows" or "pdp".
func Sample(name string) (*Document, bool) {
	switch name {
	case "timewindows", "time-windows":
		return TimeWindowSample(), true
	case "pdp", "pickup-delivery":
		return PickupDeliverySample(), true
	}
	return nil, false
}
