package physics

import (
	"sort"
	"testing"
)

func TestPointInCircle(t *testing.T) {
	if !PointInCircle(3, 4, 0, 0, 5) {
		t.Error("boundary point should be inside")
	}
	if PointInCircle(3, 4.01, 0, 0, 5) {
		t.Error("point outside radius reported inside")
	}
	if got := DistanceSquared(0, 0, 3, 4); got != 25 {
		t.Errorf("DistanceSquared(0,0,3,4) = %v, want 25", got)
	}
}

func TestQueryRadius(t *testing.T) {
	g := NewSpatialGrid(10, 10, 2)
	points := [][2]float64{{0, 4}, {1, 4}, {9, 4}, {4, 6}, {9.9, 9.9}}
	for i, p := range points {
		g.Insert(p[0], p[1], i)
	}

	var found []int
	g.QueryRadius(1, 4, 1.5, func(i int) bool {
		if PointInCircle(points[i][0], points[i][1], 1, 4, 1.5) {
			found = append(found, i)
		}
		return false
	})
	sort.Ints(found)
	if len(found) != 2 || found[0] != 0 || found[1] != 1 {
		t.Errorf("found %v, want [0 1]", found)
	}

	visits := 0
	g.QueryRadius(5, 5, 100, func(int) bool {
		visits++
		return true
	})
	if visits != 1 {
		t.Errorf("early stop visited %d items", visits)
	}

	g.Clear()
	g.QueryRadius(5, 5, 100, func(int) bool {
		t.Fatal("cleared grid still holds items")
		return true
	})
}
