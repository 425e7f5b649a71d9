package rover

import (
	"math"
	"sort"
	"sync"

	"github.com/akmonengine/rover/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// maxCellsPerBody sends bodies covering more cells (planes, room floors)
// to the overflow list, tested against every other body.
const maxCellsPerBody = 1024

// CellKey is the integer coordinate of a grid cell
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the bodies overlapping it
type Cell struct {
	bodyIndices []int
}

// Pair is a couple of bodies whose bounds overlap. IndexA < IndexB.
type Pair struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	IndexA int
	IndexB int
}

type placement uint8

const (
	placementSkipped placement = iota
	placementGrid
	placementOverflow
)

// SpatialGrid is a uniform hashed grid used as broad phase
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	placements []placement
	overflow   []int
}

// NewSpatialGrid rounds numCells up to a power of two
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert registers the body in every cell its bounds cover.
// Disabled bodies are ignored.
func (sg *SpatialGrid) Insert(bodyIndex int, body *actor.RigidBody) {
	for len(sg.placements) <= bodyIndex {
		sg.placements = append(sg.placements, placementSkipped)
	}

	if !body.Enabled() {
		sg.placements[bodyIndex] = placementSkipped
		return
	}

	aabb := body.Shape.GetAABB()
	if sg.cellCount(aabb) > maxCellsPerBody {
		sg.placements[bodyIndex] = placementOverflow
		sg.overflow = append(sg.overflow, bodyIndex)
		return
	}

	sg.placements[bodyIndex] = placementGrid
	sg.forEachCell(aabb, func(cellIdx int) {
		sg.cells[cellIdx].bodyIndices = append(sg.cells[cellIdx].bodyIndices, bodyIndex)
	})
}

func (sg *SpatialGrid) cellCount(aabb actor.AABB) float64 {
	count := 1.0
	for i := range 3 {
		span := math.Floor(aabb.Max[i]/sg.cellSize) - math.Floor(aabb.Min[i]/sg.cellSize) + 1
		count *= span
	}
	return count
}

func (sg *SpatialGrid) forEachCell(aabb actor.AABB, fn func(cellIdx int)) {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				fn(sg.hashCell(CellKey{x, y, z}))
			}
		}
	}
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
	sg.placements = sg.placements[:0]
	sg.overflow = sg.overflow[:0]
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].bodyIndices) > 1 {
			sort.Ints(sg.cells[i].bodyIndices)
		}
	}
}

// FindPairs is the sequential version of FindPairsParallel, pairs come sorted by index.
func (sg *SpatialGrid) FindPairs(bodies []*actor.RigidBody) []Pair {
	pairs := make([]Pair, 0, len(bodies)/2)
	seen := make([]bool, len(bodies))
	emit := func(p Pair) { pairs = append(pairs, p) }

	for bodyIdx := range bodies {
		sg.gridPairs(bodies, bodyIdx, seen, emit)
	}
	sg.overflowPairs(bodies, emit)

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].IndexA != pairs[j].IndexA {
			return pairs[i].IndexA < pairs[j].IndexA
		}
		return pairs[i].IndexB < pairs[j].IndexB
	})
	return pairs
}

// FindPairsParallel splits the bodies between workers. The channel is closed once every pair is sent.
func (sg *SpatialGrid) FindPairsParallel(bodies []*actor.RigidBody, numWorkers int) <-chan Pair {
	numWorkers = max(1, numWorkers)

	var wg sync.WaitGroup
	pairsChan := make(chan Pair, numWorkers*10)
	emit := func(p Pair) { pairsChan <- p }

	bodiesPerWorker := max(1, len(bodies)/numWorkers)
	for w := range numWorkers {
		start := w * bodiesPerWorker
		end := min(start+bodiesPerWorker, len(bodies))
		if w == numWorkers-1 {
			end = len(bodies)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			seen := make([]bool, len(bodies))
			for bodyIdx := start; bodyIdx < end; bodyIdx++ {
				sg.gridPairs(bodies, bodyIdx, seen, emit)
			}
		}(start, end)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		sg.overflowPairs(bodies, emit)
	}()

	go func() {
		wg.Wait()
		close(pairsChan)
	}()

	return pairsChan
}

// gridPairs emits the pairs (bodyIdx, other) with other > bodyIdx sharing a cell.
func (sg *SpatialGrid) gridPairs(bodies []*actor.RigidBody, bodyIdx int, seen []bool, emit func(Pair)) {
	if sg.placementOf(bodyIdx) != placementGrid {
		return
	}
	clear(seen)

	bodyA := bodies[bodyIdx]
	sg.forEachCell(bodyA.Shape.GetAABB(), func(cellIdx int) {
		for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
			if otherIdx <= bodyIdx || seen[otherIdx] {
				continue
			}
			seen[otherIdx] = true

			if pair, ok := candidate(bodies, bodyIdx, otherIdx); ok {
				emit(pair)
			}
		}
	})
}

// overflowPairs tests each overflow body against all the others.
func (sg *SpatialGrid) overflowPairs(bodies []*actor.RigidBody, emit func(Pair)) {
	for _, bigIdx := range sg.overflow {
		for otherIdx := range bodies {
			if otherIdx == bigIdx {
				continue
			}
			switch sg.placementOf(otherIdx) {
			case placementSkipped:
				continue
			case placementOverflow:
				// emitted once, from the lower index
				if otherIdx < bigIdx {
					continue
				}
			}

			if pair, ok := candidate(bodies, min(bigIdx, otherIdx), max(bigIdx, otherIdx)); ok {
				emit(pair)
			}
		}
	}
}

func (sg *SpatialGrid) placementOf(bodyIdx int) placement {
	if bodyIdx >= len(sg.placements) {
		return placementSkipped
	}
	return sg.placements[bodyIdx]
}

// candidate filters pairs that cannot produce a response: two non-dynamic
// bodies, two sleeping bodies or disjoint bounds.
func candidate(bodies []*actor.RigidBody, i, j int) (Pair, bool) {
	bodyA, bodyB := bodies[i], bodies[j]

	if bodyA.BodyType != actor.BodyTypeDynamic && bodyB.BodyType != actor.BodyTypeDynamic {
		return Pair{}, false
	}
	if bodyA.IsSleeping && bodyB.IsSleeping {
		return Pair{}, false
	}
	if !bodyA.Shape.GetAABB().Overlaps(bodyB.Shape.GetAABB()) {
		return Pair{}, false
	}

	return Pair{BodyA: bodyA, BodyB: bodyB, IndexA: i, IndexB: j}, true
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
