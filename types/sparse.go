package types

// NewGrid returns a size×size grid filled with DefaultColor, row-major
// (grid[y][x]).
func NewGrid(size int) [][]string {
	grid := make([][]string, size)
	for y := range grid {
		row := make([]string, size)
		for x := range row {
			row[x] = DefaultColor
		}
		grid[y] = row
	}
	return grid
}

// CollapseSparse returns only the cells whose value differs from
// DefaultColor, for efficient transfer of mostly-blank canvases.
func CollapseSparse(grid [][]string) []SparsePixel {
	var sparse []SparsePixel
	for y, row := range grid {
		for x, color := range row {
			if color != DefaultColor {
				sparse = append(sparse, SparsePixel{X: x, Y: y, Color: color})
			}
		}
	}
	return sparse
}

// ExpandSparse reconstructs a full grid from a sparse list. Out-of-range
// entries are skipped.
func ExpandSparse(size int, sparse []SparsePixel) [][]string {
	grid := NewGrid(size)
	for _, sp := range sparse {
		if sp.X >= 0 && sp.X < size && sp.Y >= 0 && sp.Y < size {
			grid[sp.Y][sp.X] = sp.Color
		}
	}
	return grid
}
