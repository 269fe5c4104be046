package main

import (
	"errors"
	"sync"
	"time"

	"pixelrelay/types"
)

var ErrOutOfBounds = errors.New("pixel coordinates out of bounds")
var ErrUnknownSize = errors.New("unsupported canvas size")

// canvasGrid is one namespace's authoritative grid. Each namespace has its
// own lock so writes to different canvases never contend.
type canvasGrid struct {
	size       int
	cells      [][]string
	lastUpdate time.Time
	mu         sync.Mutex
}

// PixelStore holds the authoritative grid for every canvas namespace.
type PixelStore struct {
	grids map[int]*canvasGrid
}

func NewPixelStore() *PixelStore {
	grids := make(map[int]*canvasGrid, len(types.CanvasSizes))
	for _, size := range types.CanvasSizes {
		grids[size] = &canvasGrid{
			size:  size,
			cells: types.NewGrid(size),
		}
	}
	return &PixelStore{grids: grids}
}

func (s *PixelStore) grid(size int) (*canvasGrid, error) {
	grid, ok := s.grids[size]
	if !ok {
		return nil, ErrUnknownSize
	}
	return grid, nil
}

// Validate reports whether (x, y) is inside the namespace's bounds without
// touching the grid.
func (s *PixelStore) Validate(size, x, y int) error {
	grid, err := s.grid(size)
	if err != nil {
		return err
	}
	if x < 0 || x >= grid.size || y < 0 || y >= grid.size {
		return ErrOutOfBounds
	}
	return nil
}

// Get returns a copy of the full grid. Readers never observe a
// half-applied write and never block writers for longer than the copy.
func (s *PixelStore) Get(size int) ([][]string, error) {
	grid, err := s.grid(size)
	if err != nil {
		return nil, err
	}
	grid.mu.Lock()
	defer grid.mu.Unlock()
	snapshot := make([][]string, grid.size)
	for y, row := range grid.cells {
		snapshot[y] = append([]string(nil), row...)
	}
	return snapshot, nil
}

// Set atomically replaces the cell value, last-writer-wins. It reports
// whether the cell was previously unpainted, which feeds the stats counters.
func (s *PixelStore) Set(size, x, y int, color string) (bool, error) {
	grid, err := s.grid(size)
	if err != nil {
		return false, err
	}
	if x < 0 || x >= grid.size || y < 0 || y >= grid.size {
		return false, ErrOutOfBounds
	}
	grid.mu.Lock()
	defer grid.mu.Unlock()
	newlyPainted := grid.cells[y][x] == types.DefaultColor
	grid.cells[y][x] = color
	grid.lastUpdate = time.Now().UTC()
	return newlyPainted, nil
}

// Diff returns only the cells that differ from the default color.
func (s *PixelStore) Diff(size int) ([]types.SparsePixel, error) {
	grid, err := s.grid(size)
	if err != nil {
		return nil, err
	}
	grid.mu.Lock()
	defer grid.mu.Unlock()
	return types.CollapseSparse(grid.cells), nil
}

func (s *PixelStore) LastUpdate(size int) time.Time {
	grid, err := s.grid(size)
	if err != nil {
		return time.Time{}
	}
	grid.mu.Lock()
	defer grid.mu.Unlock()
	return grid.lastUpdate
}

// Load hydrates a namespace from persisted sparse pixels, skipping anything
// out of range. Used once at startup before the relay serves traffic.
func (s *PixelStore) Load(size int, sparse []types.SparsePixel) error {
	grid, err := s.grid(size)
	if err != nil {
		return err
	}
	grid.mu.Lock()
	defer grid.mu.Unlock()
	for _, sp := range sparse {
		if sp.X >= 0 && sp.X < grid.size && sp.Y >= 0 && sp.Y < grid.size {
			grid.cells[sp.Y][sp.X] = sp.Color
		}
	}
	return nil
}
