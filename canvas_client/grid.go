package main

import "pixelrelay/types"

// localView is the agent's copy of one canvas. All methods run under the
// agent's mutex; the view itself does no locking.
type localView struct {
	size  int
	cells [][]string
}

func newLocalView(size int) *localView {
	return &localView{size: size, cells: types.NewGrid(size)}
}

// apply sets a cell and returns the previous value so an optimistic edit
// can be undone before a snapshot round-trip.
func (v *localView) apply(x, y int, color string) string {
	if x < 0 || x >= v.size || y < 0 || y >= v.size {
		return ""
	}
	prev := v.cells[y][x]
	v.cells[y][x] = color
	return prev
}

func (v *localView) at(x, y int) string {
	if x < 0 || x >= v.size || y < 0 || y >= v.size {
		return ""
	}
	return v.cells[y][x]
}

// load replaces the view with an authoritative snapshot, dense or sparse.
func (v *localView) load(canvas types.Canvas) {
	if canvas.Size > 0 && canvas.Size != v.size {
		return
	}
	if canvas.Pixels != nil && len(canvas.Pixels) == v.size {
		for y, row := range canvas.Pixels {
			if len(row) == v.size {
				copy(v.cells[y], row)
			}
		}
		return
	}
	v.cells = types.ExpandSparse(v.size, canvas.SparsePixels)
}

func (v *localView) snapshot() [][]string {
	out := make([][]string, v.size)
	for y, row := range v.cells {
		out[y] = append([]string(nil), row...)
	}
	return out
}
