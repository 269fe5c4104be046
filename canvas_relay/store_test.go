package main

import (
	"errors"
	"testing"

	"pixelrelay/types"
)

func TestPixelStoreUnknownSize(t *testing.T) {
	store := NewPixelStore()

	if _, err := store.Get(100); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("Get(100) error = %v, want ErrUnknownSize", err)
	}
	if _, err := store.Set(100, 0, 0, "#000000"); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("Set on unknown size error = %v, want ErrUnknownSize", err)
	}
	if err := store.Validate(100, 0, 0); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("Validate on unknown size error = %v, want ErrUnknownSize", err)
	}
}

func TestPixelStoreBounds(t *testing.T) {
	store := NewPixelStore()

	cases := []struct{ x, y int }{
		{-1, 0}, {0, -1}, {8, 0}, {0, 8}, {8, 8},
	}
	for _, tc := range cases {
		if err := store.Validate(8, tc.x, tc.y); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Validate(8, %d, %d) error = %v, want ErrOutOfBounds", tc.x, tc.y, err)
		}
		if _, err := store.Set(8, tc.x, tc.y, "#000000"); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Set(8, %d, %d) error = %v, want ErrOutOfBounds", tc.x, tc.y, err)
		}
	}

	if err := store.Validate(8, 0, 0); err != nil {
		t.Errorf("Validate(8, 0, 0) error = %v", err)
	}
	if err := store.Validate(8, 7, 7); err != nil {
		t.Errorf("Validate(8, 7, 7) error = %v", err)
	}
}

func TestPixelStoreSetReportsNewlyPainted(t *testing.T) {
	store := NewPixelStore()

	newly, err := store.Set(8, 2, 3, "#FF0000")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !newly {
		t.Error("first write to a cell should report newly painted")
	}

	newly, err = store.Set(8, 2, 3, "#00FF00")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if newly {
		t.Error("overwrite should not report newly painted")
	}

	grid, err := store.Get(8)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if grid[3][2] != "#00FF00" {
		t.Errorf("cell (2,3) = %s, want last write #00FF00", grid[3][2])
	}
}

func TestPixelStoreGetReturnsCopy(t *testing.T) {
	store := NewPixelStore()
	if _, err := store.Set(8, 1, 1, "#123456"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	grid, _ := store.Get(8)
	grid[1][1] = "#FFFFFF"

	fresh, _ := store.Get(8)
	if fresh[1][1] != "#123456" {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestPixelStoreDiff(t *testing.T) {
	store := NewPixelStore()
	store.Set(8, 0, 0, "#111111")
	store.Set(8, 7, 7, "#222222")

	sparse, err := store.Diff(8)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(sparse) != 2 {
		t.Fatalf("sparse length = %d, want 2", len(sparse))
	}
}

func TestPixelStoreNamespacesAreIndependent(t *testing.T) {
	store := NewPixelStore()
	store.Set(8, 0, 0, "#111111")

	grid16, _ := store.Get(16)
	if grid16[0][0] != types.DefaultColor {
		t.Error("write to 8x8 leaked into 16x16 namespace")
	}
}

func TestPixelStoreLoad(t *testing.T) {
	store := NewPixelStore()
	err := store.Load(16, []types.SparsePixel{
		{X: 3, Y: 4, Color: "#ABCDEF"},
		{X: 99, Y: 99, Color: "#000000"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	grid, _ := store.Get(16)
	if grid[4][3] != "#ABCDEF" {
		t.Errorf("loaded pixel missing: cell (3,4) = %s", grid[4][3])
	}
}
