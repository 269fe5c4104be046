package types

import (
	"encoding/json"
	"time"
)

// DefaultColor is the value of every cell that has never been painted.
const DefaultColor = "#FFFFFF"

// CanvasSizes are the supported namespace sizes. Each size owns an
// independent grid, change log and subscriber set.
var CanvasSizes = []int{8, 16, 32, 64, 128, 256, 512}

func IsValidSize(size int) bool {
	for _, s := range CanvasSizes {
		if s == size {
			return true
		}
	}
	return false
}

// WSMessage is the envelope for every frame on both transports.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DecodeData decodes WSMessage.Data into a typed struct.
func DecodeData[T any](raw interface{}) (T, error) {
	var data T
	bytes, err := json.Marshal(raw)
	if err != nil {
		return data, err
	}
	err = json.Unmarshal(bytes, &data)
	return data, err
}

// Pixel is one accepted write. Timestamp is unix milliseconds.
type Pixel struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Color     string `json:"color"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

// The wire format has grown both snake_case and camelCase spellings of
// several fields. Decoding accepts either and normalizes here, so nothing
// past the transport boundary branches on the spelling.

func (p *Pixel) UnmarshalJSON(data []byte) error {
	var aux struct {
		X         int     `json:"x"`
		Y         int     `json:"y"`
		Color     string  `json:"color"`
		UserID    *string `json:"user_id"`
		UserIDAlt *string `json:"userId"`
		Username  string  `json:"username"`
		Timestamp int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.X = aux.X
	p.Y = aux.Y
	p.Color = aux.Color
	p.UserID = pick(aux.UserID, aux.UserIDAlt)
	p.Username = aux.Username
	p.Timestamp = aux.Timestamp
	return nil
}

type SparsePixel struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

type Stats struct {
	TotalPixels     int `json:"total_pixels"`
	UniqueUsers     int `json:"unique_users"`
	PixelsPlacedNow int `json:"pixels_placed_now"`
}

func (s *Stats) UnmarshalJSON(data []byte) error {
	var aux struct {
		TotalPixels     *int `json:"total_pixels"`
		TotalPixelsAlt  *int `json:"totalPixels"`
		UniqueUsers     *int `json:"unique_users"`
		UniqueUsersAlt  *int `json:"uniqueUsers"`
		PixelsPlacedNow int  `json:"pixels_placed_now"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.TotalPixels = pickInt(aux.TotalPixels, aux.TotalPixelsAlt)
	s.UniqueUsers = pickInt(aux.UniqueUsers, aux.UniqueUsersAlt)
	s.PixelsPlacedNow = aux.PixelsPlacedNow
	return nil
}

// Canvas is the full snapshot payload for canvas_data / canvas_update.
// Either Pixels (dense, row-major [y][x]) or SparsePixels may be populated.
type Canvas struct {
	Pixels        [][]string    `json:"pixels,omitempty"`
	SparsePixels  []SparsePixel `json:"sparse_pixels,omitempty"`
	Size          int           `json:"size"`
	LastUpdate    time.Time     `json:"last_update"`
	Stats         Stats         `json:"stats"`
	RecentChanges []Pixel       `json:"recent_changes"`
}

func (c *Canvas) UnmarshalJSON(data []byte) error {
	var aux struct {
		Pixels           [][]string    `json:"pixels"`
		SparsePixels     []SparsePixel `json:"sparse_pixels"`
		SparsePixelsAlt  []SparsePixel `json:"sparsePixels"`
		Size             int           `json:"size"`
		LastUpdate       time.Time     `json:"last_update"`
		LastUpdateAlt    time.Time     `json:"lastUpdate"`
		Stats            Stats         `json:"stats"`
		RecentChanges    []Pixel       `json:"recent_changes"`
		RecentChangesAlt []Pixel       `json:"recentChanges"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Pixels = aux.Pixels
	c.SparsePixels = aux.SparsePixels
	if c.SparsePixels == nil {
		c.SparsePixels = aux.SparsePixelsAlt
	}
	c.Size = aux.Size
	c.LastUpdate = aux.LastUpdate
	if c.LastUpdate.IsZero() {
		c.LastUpdate = aux.LastUpdateAlt
	}
	c.Stats = aux.Stats
	c.RecentChanges = aux.RecentChanges
	if c.RecentChanges == nil {
		c.RecentChanges = aux.RecentChangesAlt
	}
	return nil
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CooldownInfo struct {
	CanPlace    bool      `json:"can_place"`
	CooldownEnd time.Time `json:"cooldown_end"`
}

func (ci *CooldownInfo) UnmarshalJSON(data []byte) error {
	var aux struct {
		CanPlace       bool       `json:"can_place"`
		CanPlaceAlt    *bool      `json:"canPlace"`
		CooldownEnd    *time.Time `json:"cooldown_end"`
		CooldownEndAlt *time.Time `json:"cooldownEnd"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ci.CanPlace = aux.CanPlace
	if aux.CanPlaceAlt != nil {
		ci.CanPlace = *aux.CanPlaceAlt
	}
	if aux.CooldownEnd != nil {
		ci.CooldownEnd = *aux.CooldownEnd
	} else if aux.CooldownEndAlt != nil {
		ci.CooldownEnd = *aux.CooldownEndAlt
	}
	return nil
}

type PlacePixelRequest struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Color    string `json:"color"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Size     int    `json:"size"`
}

func (r *PlacePixelRequest) UnmarshalJSON(data []byte) error {
	var aux struct {
		X         int     `json:"x"`
		Y         int     `json:"y"`
		Color     string  `json:"color"`
		UserID    *string `json:"userId"`
		UserIDAlt *string `json:"user_id"`
		Username  string  `json:"username"`
		Size      int     `json:"size"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.X = aux.X
	r.Y = aux.Y
	r.Color = aux.Color
	r.UserID = pick(aux.UserID, aux.UserIDAlt)
	r.Username = aux.Username
	r.Size = aux.Size
	return nil
}

type GetCanvasRequest struct {
	Size int `json:"size"`
}

type CheckCooldownRequest struct {
	UserID string `json:"userId"`
}

func (r *CheckCooldownRequest) UnmarshalJSON(data []byte) error {
	var aux struct {
		UserID    *string `json:"userId"`
		UserIDAlt *string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.UserID = pick(aux.UserID, aux.UserIDAlt)
	return nil
}

type UpdateUsernameRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (r *UpdateUsernameRequest) UnmarshalJSON(data []byte) error {
	var aux struct {
		UserID    *string `json:"userId"`
		UserIDAlt *string `json:"user_id"`
		Username  string  `json:"username"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.UserID = pick(aux.UserID, aux.UserIDAlt)
	r.Username = aux.Username
	return nil
}

type CooldownActive struct {
	CooldownEnd time.Time `json:"cooldownEnd"`
	Message     string    `json:"message"`
}

func (ca *CooldownActive) UnmarshalJSON(data []byte) error {
	var aux struct {
		CooldownEnd    *time.Time `json:"cooldownEnd"`
		CooldownEndAlt *time.Time `json:"cooldown_end"`
		Message        string     `json:"message"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.CooldownEnd != nil {
		ca.CooldownEnd = *aux.CooldownEnd
	} else if aux.CooldownEndAlt != nil {
		ca.CooldownEnd = *aux.CooldownEndAlt
	}
	ca.Message = aux.Message
	return nil
}

type OnlineCount struct {
	Count int `json:"count"`
}

type PixelPlaced struct {
	Success bool  `json:"success"`
	Pixel   Pixel `json:"pixel"`
}

type UsernameUpdated struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

type WireError struct {
	Message string `json:"message"`
}

func pick(a, b *string) string {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return ""
}

func pickInt(a, b *int) int {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return 0
}
