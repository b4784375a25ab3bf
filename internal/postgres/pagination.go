package postgres

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor — позиция в архиве комнаты, порядок (created_at, id) DESC.
// Курсор привязан к комнате: чужой курсор отклоняется.
type Cursor struct {
	RoomID    string
	CreatedAt time.Time
	ID        string
}

// EncodeCursor: base64url("<room>\x00<unix_micro>\x00<id>"). Точность микросекунды
// совпадает с timestamptz.
func EncodeCursor(c Cursor) string {
	raw := strings.Join([]string{c.RoomID, strconv.FormatInt(c.CreatedAt.UnixMicro(), 10), c.ID}, "\x00")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor returns nil for an empty cursor (first page).
func DecodeCursor(roomID, s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrInvalidCursor, err)
	}
	parts := strings.Split(string(data), "\x00")
	if len(parts) != 3 || parts[2] == "" {
		return nil, fmt.Errorf("%w: malformed", ErrInvalidCursor)
	}
	if parts[0] != roomID {
		return nil, fmt.Errorf("%w: cursor belongs to another room", ErrInvalidCursor)
	}
	us, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || us <= 0 {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}
	return &Cursor{RoomID: roomID, CreatedAt: time.UnixMicro(us).UTC(), ID: parts[2]}, nil
}
