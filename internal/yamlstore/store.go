// Package yamlstore reads room configs from <dir>/<room_id>.yaml.
package yamlstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"gopkg.in/yaml.v3"
)

var roomIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Get читает файл заново при каждом старте, правки применяются без рестарта.
func (s *Store) Get(ctx context.Context, roomID string) (*domain.RoomConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !roomIDRe.MatchString(roomID) {
		return nil, domain.ErrRoomNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, roomID+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("read room %s: %w", roomID, err)
	}

	var cfg domain.RoomConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, roomID, err)
	}
	if cfg.RoomID == "" {
		cfg.RoomID = roomID
	}
	if cfg.RoomID != roomID {
		return nil, fmt.Errorf("%w: file %s declares room %s", domain.ErrInvalidConfig, roomID, cfg.RoomID)
	}
	return &cfg, nil
}
