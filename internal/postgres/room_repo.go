package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoomConfigRepository — конфигурация комнат в postgres.
type RoomConfigRepository struct {
	db *pgxpool.Pool
}

func NewRoomConfigRepository(db *pgxpool.Pool) *RoomConfigRepository {
	return &RoomConfigRepository{db: db}
}

const selectRoomQuery = `
	SELECT r.id, r.name, r.background_image, r.poster,
	       s.id, s.name, s.character, s.value_tags, s.avatar, s.base_video
	FROM live_rooms r
	JOIN streamers s ON s.id = r.streamer_id
	WHERE r.id = $1`

const selectSlotsQuery = `
	SELECT p.id, p.name, p.class, p.highlights, p.instruction, p.departure_place,
	       p.delivery_company, p.price, p.image_path,
	       rp.sales_doc, rp.start_video, rp.start_offset_ms
	FROM live_room_products rp
	JOIN products p ON p.id = rp.product_id
	WHERE rp.room_id = $1
	ORDER BY rp.position`

func (r *RoomConfigRepository) Get(ctx context.Context, roomID string) (*domain.RoomConfig, error) {
	var cfg domain.RoomConfig
	st := &cfg.Streamer
	err := r.db.QueryRow(ctx, selectRoomQuery, roomID).Scan(
		&cfg.RoomID, &cfg.Name, &cfg.BackgroundImage, &cfg.Poster,
		&st.ID, &st.Name, &st.Character, &st.Values, &st.Avatar, &st.BaseVideo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("select room: %w", err)
	}

	rows, err := r.db.Query(ctx, selectSlotsQuery, roomID)
	if err != nil {
		return nil, fmt.Errorf("select slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s        domain.ProductSlot
			offsetMs int64
		)
		p := &s.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Class, &p.Highlights, &p.Instruction, &p.DeparturePlace,
			&p.DeliveryCompany, &p.Price, &p.ImagePath,
			&s.SalesDoc, &s.StartVideo, &offsetMs,
		); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		s.StartAt = time.Duration(offsetMs) * time.Millisecond
		cfg.Slots = append(cfg.Slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return &cfg, nil
}

// Save upserts the room with its streamer and products and replaces the playlist.
func (r *RoomConfigRepository) Save(ctx context.Context, cfg *domain.RoomConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		st := cfg.Streamer
		if _, err := tx.Exec(ctx, `
			INSERT INTO streamers (id, name, character, value_tags, avatar, base_video)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, character = EXCLUDED.character, value_tags = EXCLUDED.value_tags,
				avatar = EXCLUDED.avatar, base_video = EXCLUDED.base_video`,
			st.ID, st.Name, nonNil(st.Character), nonNil(st.Values), st.Avatar, st.BaseVideo,
		); err != nil {
			return fmt.Errorf("upsert streamer: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO live_rooms (id, name, streamer_id, background_image, poster)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, streamer_id = EXCLUDED.streamer_id,
				background_image = EXCLUDED.background_image, poster = EXCLUDED.poster`,
			cfg.RoomID, cfg.Name, st.ID, cfg.BackgroundImage, cfg.Poster,
		); err != nil {
			return fmt.Errorf("upsert room: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM live_room_products WHERE room_id = $1`, cfg.RoomID); err != nil {
			return fmt.Errorf("clear playlist: %w", err)
		}

		batch := &pgx.Batch{}
		for i, s := range cfg.Slots {
			p := s.Product
			batch.Queue(`
				INSERT INTO products (id, name, class, highlights, instruction, departure_place, delivery_company, price, image_path)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, class = EXCLUDED.class, highlights = EXCLUDED.highlights,
					instruction = EXCLUDED.instruction, departure_place = EXCLUDED.departure_place,
					delivery_company = EXCLUDED.delivery_company, price = EXCLUDED.price, image_path = EXCLUDED.image_path`,
				p.ID, p.Name, p.Class, nonNil(p.Highlights), p.Instruction, p.DeparturePlace, p.DeliveryCompany, p.Price, p.ImagePath,
			)
			batch.Queue(`
				INSERT INTO live_room_products (room_id, position, product_id, sales_doc, start_video, start_offset_ms)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				cfg.RoomID, i, p.ID, s.SalesDoc, s.StartVideo, s.StartAt.Milliseconds(),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert playlist: %w", err)
		}
		return nil
	})
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
