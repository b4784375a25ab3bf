package postgres

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/live-room-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatArchive сохраняет ленту комнат для истории после окончания эфира.
type ChatArchive struct {
	db *pgxpool.Pool
}

func NewChatArchive(db *pgxpool.Pool) *ChatArchive {
	return &ChatArchive{db: db}
}

func (r *ChatArchive) Name() string { return "postgres-archive" }

// Handle пишет только chat.message, остальные события пропускает.
func (r *ChatArchive) Handle(ctx context.Context, ev domain.Event) error {
	if ev.Type != domain.EventChatMessage || ev.Message == nil {
		return nil
	}
	return r.Save(ctx, ev.RoomID, ev.Incarnation, *ev.Message)
}

func (r *ChatArchive) Save(ctx context.Context, roomID string, incarnation uint64, m domain.ChatMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO live_messages
			(id, room_id, incarnation, seq, role, user_id, user_name, text, product_index, source, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		m.ID, roomID, int64(incarnation), m.Seq, string(m.Role), m.UserID, m.UserName, m.Text,
		m.ProductIndex, string(m.Source), m.Fallback, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert live message: %w", err)
	}
	return nil
}

// History возвращает архив комнаты с курсорной пагинацией (created_at,id DESC).
func (r *ChatArchive) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(roomID, after)
	if err != nil {
		return nil, "", err
	}

	const query = `
		SELECT id, seq, role, user_id, user_name, text, product_index, source, fallback, created_at
		FROM live_messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			m            domain.ChatMessage
			role, source string
		)
		if err := rows.Scan(&m.ID, &m.Seq, &role, &m.UserID, &m.UserName, &m.Text,
			&m.ProductIndex, &source, &m.Fallback, &m.CreatedAt); err != nil {
			return nil, "", err
		}
		m.Role, m.Source = domain.Role(role), domain.Source(source)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = EncodeCursor(Cursor{RoomID: roomID, CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, next, nil
}
