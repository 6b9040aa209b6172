package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

const conversationColumns = `id, user_id, scenario_id, emotion_score, fluency_score, wording_score, length_seconds, created_at`

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	var e, f, w sql.NullInt32
	if err := row.Scan(&c.ID, &c.UserID, &c.ScenarioID, &e, &f, &w, &c.Length, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	c.Stats = model.Stats{EmotionScore: nullInt(e), FluencyScore: nullInt(f), WordingScore: nullInt(w)}
	c.Rounds = []model.ConversationRound{}
	return &c, nil
}

func nullInt(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}

func (r *ConversationRepo) Create(ctx context.Context, qx any, c *model.Conversation) error {
	return inTx(ctx, r.pool, qx, func(ex executor) error {
		const q = `INSERT INTO conversations (id, user_id, scenario_id, length_seconds, created_at) VALUES ($1,$2,$3,$4,$5);`
		if _, err := ex.Exec(ctx, q, c.ID, c.UserID, c.ScenarioID, c.Length, c.CreatedAt); err != nil {
			return fmt.Errorf("create conversation: %w", mapWriteErr(err))
		}
		for i, round := range c.Rounds {
			if _, err := ex.Exec(ctx, `INSERT INTO conversation_rounds (conversation_id, round_id, position) VALUES ($1,$2,$3);`,
				c.ID, round.RoundID, i); err != nil {
				return fmt.Errorf("create round: %w", mapWriteErr(err))
			}
		}
		return nil
	})
}

func (r *ConversationRepo) FindByID(ctx context.Context, qx any, id string) (*model.Conversation, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	c, err := scanConversation(ex.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1;`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadRounds(ctx, ex, []*model.Conversation{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) AppendTurn(ctx context.Context, qx any, conversationID, roundID string, turn model.Turn, stats model.Stats) error {
	return inTx(ctx, r.pool, qx, func(ex executor) error {
		var exists int
		err := ex.QueryRow(ctx, `SELECT 1 FROM conversation_rounds WHERE conversation_id = $1 AND round_id = $2 FOR UPDATE;`,
			conversationID, roundID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}

		var next int
		if err := ex.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_entries WHERE conversation_id = $1 AND round_id = $2;`,
			conversationID, roundID).Scan(&next); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		const qi = `INSERT INTO conversation_entries (conversation_id, round_id, seq, side, text, emotions) VALUES ($1,$2,$3,$4,$5,$6);`
		for i, e := range turn.Entries() {
			if _, err := ex.Exec(ctx, qi, conversationID, roundID, next+i, string(e.Side), e.Text, e.Emotions); err != nil {
				return fmt.Errorf("insert entry: %w", err)
			}
		}

		const qs = `UPDATE conversations SET emotion_score = $2, fluency_score = $3, wording_score = $4 WHERE id = $1;`
		if _, err := ex.Exec(ctx, qs, conversationID, stats.EmotionScore, stats.FluencyScore, stats.WordingScore); err != nil {
			return fmt.Errorf("update stats: %w", err)
		}
		return nil
	})
}

func (r *ConversationRepo) SetLength(ctx context.Context, qx any, conversationID string, seconds int) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE conversations SET length_seconds = $2 WHERE id = $1;`, conversationID, seconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, qx any, userID string, page model.PageRequest) ([]*model.Conversation, int, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1;`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}
	rows, err := ex.Query(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1 ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3;`,
		userID, page.Offset(), page.Limit)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectConversations(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadRounds(ctx, ex, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByUserBetween does not load transcripts.
func (r *ConversationRepo) ListByUserBetween(ctx context.Context, qx any, userID string, from, to time.Time) ([]*model.Conversation, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at;`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectConversations(rows)
}

func (r *ConversationRepo) CreatedTimes(ctx context.Context, qx any, userID string) ([]time.Time, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT created_at FROM conversations WHERE user_id = $1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func collectConversations(rows pgx.Rows) ([]*model.Conversation, error) {
	defer rows.Close()
	out := make([]*model.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) loadRounds(ctx context.Context, ex executor, convs []*model.Conversation) error {
	if len(convs) == 0 {
		return nil
	}
	byID := make(map[string]*model.Conversation, len(convs))
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	const q = `
SELECT r.conversation_id, r.round_id, e.side, e.text, e.emotions
FROM conversation_rounds r
LEFT JOIN conversation_entries e ON e.conversation_id = r.conversation_id AND e.round_id = r.round_id
WHERE r.conversation_id = ANY($1)
ORDER BY r.conversation_id, r.position, e.seq;`
	rows, err := ex.Query(ctx, q, ids)
	if err != nil {
		return fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var convID, roundID string
		var side, text, emotions sql.NullString
		if err := rows.Scan(&convID, &roundID, &side, &text, &emotions); err != nil {
			return fmt.Errorf("scan round: %w", err)
		}
		c := byID[convID]
		if n := len(c.Rounds); n == 0 || c.Rounds[n-1].RoundID != roundID {
			c.Rounds = append(c.Rounds, model.ConversationRound{RoundID: roundID, Transcript: []model.Entry{}})
		}
		if side.Valid {
			cur := &c.Rounds[len(c.Rounds)-1]
			cur.Transcript = append(cur.Transcript, model.Entry{Side: model.Side(side.String), Text: text.String, Emotions: emotions.String})
		}
	}
	return rows.Err()
}
