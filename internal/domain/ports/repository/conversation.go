package repository

import (
	"context"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
)

type ConversationRepository interface {
	Create(ctx context.Context, qx any, c *model.Conversation) error
	FindByID(ctx context.Context, qx any, id string) (*model.Conversation, error)
	// AppendTurn pushes the user and AI entries of one turn onto the round and
	// overwrites the conversation stats.
	AppendTurn(ctx context.Context, qx any, conversationID, roundID string, turn model.Turn, stats model.Stats) error
	SetLength(ctx context.Context, qx any, conversationID string, seconds int) error
	ListByUser(ctx context.Context, qx any, userID string, page model.PageRequest) ([]*model.Conversation, int, error)
	// ListByUserBetween returns conversations created in [from, to).
	ListByUserBetween(ctx context.Context, qx any, userID string, from, to time.Time) ([]*model.Conversation, error)
	// CreatedTimes returns creation times of all the user's conversations, newest first.
	CreatedTimes(ctx context.Context, qx any, userID string) ([]time.Time, error)
}
