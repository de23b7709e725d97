package career

import (
	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/session"
	"github.com/google/uuid"
)

// Sessions is the slice of the session store the engines write through.
// *session.Store satisfies it.
type Sessions interface {
	Get(id uuid.UUID) (*models.ChatSession, bool)
	Update(id uuid.UUID, patch session.Patch) bool
	AppendMessage(id uuid.UUID, msg models.Message) bool
	StageMessage(id uuid.UUID, msg models.Message) bool
	SetMessageContent(id, messageID uuid.UUID, content string) bool
	SyncMessages(id uuid.UUID) bool
}

var _ Sessions = (*session.Store)(nil)
