package session

import (
	"time"

	"github.com/sweetpotato0/adaptive-rag/message"
)

// Record is the serializable snapshot of a session, suitable for JSON or
// BSON persistence.
type Record struct {
	ID        string             `json:"id" bson:"_id"`
	State     State              `json:"state" bson:"state"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
	Messages  []*message.Message `json:"messages" bson:"messages"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		ID:        r.ID,
		State:     r.State,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Messages:  message.CloneMessages(r.Messages),
	}
}
