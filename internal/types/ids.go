package types

import (
	"github.com/google/uuid"
)

type OwnerID string
type ThreadID string
type MessageID string
type TurnID string

func NewThreadID() ThreadID {
	return ThreadID(uuid.New().String())
}

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func NewTurnID() TurnID {
	return TurnID(uuid.New().String())
}

// ParseOwnerID validates that raw is a UUID and returns it as an OwnerID.
func ParseOwnerID(raw string) (OwnerID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", err
	}
	return OwnerID(id.String()), nil
}
