package chatclient

import (
	"sort"
	"time"

	"volunteer_chat/internal/domain"
)

// LocalMessage is one entry of the client-side timeline. Entries created
// locally carry a TempID until the server assigns ServerID; the TempID is
// sent as client_id so the server echo can be matched back.
type LocalMessage struct {
	TempID         string               `json:"temp_id,omitempty"`
	ServerID       int64                `json:"id,omitempty"`
	ConversationID int64                `json:"conversation_id"`
	SenderType     domain.ActorKind     `json:"sender_type"`
	SenderID       int64                `json:"sender_id"`
	Content        string               `json:"content"`
	ReplyToID      *int64               `json:"reply_to_id,omitempty"`
	Status         domain.MessageStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	ReadAt         *time.Time           `json:"read_at,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// Pending reports whether the entry has not been confirmed by the server.
func (m LocalMessage) Pending() bool {
	return m.Status == domain.MessageSending || m.Status == domain.MessageFailed
}

// FromServer converts an authoritative message into a timeline entry.
func FromServer(m *domain.Message) LocalMessage {
	lm := LocalMessage{
		ServerID:       m.ID,
		ConversationID: m.ConversationID,
		SenderType:     m.SenderType,
		SenderID:       m.SenderID,
		Content:        m.Content,
		ReplyToID:      m.ReplyToID,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}
	if m.ClientID != nil {
		lm.TempID = *m.ClientID
	}
	if lm.Status == "" {
		lm.Status = domain.MessageSent
	}
	return lm
}

func statusRank(s domain.MessageStatus) int {
	switch s {
	case domain.MessageRead:
		return 2
	case domain.MessageSent:
		return 1
	default:
		return 0
	}
}

// Reconcile merges a fetched page of server messages into the local timeline.
//
// A server message replaces any local entry with the same server id or the
// same client id. Local entries the server has not echoed are kept, so
// Sending and Failed entries survive a poll and earlier pages are not lost.
// Read status never regresses to Sent. Confirmed entries are ordered by
// server id; pending ones follow in their original order.
func Reconcile(server []*domain.Message, local []LocalMessage) []LocalMessage {
	byServerID := make(map[int64]int, len(local))
	byTempID := make(map[string]int, len(local))
	for i, lm := range local {
		if lm.ServerID != 0 {
			byServerID[lm.ServerID] = i
		}
		if lm.TempID != "" {
			byTempID[lm.TempID] = i
		}
	}

	replaced := make(map[int]bool, len(server))
	merged := make([]LocalMessage, 0, len(local)+len(server))
	seen := make(map[int64]bool, len(server))

	for _, m := range server {
		if m == nil || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		entry := FromServer(m)

		idx, ok := byServerID[m.ID]
		if !ok && entry.TempID != "" {
			idx, ok = byTempID[entry.TempID]
		}
		if ok {
			replaced[idx] = true
			prev := local[idx]
			if statusRank(prev.Status) > statusRank(entry.Status) {
				entry.Status = prev.Status
				if entry.ReadAt == nil {
					entry.ReadAt = prev.ReadAt
				}
			}
			if entry.TempID == "" {
				entry.TempID = prev.TempID
			}
		}
		merged = append(merged, entry)
	}

	for i, lm := range local {
		if replaced[i] || (lm.ServerID != 0 && seen[lm.ServerID]) {
			continue
		}
		merged = append(merged, lm)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if (a.ServerID == 0) != (b.ServerID == 0) {
			return a.ServerID != 0
		}
		if a.ServerID == 0 {
			return false
		}
		return a.ServerID < b.ServerID
	})

	return merged
}
