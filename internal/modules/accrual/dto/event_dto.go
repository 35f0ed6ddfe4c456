package dto

import "time"

// IngestEventRequest is one engagement event as judged by the gateway. The
// gateway owns identity resolution and the evidence predicate; EventID is
// carried for log correlation only, the engine does not deduplicate.
type IngestEventRequest struct {
	UserID            string     `json:"user_id" binding:"required"`
	ChannelID         string     `json:"channel_id" binding:"required"`
	OccurredAt        *time.Time `json:"occurred_at"`
	EvidenceQualified bool       `json:"evidence_qualified"`
	EventID           string     `json:"event_id"`
}
