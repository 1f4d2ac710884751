package server

import (
	"encoding/json"
	"net/http"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/storage"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// LedgerResponse is the signature list of one log.
type LedgerResponse struct {
	Signatures []string `json:"signatures"`
}

// AppendRequest is the body of a ledger append.
type AppendRequest struct {
	Signature string `json:"signature"`
}

// FeedEntry is one post projected for API consumers.
type FeedEntry struct {
	Signature       string `json:"signature"`
	Owner           string `json:"owner"`
	Kind            string `json:"kind"`
	Text            string `json:"text"`
	Image           string `json:"image,omitempty"`
	Link            string `json:"link,omitempty"`
	Timestamp       int64  `json:"timestamp"`
	ParentPost      string `json:"parentPost,omitempty"`
	ParentCommunity string `json:"parentCommunity,omitempty"`
	Simulated       bool   `json:"simulated,omitempty"`
	Likes           int    `json:"likes"`
	Dislikes        int    `json:"dislikes"`
	Comments        int    `json:"comments"`
}

// AuditRecordRequest is the body of an audit-log insert.
type AuditRecordRequest struct {
	ID          string `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	Wallet      string `json:"wallet"`
	ActionKind  string `json:"actionKind"`
	Status      string `json:"status"`
	TxSignature string `json:"txSignature,omitempty"`
	Payload     string `json:"payload,omitempty"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
}

// ProfileResponse is one wallet's public profile. Lamports is present
// only when a balance fetcher is configured and the lookup succeeded.
type ProfileResponse struct {
	Wallet    string   `json:"wallet"`
	Username  string   `json:"username,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	PFP       string   `json:"pfp,omitempty"`
	Links     []string `json:"links,omitempty"`
	Points    int      `json:"points"`
	Simulated bool     `json:"simulated"`
	Lamports  *uint64  `json:"lamports,omitempty"`
}

// PointsEntry is one row of the points leaderboard.
type PointsEntry struct {
	Wallet   string `json:"wallet"`
	Username string `json:"username,omitempty"`
	Points   int    `json:"points"`
}

// StateResponse is the sync and fold summary.
type StateResponse struct {
	Posts       int           `json:"posts"`
	Comments    int           `json:"comments"`
	Wallets     int           `json:"wallets"`
	Communities int           `json:"communities"`
	Current     int           `json:"current"`
	Total       int           `json:"total"`
	Leaders     []PointsEntry `json:"leaders"`
}

func toFeedEntry(p *domain.Post, stats *domain.PostStats) FeedEntry {
	e := FeedEntry{
		Signature:       p.Signature,
		Owner:           p.Owner,
		Kind:            string(p.Kind),
		Text:            p.Text,
		Image:           p.Image,
		Link:            p.Link,
		Timestamp:       p.Timestamp,
		ParentPost:      p.ParentPost,
		ParentCommunity: p.ParentCommunity,
		Simulated:       p.Simulated,
	}
	if stats != nil {
		e.Likes = len(stats.Likes)
		e.Dislikes = len(stats.Dislikes)
		e.Comments = len(stats.Comments)
	}
	return e
}

func toAuditRecord(r AuditRecordRequest) *storage.AuditRecord {
	return &storage.AuditRecord{
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		Wallet:      r.Wallet,
		ActionKind:  r.ActionKind,
		Status:      r.Status,
		TxSignature: r.TxSignature,
		Payload:     r.Payload,
		ErrorMsg:    r.ErrorMsg,
	}
}

func fromAuditRecord(r *storage.AuditRecord) AuditRecordRequest {
	return AuditRecordRequest{
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		Wallet:      r.Wallet,
		ActionKind:  r.ActionKind,
		Status:      r.Status,
		TxSignature: r.TxSignature,
		Payload:     r.Payload,
		ErrorMsg:    r.ErrorMsg,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
