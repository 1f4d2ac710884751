package memo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"twirvo-sync/internal/domain"
)

// MemoProgramID is the on-chain memo program carrying the protocol payload.
const MemoProgramID = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

// ProtocolTag must match the payload's protocol field; anything else is
// foreign traffic on the memo program and is dropped.
const ProtocolTag = "twirvo_v1"

// MaxTimestampSkew is the accepted gap between the server-observed block
// time and the sender-claimed timestamp, in milliseconds.
const MaxTimestampSkew = 90_000

// Decode failure modes. All of them mean "skip this transaction"; none of
// them should abort a fold.
var (
	ErrNoMemo           = errors.New("no memo instruction")
	ErrBadPayload       = errors.New("malformed memo payload")
	ErrProtocolMismatch = errors.New("payload protocol mismatch")
	ErrUnknownKind      = errors.New("unknown event kind")
	ErrSkew             = errors.New("timestamp skew exceeds limit")
)

// payload is the wire shape of the embedded JSON event.
type payload struct {
	Protocol        string          `json:"protocol"`
	Type            string          `json:"type"`
	Text            json.RawMessage `json:"text"`
	Timestamp       int64           `json:"timestamp"`
	Image           string          `json:"image"`
	Link            string          `json:"link"`
	ParentPost      string          `json:"parent_post"`
	ParentCommunity string          `json:"parent_community"`
	CommunityName   *string         `json:"community_name"`
	CommunityPFP    *string         `json:"community_pfp"`
	CommunityBanner *string         `json:"community_banner"`
	CommunityBio    *string         `json:"community_bio"`
	CommunityLinks  []string        `json:"community_links"`
	CommunityToken  *string         `json:"community_token"`
}

// Decode extracts the protocol event embedded in a raw transaction.
// It locates the instruction addressed to the memo program, base58-decodes
// its data, carves out the JSON object and validates protocol tag and
// timestamp skew. Every failure returns a sentinel error the caller is
// expected to swallow.
func Decode(tx *domain.RawTransaction) (*domain.Event, error) {
	if tx == nil {
		return nil, ErrBadPayload
	}

	raw, err := memoData(tx)
	if err != nil {
		return nil, err
	}

	// The memo data may carry leading or trailing noise around the JSON
	// object; keep everything from the first '{' to the last '}'.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, ErrBadPayload
	}

	var p payload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	if p.Protocol != ProtocolTag {
		return nil, ErrProtocolMismatch
	}

	kind := normalizeKind(p.Type)
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}

	if tx.BlockTime != nil {
		serverMs := *tx.BlockTime * 1000
		skew := serverMs - p.Timestamp
		if skew < 0 {
			skew = -skew
		}
		if skew > MaxTimestampSkew {
			return nil, ErrSkew
		}
	}

	text, links := decodeText(p.Text)

	ev := &domain.Event{
		Signature:       tx.Signature,
		Sender:          tx.Sender,
		Kind:            kind,
		Timestamp:       p.Timestamp,
		Text:            text,
		Links:           links,
		Image:           p.Image,
		Link:            p.Link,
		ParentPost:      p.ParentPost,
		ParentCommunity: p.ParentCommunity,
		CommunityName:   p.CommunityName,
		CommunityPFP:    p.CommunityPFP,
		CommunityBanner: p.CommunityBanner,
		CommunityBio:    p.CommunityBio,
		CommunityLinks:  p.CommunityLinks,
		CommunityToken:  p.CommunityToken,
	}
	return ev, nil
}

// memoData finds the memo instruction and returns its decoded UTF-8 data.
func memoData(tx *domain.RawTransaction) (string, error) {
	for _, ix := range tx.Instructions {
		if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(tx.AccountKeys) {
			continue
		}
		if tx.AccountKeys[ix.ProgramIDIndex] != MemoProgramID {
			continue
		}
		data, err := base58.Decode(ix.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return string(data), nil
	}
	return "", ErrNoMemo
}

// normalizeKind maps legacy aliases onto the canonical kind set.
func normalizeKind(t string) domain.EventKind {
	// Old ledger entries used bio_set before the profile_ prefix landed.
	if t == "bio_set" {
		return domain.KindProfileBioSet
	}
	return domain.EventKind(t)
}

// decodeText accepts the text field as either a plain string or an array
// of strings (link_set sends arrays).
func decodeText(raw json.RawMessage) (string, []string) {
	if len(raw) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		first := ""
		if len(arr) > 0 {
			first = arr[0]
		}
		return first, arr
	}

	return "", nil
}
