// Package simfeed parses the simulated ledger: a trusted side feed of
// synthesized activity, one JSON object per line. Simulated entries never
// touch the real ledger and are merged into the event stream at read time.
package simfeed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"twirvo-sync/internal/domain"
)

// DefaultSender is used when a simulated line omits the wallet field.
const DefaultSender = "SimulatedUserWallet123456789"

// line is the wire shape of one simulated ledger entry.
type line struct {
	Type            string          `json:"type"`
	Wallet          string          `json:"wallet"`
	Text            json.RawMessage `json:"text"`
	Image           string          `json:"image"`
	Link            string          `json:"link"`
	Timestamp       int64           `json:"timestamp"`
	ParentPost      string          `json:"parent_post"`
	ParentCommunity string          `json:"parent_community"`
	CommunityName   *string         `json:"community_name"`
	CommunityPFP    *string         `json:"community_pfp"`
	CommunityBanner *string         `json:"community_banner"`
	CommunityBio    *string         `json:"community_bio"`
	CommunityLinks  []string        `json:"community_links"`
	CommunityToken  *string         `json:"community_token"`
}

// Parse reads the feed and synthesizes one event per parseable line.
// Signatures are sim_<timestamp>_<index>; unparseable or unknown-kind lines
// are skipped, matching the drop-silently rule for untrusted input.
func Parse(r io.Reader) ([]*domain.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []*domain.Event
	index := 0
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var l line
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			index++
			continue
		}

		kind := domain.EventKind(l.Type)
		if !kind.Valid() {
			index++
			continue
		}

		sender := l.Wallet
		if sender == "" {
			sender = DefaultSender
		}

		body, links := decodeText(l.Text)

		events = append(events, &domain.Event{
			Signature:       fmt.Sprintf("%s%d_%d", domain.SimulatedPrefix, l.Timestamp, index),
			Sender:          sender,
			Kind:            kind,
			Timestamp:       l.Timestamp,
			Text:            body,
			Links:           links,
			Image:           l.Image,
			Link:            l.Link,
			ParentPost:      l.ParentPost,
			ParentCommunity: l.ParentCommunity,
			CommunityName:   l.CommunityName,
			CommunityPFP:    l.CommunityPFP,
			CommunityBanner: l.CommunityBanner,
			CommunityBio:    l.CommunityBio,
			CommunityLinks:  l.CommunityLinks,
			CommunityToken:  l.CommunityToken,
			Simulated:       true,
		})
		index++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read simulated feed: %w", err)
	}
	return events, nil
}

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
