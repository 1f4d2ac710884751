package views

import (
	"sort"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
)

// Notification is one ledger event surfaced to a viewer because it touches
// their content, identity, follows, or communities.
type Notification struct {
	Signature       string           `json:"signature"`
	Kind            domain.EventKind `json:"kind"`
	Sender          string           `json:"sender"`
	Timestamp       int64            `json:"timestamp"`
	Parent          string           `json:"parent,omitempty"`
	ParentCommunity string           `json:"parentCommunity,omitempty"`
	Text            string           `json:"text,omitempty"`
	Read            bool             `json:"read"`
	Simulated       bool             `json:"simulated"`
}

// BuildNotifications scans the ledger for events relevant to the viewer:
// activity on their own or child content, follows and user votes aimed at
// them, fresh posts from wallets they follow, and activity in communities
// they created or joined. Blocked senders, blocked ancestry, dismissed ids
// and deleted content are excluded. Newest first.
func BuildNotifications(s *fold.State, prefs *Preferences, viewer string) []Notification {
	if viewer == "" {
		return nil
	}

	var following []string
	if fs := s.Follows[viewer]; fs != nil {
		following = fs.Following
	}
	joined := map[string]bool{}
	for id, st := range s.CommunityStats {
		if contains(st.Members, viewer) {
			joined[id] = true
		}
	}
	created := map[string]bool{}
	for id, c := range s.Communities {
		if c.Owner == viewer {
			created[id] = true
		}
	}

	var notifs []Notification
	for sig, tx := range s.TxLedger {
		if tx.Sender == viewer {
			continue
		}
		if prefs.isBlocked(tx.Sender) {
			continue
		}
		if prefs.isDismissed(sig) {
			continue
		}
		if tx.ParentPost != "" && hasBlockedAncestry(s, prefs, tx.ParentPost) {
			continue
		}
		if s.Deleted(sig) {
			continue
		}

		relevant := false
		taggedCommunity := tx.ParentCommunity

		switch tx.Kind {
		case domain.KindPostLike, domain.KindPostDislike, domain.KindPostComment:
			if tx.ParentPost != "" {
				parent := s.TxLedger[tx.ParentPost]
				if parent != nil && parent.Sender == viewer {
					relevant = true
				} else if parent != nil && parent.ParentPost != "" && tx.Kind == domain.KindPostComment {
					if gp := s.TxLedger[parent.ParentPost]; gp != nil && gp.Sender == viewer {
						relevant = true
					}
				}
			}
		}

		if (tx.Kind == domain.KindFollowUser || tx.Kind == domain.KindUnfollowUser) && tx.Text == viewer {
			relevant = true
		}
		if (tx.Kind == domain.KindLikeUser || tx.Kind == domain.KindDislikeUser) &&
			(tx.Text == viewer || tx.ParentPost == viewer) {
			relevant = true
		}

		switch tx.Kind {
		case domain.KindPost, domain.KindPostComment, domain.KindCreateCommunity, domain.KindJoinCommunity:
			if contains(following, tx.Sender) {
				followedAt := int64(0)
				if m := s.FollowTimestamps[viewer]; m != nil {
					followedAt = m[tx.Sender]
				}
				if tx.Timestamp >= followedAt {
					relevant = true
				}
			}
		}

		targetComm := tx.ParentCommunity
		if targetComm == "" {
			targetComm = tx.VoteTarget()
		}
		if created[targetComm] {
			switch tx.Kind {
			case domain.KindJoinCommunity, domain.KindLeaveCommunity,
				domain.KindCommunityLike, domain.KindCommunityDislike:
				relevant = true
				taggedCommunity = targetComm
			}
		}

		if tx.Kind == domain.KindPost && tx.ParentCommunity != "" && joined[tx.ParentCommunity] {
			relevant = true
		}

		if !relevant {
			continue
		}
		notifs = append(notifs, Notification{
			Signature:       sig,
			Kind:            tx.Kind,
			Sender:          tx.Sender,
			Timestamp:       tx.Timestamp,
			Parent:          tx.ParentPost,
			ParentCommunity: taggedCommunity,
			Text:            tx.Text,
			Read:            prefs.isRead(sig),
			Simulated:       tx.Simulated || domain.IsSimulatedSignature(sig),
		})
	}

	sort.SliceStable(notifs, func(i, j int) bool {
		if notifs[i].Timestamp != notifs[j].Timestamp {
			return notifs[i].Timestamp > notifs[j].Timestamp
		}
		return notifs[i].Signature < notifs[j].Signature
	})
	return notifs
}

// UnreadCount counts unread notifications, honoring the simulated toggle.
func UnreadCount(notifs []Notification, prefs *Preferences) int {
	n := 0
	for _, notif := range notifs {
		if notif.Read {
			continue
		}
		if !prefs.ShowSimulatedNotifs && notif.Simulated {
			continue
		}
		n++
	}
	return n
}

// hasBlockedAncestry walks the parent chain looking for a blocked sender.
func hasBlockedAncestry(s *fold.State, prefs *Preferences, sig string) bool {
	visited := map[string]bool{}
	for curr := sig; curr != "" && !visited[curr]; {
		visited[curr] = true
		tx := s.TxLedger[curr]
		if tx == nil {
			return false
		}
		if prefs.isBlocked(tx.Sender) {
			return true
		}
		curr = tx.ParentPost
	}
	return false
}
