package fold

import (
	"strings"

	"twirvo-sync/internal/domain"
)

// MaxAncestryDepth bounds the parent-chain walk used for deletion checks.
const MaxAncestryDepth = 20

// State is the full derived state of one fold cycle. It is built from
// scratch on every fold and never mutated afterwards; consumers share
// snapshots freely.
type State struct {
	// Posts holds feed entries (user posts plus the synthetic entries
	// surfaced for community creation and joins) ordered by timestamp,
	// signature as tiebreak.
	Posts []*domain.Post

	// Comments maps a comment signature to its record. Comments never
	// appear in Posts; they hang off their parent via Stats.
	Comments map[string]*domain.Post

	// Stats carries per-signature vote and comment aggregates.
	Stats map[string]*domain.PostStats

	// TxLedger maps every decoded signature to its event, including kinds
	// that produce no feed entry of their own.
	TxLedger map[string]*domain.Event

	Users     map[string]*domain.Profile
	UserStats map[string]*domain.UserVotes

	Communities      map[string]*domain.Community
	CommunityStats   map[string]*domain.CommunityStats
	CommunityHistory map[string][]domain.CommunityEdit

	Follows          map[string]*domain.FollowSet
	FollowTimestamps map[string]map[string]int64

	// Tombstones holds signatures targeted by an accepted removal:
	// remove_post, remove_comment, and owner-authorized delete_community.
	Tombstones map[string]bool

	// DeletedCommunities is the subset of Tombstones that came from
	// delete_community events.
	DeletedCommunities map[string]bool

	Points map[string]*domain.Points

	// Wallets lists every wallet observed in the event set, sorted.
	Wallets []string
}

func newState() *State {
	return &State{
		Comments:           make(map[string]*domain.Post),
		Stats:              make(map[string]*domain.PostStats),
		TxLedger:           make(map[string]*domain.Event),
		Users:              make(map[string]*domain.Profile),
		UserStats:          make(map[string]*domain.UserVotes),
		Communities:        make(map[string]*domain.Community),
		CommunityStats:     make(map[string]*domain.CommunityStats),
		CommunityHistory:   make(map[string][]domain.CommunityEdit),
		Follows:            make(map[string]*domain.FollowSet),
		FollowTimestamps:   make(map[string]map[string]int64),
		Tombstones:         make(map[string]bool),
		DeletedCommunities: make(map[string]bool),
		Points:             make(map[string]*domain.Points),
	}
}

// Deleted reports whether sig or any of its ancestors has been tombstoned.
// The walk follows parent_post links and checks each hop's community; it is
// capped at MaxAncestryDepth and a revisited signature stops the walk as
// not further resolvable. A simulated parent missing from the ledger counts
// as deleted.
func (s *State) Deleted(sig string) bool {
	curr := sig
	visited := make(map[string]bool)
	for depth := 0; curr != "" && depth < MaxAncestryDepth; depth++ {
		if visited[curr] {
			return false
		}
		visited[curr] = true

		if s.Tombstones[curr] {
			return true
		}
		if domain.IsSimulatedSignature(curr) && s.TxLedger[curr] == nil {
			return true
		}
		tx := s.TxLedger[curr]
		if tx == nil {
			break
		}
		if tx.ParentCommunity != "" && s.Tombstones[tx.ParentCommunity] {
			return true
		}
		curr = tx.ParentPost
	}
	return false
}

// StatsFor returns the aggregate for sig, or an empty aggregate when none
// was recorded.
func (s *State) StatsFor(sig string) *domain.PostStats {
	if st, ok := s.Stats[sig]; ok {
		return st
	}
	return &domain.PostStats{}
}

// PointsFor returns the score for wallet, zero-valued when the wallet never
// earned anything.
func (s *State) PointsFor(wallet string) domain.Points {
	if p, ok := s.Points[wallet]; ok {
		return *p
	}
	return domain.Points{Communities: map[string]int{}}
}

// WalletByUsername finds the wallet holding username, case-insensitive.
// A real user's claim wins over a simulated one with the same name.
func (s *State) WalletByUsername(username string) (string, bool) {
	lower := strings.ToLower(username)
	simMatch := ""
	for wallet, profile := range s.Users {
		if profile.Username == "" || strings.ToLower(profile.Username) != lower {
			continue
		}
		if !profile.Simulated {
			return wallet, true
		}
		if simMatch == "" || wallet < simMatch {
			simMatch = wallet
		}
	}
	if simMatch != "" {
		return simMatch, true
	}
	return "", false
}
