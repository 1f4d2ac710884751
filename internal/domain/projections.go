package domain

// Post is a feed entry derived from the fold: a user post, a comment, or a
// synthetic entry surfaced for community creation/join events.
type Post struct {
	Signature       string
	Owner           string
	Kind            EventKind
	Text            string
	Image           string
	Link            string
	Timestamp       int64
	ParentPost      string
	ParentCommunity string
	Simulated       bool
}

// VoteRef records one active vote: the transaction that cast it and who sent it.
type VoteRef struct {
	TxSignature string
	Sender      string
}

// PostStats is the per-signature aggregate attached to posts and comments.
type PostStats struct {
	Likes    []VoteRef
	Dislikes []VoteRef
	// Comments holds child comment signatures in arrival order.
	Comments []string
	// Parent is the parent signature for comments, empty for top-level posts.
	Parent string
}

// Profile is the last-writer-wins identity record for a wallet.
type Profile struct {
	Username  string
	PFP       string
	Bio       string
	Links     []string
	Simulated bool
}

// Community is the folded registry entry for one community, identified by
// its creating transaction signature.
type Community struct {
	ID        string
	Owner     string
	Name      string
	PFP       string
	Banner    string
	Bio       string
	Links     []string
	Token     string
	Timestamp int64
	Simulated bool
}

// CommunityStats aggregates votes, membership and content counters for a
// community.
type CommunityStats struct {
	Likes        []string
	Dislikes     []string
	Members      []string
	PostCount    int
	CommentCount int
}

// CommunityEdit is one entry of the ordered, immutable history log kept per
// community: the creation record followed by each accepted owner edit.
type CommunityEdit struct {
	Kind        EventKind
	Name        *string
	Bio         *string
	PFP         *string
	Banner      *string
	Links       []string
	Token       *string
	Timestamp   int64
	TxSignature string
}

// FollowSet holds both directions of the follow graph for one wallet.
type FollowSet struct {
	Followers []string
	Following []string
}

// UserVotes is the active like/dislike state on a wallet itself.
type UserVotes struct {
	Likes    []string
	Dislikes []string
}

// Points is the permanently accrued score for a wallet: a global total and
// per-community sub-ledgers for community-scoped actions.
type Points struct {
	Global      int
	Communities map[string]int
}
