package domain

import "strings"

// EventKind identifies the action encoded in a memo payload.
type EventKind string

// Event kind constants. The set is closed: decoders reject anything else.
const (
	KindPost        EventKind = "post"
	KindPostComment EventKind = "post_comment"

	KindPostLike       EventKind = "post_like"
	KindPostDislike    EventKind = "post_dislike"
	KindRemoveLike     EventKind = "remove_like"
	KindRemoveDislike  EventKind = "remove_dislike"
	KindRemovePost     EventKind = "remove_post"
	KindRemoveComment  EventKind = "remove_comment"

	KindUsernameSet       EventKind = "username_set"
	KindProfilePictureSet EventKind = "profile_picture_set"
	KindProfileBioSet     EventKind = "profile_bio_set"
	KindLinkSet           EventKind = "link_set"

	KindFollowUser   EventKind = "follow_user"
	KindUnfollowUser EventKind = "unfollow_user"

	KindCreateCommunity EventKind = "create_community"
	KindEditCommunity   EventKind = "edit_community"
	KindDeleteCommunity EventKind = "delete_community"
	KindJoinCommunity   EventKind = "join_community"
	KindLeaveCommunity  EventKind = "leave_community"

	KindCommunityLike          EventKind = "community_like"
	KindCommunityDislike       EventKind = "community_dislike"
	KindRemoveCommunityLike    EventKind = "remove_community_like"
	KindRemoveCommunityDislike EventKind = "remove_community_dislike"

	KindLikeUser          EventKind = "like_user"
	KindDislikeUser       EventKind = "dislike_user"
	KindRemoveUserLike    EventKind = "remove_user_like"
	KindRemoveUserDislike EventKind = "remove_user_dislike"
)

// knownKinds is the closed set of event kinds the fold understands.
var knownKinds = map[EventKind]struct{}{
	KindPost: {}, KindPostComment: {},
	KindPostLike: {}, KindPostDislike: {}, KindRemoveLike: {}, KindRemoveDislike: {},
	KindRemovePost: {}, KindRemoveComment: {},
	KindUsernameSet: {}, KindProfilePictureSet: {}, KindProfileBioSet: {}, KindLinkSet: {},
	KindFollowUser: {}, KindUnfollowUser: {},
	KindCreateCommunity: {}, KindEditCommunity: {}, KindDeleteCommunity: {},
	KindJoinCommunity: {}, KindLeaveCommunity: {},
	KindCommunityLike: {}, KindCommunityDislike: {},
	KindRemoveCommunityLike: {}, KindRemoveCommunityDislike: {},
	KindLikeUser: {}, KindDislikeUser: {}, KindRemoveUserLike: {}, KindRemoveUserDislike: {},
}

// Valid reports whether k is one of the recognized event kinds.
func (k EventKind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// IsVote reports whether k is any like/dislike/remove-vote variant.
func (k EventKind) IsVote() bool {
	switch k {
	case KindPostLike, KindPostDislike, KindRemoveLike, KindRemoveDislike,
		KindCommunityLike, KindCommunityDislike, KindRemoveCommunityLike, KindRemoveCommunityDislike,
		KindLikeUser, KindDislikeUser, KindRemoveUserLike, KindRemoveUserDislike:
		return true
	}
	return false
}

// IsRemoval reports whether k tombstones an existing entity.
func (k EventKind) IsRemoval() bool {
	return k == KindRemovePost || k == KindRemoveComment || k == KindDeleteCommunity
}

// SimulatedPrefix marks signatures synthesized from the simulated feed.
// They are never resolvable against the real ledger.
const SimulatedPrefix = "sim_"

// IsSimulatedSignature reports whether sig belongs to the simulated namespace.
func IsSimulatedSignature(sig string) bool {
	return strings.HasPrefix(sig, SimulatedPrefix)
}

// Event is one decoded ledger action, keyed by the transaction signature
// that carried it.
type Event struct {
	Signature string
	Sender    string
	Kind      EventKind

	// Timestamp is the sender-claimed time in unix milliseconds. Ordering of
	// time-ordered sub-folds (votes, profile fields, community edits) uses
	// this value, not the server-observed block time.
	Timestamp int64

	Text  string
	Image string
	Link  string
	Links []string

	ParentPost      string
	ParentCommunity string

	// Community payload fields, set on create_community / edit_community.
	// Pointers distinguish "absent" from "set to empty" for edit folding.
	CommunityName   *string
	CommunityPFP    *string
	CommunityBanner *string
	CommunityBio    *string
	CommunityLinks  []string
	CommunityToken  *string

	Simulated bool
}

// VoteTarget returns the entity the event votes on. User votes carry the
// wallet in text with parent_post as the fallback; every other vote kind
// reads parent_post first.
func (e *Event) VoteTarget() string {
	switch e.Kind {
	case KindLikeUser, KindDislikeUser, KindRemoveUserLike, KindRemoveUserDislike:
		if e.Text != "" {
			return e.Text
		}
		return e.ParentPost
	}
	if e.ParentPost != "" {
		return e.ParentPost
	}
	return e.Text
}
