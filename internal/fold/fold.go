// Package fold rebuilds the derived social state from a set of decoded
// ledger events. Folding is a pure function of the event set: it is
// idempotent, and insensitive to input order everywhere except the
// time-ordered sub-folds (votes, profile fields, community edits), which
// order by claimed timestamp.
package fold

import (
	"fmt"
	"sort"
	"strings"

	"twirvo-sync/internal/domain"
)

// Point awards. Accrued permanently; deleting content never revokes them.
const (
	pointsPerPost       = 10
	pointsPerComment    = 5
	pointsPerCommunity  = 50
	pointsPerJoin       = 10
	pointsPerVote       = 1
	pointsPerFollowEdge = 5
)

type buckets struct {
	profiles  []*domain.Event
	creations []*domain.Event
	commEdits []*domain.Event
	posts     []*domain.Event
	comments  []*domain.Event
	postVotes []*domain.Event
	commVotes []*domain.Event
	members   []*domain.Event
	userVotes []*domain.Event
	follows   []*domain.Event
}

// Fold replays the full event set into a fresh State. A malformed event is
// skipped without aborting the rest of the fold.
func Fold(events []*domain.Event) *State {
	s := newState()
	b := &buckets{}
	wallets := make(map[string]bool)

	for _, ev := range events {
		classify(s, b, wallets, ev)
	}

	foldProfiles(s, b.profiles)
	foldCommunities(s, b)
	foldPosts(s, b)
	foldComments(s, b.comments)
	foldPostVotes(s, b.postVotes)
	foldUserVotes(s, b.userVotes, wallets)
	foldCommunityVotes(s, b.commVotes)
	members := foldMembership(s, b.members)
	foldFollows(s, b.follows, wallets)
	foldPoints(s, b, members, wallets)

	s.Wallets = make([]string, 0, len(wallets))
	for w := range wallets {
		s.Wallets = append(s.Wallets, w)
	}
	sort.Strings(s.Wallets)

	return s
}

// classify routes one event into its fold bucket. A panic while handling a
// single event is swallowed so one bad record cannot block the ledger.
func classify(s *State, b *buckets, wallets map[string]bool, ev *domain.Event) {
	defer func() {
		_ = recover()
	}()

	if ev == nil || ev.Signature == "" || !ev.Kind.Valid() {
		return
	}
	if _, seen := s.TxLedger[ev.Signature]; seen {
		return
	}

	wallets[ev.Sender] = true
	s.TxLedger[ev.Signature] = ev

	switch ev.Kind {
	case domain.KindRemovePost, domain.KindRemoveComment:
		s.Tombstones[ev.VoteTarget()] = true

	case domain.KindUsernameSet, domain.KindProfilePictureSet, domain.KindProfileBioSet, domain.KindLinkSet:
		b.profiles = append(b.profiles, ev)

	case domain.KindCreateCommunity:
		b.creations = append(b.creations, ev)

	case domain.KindEditCommunity, domain.KindDeleteCommunity:
		b.commEdits = append(b.commEdits, ev)

	case domain.KindPost:
		b.posts = append(b.posts, ev)

	case domain.KindPostComment:
		b.comments = append(b.comments, ev)

	case domain.KindPostLike, domain.KindPostDislike, domain.KindRemoveLike, domain.KindRemoveDislike:
		b.postVotes = append(b.postVotes, ev)

	case domain.KindCommunityLike, domain.KindCommunityDislike,
		domain.KindRemoveCommunityLike, domain.KindRemoveCommunityDislike:
		b.commVotes = append(b.commVotes, ev)
		// Community votes also surface on the creation entry's stats so the
		// feed can rank community entries with everything else.
		b.postVotes = append(b.postVotes, ev)

	case domain.KindJoinCommunity, domain.KindLeaveCommunity:
		b.members = append(b.members, ev)

	case domain.KindLikeUser, domain.KindDislikeUser,
		domain.KindRemoveUserLike, domain.KindRemoveUserDislike:
		b.userVotes = append(b.userVotes, ev)

	case domain.KindFollowUser, domain.KindUnfollowUser:
		b.follows = append(b.follows, ev)
	}
}

func sortByTimestamp(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].Signature < events[j].Signature
	})
}

func foldProfiles(s *State, events []*domain.Event) {
	sortByTimestamp(events)
	for _, ev := range events {
		p := s.Users[ev.Sender]
		if p == nil {
			p = &domain.Profile{}
			s.Users[ev.Sender] = p
		}
		switch ev.Kind {
		case domain.KindUsernameSet:
			p.Username = ev.Text
		case domain.KindProfilePictureSet:
			p.PFP = ev.Text
		case domain.KindProfileBioSet:
			p.Bio = ev.Text
		case domain.KindLinkSet:
			if len(ev.Links) > 0 {
				p.Links = append([]string(nil), ev.Links...)
			} else {
				p.Links = []string{ev.Text}
			}
		}
		if ev.Simulated {
			p.Simulated = true
		}
	}
}

func (s *State) commStats(id string) *domain.CommunityStats {
	st := s.CommunityStats[id]
	if st == nil {
		st = &domain.CommunityStats{}
		s.CommunityStats[id] = st
	}
	return st
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func foldCommunities(s *State, b *buckets) {
	for _, ev := range b.creations {
		s.Communities[ev.Signature] = &domain.Community{
			ID:        ev.Signature,
			Owner:     ev.Sender,
			Name:      strOrEmpty(ev.CommunityName),
			PFP:       strOrEmpty(ev.CommunityPFP),
			Banner:    strOrEmpty(ev.CommunityBanner),
			Bio:       strOrEmpty(ev.CommunityBio),
			Links:     append([]string(nil), ev.CommunityLinks...),
			Token:     strOrEmpty(ev.CommunityToken),
			Timestamp: ev.Timestamp,
			Simulated: ev.Simulated,
		}
		st := s.commStats(ev.Signature)
		st.Members = appendMember(st.Members, ev.Sender)
		s.CommunityHistory[ev.Signature] = []domain.CommunityEdit{{
			Kind:        ev.Kind,
			Name:        ev.CommunityName,
			Bio:         ev.CommunityBio,
			PFP:         ev.CommunityPFP,
			Banner:      ev.CommunityBanner,
			Links:       append([]string(nil), ev.CommunityLinks...),
			Token:       ev.CommunityToken,
			Timestamp:   ev.Timestamp,
			TxSignature: ev.Signature,
		}}
	}

	// Edits and deletions replay in claimed-timestamp order and only take
	// effect when the sender is the recognized owner.
	sortByTimestamp(b.commEdits)
	for _, ev := range b.commEdits {
		target := ev.ParentCommunity
		comm := s.Communities[target]
		if comm == nil || comm.Owner != ev.Sender {
			continue
		}
		if ev.Kind == domain.KindDeleteCommunity {
			s.Tombstones[target] = true
			s.DeletedCommunities[target] = true
			delete(s.Communities, target)
			continue
		}
		if ev.CommunityName != nil {
			comm.Name = *ev.CommunityName
		}
		if ev.CommunityPFP != nil {
			comm.PFP = *ev.CommunityPFP
		}
		if ev.CommunityBanner != nil {
			comm.Banner = *ev.CommunityBanner
		}
		if ev.CommunityBio != nil {
			comm.Bio = *ev.CommunityBio
		}
		if ev.CommunityLinks != nil {
			comm.Links = append([]string(nil), ev.CommunityLinks...)
		}
		if ev.CommunityToken != nil {
			comm.Token = *ev.CommunityToken
		}
		s.CommunityHistory[target] = append(s.CommunityHistory[target], domain.CommunityEdit{
			Kind:        ev.Kind,
			Name:        ev.CommunityName,
			Bio:         ev.CommunityBio,
			PFP:         ev.CommunityPFP,
			Banner:      ev.CommunityBanner,
			Links:       append([]string(nil), ev.CommunityLinks...),
			Token:       ev.CommunityToken,
			Timestamp:   ev.Timestamp,
			TxSignature: ev.Signature,
		})
	}
}

func (s *State) ensureStats(sig, parent string) *domain.PostStats {
	st := s.Stats[sig]
	if st == nil {
		st = &domain.PostStats{Parent: parent}
		s.Stats[sig] = st
	}
	return st
}

func foldPosts(s *State, b *buckets) {
	for _, ev := range b.posts {
		s.Posts = append(s.Posts, &domain.Post{
			Signature:       ev.Signature,
			Owner:           ev.Sender,
			Kind:            ev.Kind,
			Text:            ev.Text,
			Image:           ev.Image,
			Link:            ev.Link,
			Timestamp:       ev.Timestamp,
			ParentCommunity: ev.ParentCommunity,
			Simulated:       ev.Simulated,
		})
		s.ensureStats(ev.Signature, "")
		if ev.ParentCommunity != "" {
			s.commStats(ev.ParentCommunity).PostCount++
		}
	}

	for _, ev := range b.creations {
		s.Posts = append(s.Posts, &domain.Post{
			Signature: ev.Signature,
			Owner:     ev.Sender,
			Kind:      ev.Kind,
			Text:      fmt.Sprintf("Created a new community called %q!", strOrEmpty(ev.CommunityName)),
			Image:     strOrEmpty(ev.CommunityPFP),
			Timestamp: ev.Timestamp,
			Simulated: ev.Simulated,
		})
		s.ensureStats(ev.Signature, "")
	}

	for _, ev := range b.members {
		if ev.Kind != domain.KindJoinCommunity {
			continue
		}
		s.Posts = append(s.Posts, &domain.Post{
			Signature:       ev.Signature,
			Owner:           ev.Sender,
			Kind:            ev.Kind,
			Text:            "Joined the community!",
			Timestamp:       ev.Timestamp,
			ParentCommunity: ev.VoteTarget(),
			Simulated:       ev.Simulated,
		})
		s.ensureStats(ev.Signature, "")
	}

	sort.SliceStable(s.Posts, func(i, j int) bool {
		if s.Posts[i].Timestamp != s.Posts[j].Timestamp {
			return s.Posts[i].Timestamp < s.Posts[j].Timestamp
		}
		return s.Posts[i].Signature < s.Posts[j].Signature
	})
}

func foldComments(s *State, events []*domain.Event) {
	sortByTimestamp(events)
	for _, ev := range events {
		s.ensureStats(ev.ParentPost, "")
		if ev.ParentCommunity != "" {
			s.commStats(ev.ParentCommunity).CommentCount++
		}
	}
	// Attachment runs after tombstones and the ledger are complete so the
	// ancestry check sees the whole picture.
	for _, ev := range events {
		if s.Deleted(ev.Signature) {
			continue
		}
		parent := s.Stats[ev.ParentPost]
		if parent == nil {
			continue
		}
		parent.Comments = append(parent.Comments, ev.Signature)
		s.Comments[ev.Signature] = &domain.Post{
			Signature:       ev.Signature,
			Owner:           ev.Sender,
			Kind:            ev.Kind,
			Text:            ev.Text,
			Image:           ev.Image,
			Link:            ev.Link,
			Timestamp:       ev.Timestamp,
			ParentPost:      ev.ParentPost,
			ParentCommunity: ev.ParentCommunity,
			Simulated:       ev.Simulated,
		}
		s.ensureStats(ev.Signature, ev.ParentPost).Parent = ev.ParentPost
	}
}

// activeVotes folds a time-ordered vote stream down to the latest action
// per (voter, target) key, dropping keys whose latest action is a removal.
func activeVotes(events []*domain.Event) []*domain.Event {
	sortByTimestamp(events)
	latest := make(map[string]*domain.Event)
	for _, ev := range events {
		key := ev.Sender + "\x00" + ev.VoteTarget()
		if strings.HasPrefix(string(ev.Kind), "remove_") {
			delete(latest, key)
		} else {
			latest[key] = ev
		}
	}
	out := make([]*domain.Event, 0, len(latest))
	for _, ev := range latest {
		out = append(out, ev)
	}
	sortByTimestamp(out)
	return out
}

// danglingSim reports a simulated target that never appeared in the ledger;
// votes and memberships against it are dropped.
func (s *State) danglingSim(sig string) bool {
	return domain.IsSimulatedSignature(sig) && s.TxLedger[sig] == nil
}

func foldPostVotes(s *State, events []*domain.Event) {
	for _, ev := range activeVotes(events) {
		target := ev.VoteTarget()
		if s.danglingSim(target) {
			continue
		}
		st := s.ensureStats(target, "")
		ref := domain.VoteRef{TxSignature: ev.Signature, Sender: ev.Sender}
		switch ev.Kind {
		case domain.KindPostLike, domain.KindCommunityLike:
			st.Likes = append(st.Likes, ref)
		case domain.KindPostDislike, domain.KindCommunityDislike:
			st.Dislikes = append(st.Dislikes, ref)
		}
	}
}

func foldUserVotes(s *State, events []*domain.Event, wallets map[string]bool) {
	for w := range wallets {
		s.UserStats[w] = &domain.UserVotes{}
	}
	for _, ev := range activeVotes(events) {
		target := ev.VoteTarget()
		st := s.UserStats[target]
		if st == nil {
			st = &domain.UserVotes{}
			s.UserStats[target] = st
		}
		switch ev.Kind {
		case domain.KindLikeUser:
			st.Likes = append(st.Likes, ev.Sender)
		case domain.KindDislikeUser:
			st.Dislikes = append(st.Dislikes, ev.Sender)
		}
	}
}

func foldCommunityVotes(s *State, events []*domain.Event) {
	for _, ev := range activeVotes(events) {
		target := ev.VoteTarget()
		if s.danglingSim(target) {
			continue
		}
		st := s.commStats(target)
		switch ev.Kind {
		case domain.KindCommunityLike:
			st.Likes = append(st.Likes, ev.Sender)
		case domain.KindCommunityDislike:
			st.Dislikes = append(st.Dislikes, ev.Sender)
		}
	}
}

// foldMembership resolves join/leave toggles and returns the surviving
// join events so the points fold can score them.
func foldMembership(s *State, events []*domain.Event) []*domain.Event {
	sortByTimestamp(events)
	latest := make(map[string]*domain.Event)
	for _, ev := range events {
		key := ev.Sender + "\x00" + ev.VoteTarget()
		if ev.Kind == domain.KindJoinCommunity {
			latest[key] = ev
		} else {
			delete(latest, key)
		}
	}
	active := make([]*domain.Event, 0, len(latest))
	for _, ev := range latest {
		active = append(active, ev)
	}
	sortByTimestamp(active)
	for _, ev := range active {
		target := ev.VoteTarget()
		if s.danglingSim(target) {
			continue
		}
		st := s.commStats(target)
		st.Members = appendMember(st.Members, ev.Sender)
	}
	return active
}

func appendMember(members []string, wallet string) []string {
	for _, m := range members {
		if m == wallet {
			return members
		}
	}
	return append(members, wallet)
}

func foldFollows(s *State, events []*domain.Event, wallets map[string]bool) {
	followers := make(map[string]map[string]bool)
	following := make(map[string]map[string]bool)
	ensure := func(w string) {
		if followers[w] == nil {
			followers[w] = make(map[string]bool)
			following[w] = make(map[string]bool)
		}
		if s.FollowTimestamps[w] == nil {
			s.FollowTimestamps[w] = make(map[string]int64)
		}
	}
	for w := range wallets {
		ensure(w)
	}

	sortByTimestamp(events)
	for _, ev := range events {
		target := ev.Text
		if target == "" {
			continue
		}
		ensure(ev.Sender)
		ensure(target)
		if ev.Kind == domain.KindFollowUser {
			following[ev.Sender][target] = true
			followers[target][ev.Sender] = true
			s.FollowTimestamps[ev.Sender][target] = ev.Timestamp
		} else {
			delete(following[ev.Sender], target)
			delete(followers[target], ev.Sender)
			delete(s.FollowTimestamps[ev.Sender], target)
		}
	}

	for w := range followers {
		s.Follows[w] = &domain.FollowSet{
			Followers: sortedKeys(followers[w]),
			Following: sortedKeys(following[w]),
		}
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func foldPoints(s *State, b *buckets, activeJoins []*domain.Event, wallets map[string]bool) {
	add := func(wallet, community string, pts int) {
		// Simulated wallets with no claimed profile stay off the board.
		if strings.HasPrefix(wallet, domain.SimulatedPrefix) && s.Users[wallet] == nil {
			return
		}
		p := s.Points[wallet]
		if p == nil {
			p = &domain.Points{Communities: make(map[string]int)}
			s.Points[wallet] = p
		}
		p.Global += pts
		if community != "" {
			p.Communities[community] += pts
		}
	}

	for w := range wallets {
		add(w, "", 0)
	}

	for _, ev := range b.posts {
		add(ev.Sender, ev.ParentCommunity, pointsPerPost)
	}
	for _, ev := range b.creations {
		add(ev.Sender, "", pointsPerCommunity)
	}
	// Joining scores by current membership, so a join-leave-rejoin run
	// counts once and a later community deletion never claws it back.
	for _, ev := range activeJoins {
		add(ev.Sender, ev.VoteTarget(), pointsPerJoin)
	}
	for _, ev := range b.comments {
		add(ev.Sender, ev.ParentCommunity, pointsPerComment)
	}
	for _, ev := range activeVotes(b.postVotes) {
		if ev.Kind == domain.KindPostLike || ev.Kind == domain.KindPostDislike {
			add(ev.Sender, ev.ParentCommunity, pointsPerVote)
		}
	}
	for _, ev := range activeVotes(b.commVotes) {
		add(ev.Sender, "", pointsPerVote)
	}
	for _, ev := range activeVotes(b.userVotes) {
		add(ev.Sender, "", pointsPerVote)
	}
	for _, w := range sortedKeys(walletSet(s.Follows)) {
		fs := s.Follows[w]
		add(w, "", (len(fs.Followers)+len(fs.Following))*pointsPerFollowEdge)
	}
}

func walletSet(m map[string]*domain.FollowSet) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
