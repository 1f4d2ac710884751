package views

import (
	"sort"
	"strings"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
)

// Query scopes one feed build to a viewer and an optional community or
// user allow-list.
type Query struct {
	// Viewer is the acting wallet, used by the "you" and "following" modes.
	Viewer string

	// ActiveCommunity restricts the feed to one community's posts plus its
	// creation entry. Empty means the global top-level feed.
	ActiveCommunity string

	// UserFilter is a comma-separated allow-list matched as a substring
	// against usernames and wallet addresses.
	UserFilter string
}

// BuildFeed filters and sorts the folded post set for one viewer. The
// filter chain runs block checks first, then hidden posts, the simulated
// toggle, community scope, deletion ancestry, numeric thresholds, and the
// user allow-list; the surviving posts are ordered by the preference's
// sort mode.
func BuildFeed(s *fold.State, prefs *Preferences, q Query) []*domain.Post {
	base := make([]*domain.Post, 0, len(s.Posts))
	for _, p := range s.Posts {
		if prefs.isBlocked(p.Owner) {
			continue
		}
		if prefs.isHidden(p.Signature) {
			continue
		}
		if !prefs.ShowSimulated && p.Simulated {
			continue
		}
		if q.ActiveCommunity != "" {
			if p.ParentCommunity != q.ActiveCommunity && p.Signature != q.ActiveCommunity {
				continue
			}
		} else if p.ParentCommunity != "" {
			continue
		}
		if s.Deleted(p.Signature) {
			continue
		}
		if p.ParentCommunity != "" && s.Communities[p.ParentCommunity] == nil {
			continue
		}

		st := s.StatsFor(p.Signature)
		if len(st.Likes) < prefs.Thresholds.MinLikes || len(st.Likes) > prefs.Thresholds.MaxLikes {
			continue
		}
		if len(st.Dislikes) < prefs.Thresholds.MinDislikes || len(st.Dislikes) > prefs.Thresholds.MaxDislikes {
			continue
		}
		visible := VisibleCommentCount(s, prefs, p.Signature)
		if visible < prefs.Thresholds.MinComments || visible > prefs.Thresholds.MaxComments {
			continue
		}

		if !matchesUserFilter(s, p.Owner, q.UserFilter) {
			continue
		}

		base = append(base, p)
	}

	return sortFeed(s, prefs, q, base)
}

func matchesUserFilter(s *fold.State, owner, filter string) bool {
	if filter == "" {
		return true
	}
	var allowed []string
	for _, tok := range strings.Split(strings.ToLower(filter), ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			allowed = append(allowed, tok)
		}
	}
	if len(allowed) == 0 {
		return true
	}
	username := ""
	if profile := s.Users[owner]; profile != nil {
		username = strings.ToLower(profile.Username)
	}
	wallet := strings.ToLower(owner)
	for _, tok := range allowed {
		if (username != "" && strings.Contains(username, tok)) || strings.Contains(wallet, tok) {
			return true
		}
	}
	return false
}

func sortFeed(s *fold.State, prefs *Preferences, q Query, base []*domain.Post) []*domain.Post {
	switch prefs.Filter {
	case FilterFollowing:
		var following []string
		if fs := s.Follows[q.Viewer]; fs != nil {
			following = fs.Following
		}
		out := base[:0]
		for _, p := range base {
			if p.Owner != q.Viewer && contains(following, p.Owner) {
				out = append(out, p)
			}
		}
		sortByTimestampDesc(out)
		return out

	case FilterYou:
		out := base[:0]
		for _, p := range base {
			if p.Owner == q.Viewer {
				out = append(out, p)
			}
		}
		sortByTimestampDesc(out)
		return out

	case FilterOldest:
		sort.SliceStable(base, func(i, j int) bool { return base[i].Timestamp < base[j].Timestamp })

	case FilterNewest, FilterRecent:
		sortByTimestampDesc(base)

	case FilterLiked:
		sort.SliceStable(base, func(i, j int) bool {
			return len(s.StatsFor(base[i].Signature).Likes) > len(s.StatsFor(base[j].Signature).Likes)
		})

	case FilterCommented:
		counts := make(map[string]int, len(base))
		for _, p := range base {
			counts[p.Signature] = VisibleCommentCount(s, prefs, p.Signature)
		}
		sort.SliceStable(base, func(i, j int) bool {
			return counts[base[i].Signature] > counts[base[j].Signature]
		})

	case FilterRelevant:
		scores := make(map[string]int, len(base))
		for _, p := range base {
			scores[p.Signature] = relevanceScore(p.Text, prefs)
		}
		sort.SliceStable(base, func(i, j int) bool {
			return scores[base[i].Signature] > scores[base[j].Signature]
		})
	}
	return base
}

func sortByTimestampDesc(posts []*domain.Post) {
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Timestamp > posts[j].Timestamp })
}

// relevanceScore sums +10 per positive keyword hit and -10 per negative
// keyword hit against the post text, case-insensitive substring matches.
func relevanceScore(text string, prefs *Preferences) int {
	lower := strings.ToLower(text)
	score := 0
	for _, k := range strings.Split(strings.ToLower(prefs.PositiveKeywords), ",") {
		if k = strings.TrimSpace(k); k != "" && strings.Contains(lower, k) {
			score += 10
		}
	}
	for _, k := range strings.Split(strings.ToLower(prefs.NegativeKeywords), ",") {
		if k = strings.TrimSpace(k); k != "" && strings.Contains(lower, k) {
			score -= 10
		}
	}
	return score
}

// VisibleCommentCount walks the comment subtree under sig, counting
// entries that are neither hidden nor deleted. The walk carries a visited
// set so malformed parent cycles terminate.
func VisibleCommentCount(s *fold.State, prefs *Preferences, sig string) int {
	count := 0
	visited := map[string]bool{}
	stack := []string{sig}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[curr] {
			continue
		}
		visited[curr] = true

		st := s.Stats[curr]
		if st == nil {
			continue
		}
		for _, child := range st.Comments {
			if visited[child] || prefs.isHidden(child) || s.Deleted(child) {
				continue
			}
			count++
			stack = append(stack, child)
		}
	}
	return count
}
