package views

import (
	"sort"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
)

// UserSummary is one row of the user directory.
type UserSummary struct {
	Wallet    string `json:"wallet"`
	Username  string `json:"username,omitempty"`
	PFP       string `json:"pfp,omitempty"`
	Simulated bool   `json:"simulated"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
	Points    int    `json:"points"`
}

// UserDirectory lists every observed wallet, highest points first, wallet
// order as tiebreak. The simulated toggle hides simulated identities.
func UserDirectory(s *fold.State, prefs *Preferences) []UserSummary {
	out := make([]UserSummary, 0, len(s.Wallets))
	for _, w := range s.Wallets {
		profile := s.Users[w]
		simulated := profile != nil && profile.Simulated
		if !prefs.ShowSimulatedUsers && simulated {
			continue
		}
		row := UserSummary{Wallet: w, Simulated: simulated}
		if profile != nil {
			row.Username = profile.Username
			row.PFP = profile.PFP
		}
		if fs := s.Follows[w]; fs != nil {
			row.Followers = len(fs.Followers)
			row.Following = len(fs.Following)
		}
		row.Points = s.PointsFor(w).Global
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Wallet < out[j].Wallet
	})
	return out
}

// ProfileSummary bundles everything a profile page shows for one wallet.
type ProfileSummary struct {
	Wallet    string            `json:"wallet"`
	Profile   *domain.Profile   `json:"profile,omitempty"`
	Posts     []*domain.Post    `json:"posts"`
	Replies   []*domain.Post    `json:"replies"`
	Votes     *domain.UserVotes `json:"votes,omitempty"`
	Followers []string          `json:"followers"`
	Following []string          `json:"following"`
	Points    domain.Points     `json:"points"`
}

// BuildProfile assembles the posts, replies and votes tabs for a wallet.
// Deleted and hidden content is excluded, newest first.
func BuildProfile(s *fold.State, prefs *Preferences, wallet string) *ProfileSummary {
	sum := &ProfileSummary{
		Wallet:  wallet,
		Profile: s.Users[wallet],
		Votes:   s.UserStats[wallet],
		Points:  s.PointsFor(wallet),
	}
	if fs := s.Follows[wallet]; fs != nil {
		sum.Followers = fs.Followers
		sum.Following = fs.Following
	}
	for _, p := range s.Posts {
		if p.Owner != wallet || prefs.isHidden(p.Signature) || s.Deleted(p.Signature) {
			continue
		}
		sum.Posts = append(sum.Posts, p)
	}
	sortByTimestampDesc(sum.Posts)

	for sig, c := range s.Comments {
		if c.Owner != wallet || prefs.isHidden(sig) || s.Deleted(sig) {
			continue
		}
		sum.Replies = append(sum.Replies, c)
	}
	sort.SliceStable(sum.Replies, func(i, j int) bool {
		if sum.Replies[i].Timestamp != sum.Replies[j].Timestamp {
			return sum.Replies[i].Timestamp > sum.Replies[j].Timestamp
		}
		return sum.Replies[i].Signature < sum.Replies[j].Signature
	})
	return sum
}
