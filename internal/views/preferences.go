// Package views derives consumer-facing projections (feeds, notifications,
// user summaries) from folded state plus a viewer's local preferences.
package views

// Feed sort modes.
const (
	FilterOldest    = "oldest"
	FilterNewest    = "newest"
	FilterRecent    = "recent"
	FilterLiked     = "liked"
	FilterCommented = "commented"
	FilterRelevant  = "relevant"
	FilterYou       = "you"
	FilterFollowing = "following"
)

// Thresholds bounds numeric feed filters. Max values default high enough to
// pass everything.
type Thresholds struct {
	MinLikes    int `json:"minLikes"`
	MaxLikes    int `json:"maxLikes"`
	MinDislikes int `json:"minDislikes"`
	MaxDislikes int `json:"maxDislikes"`
	MinComments int `json:"minComments"`
	MaxComments int `json:"maxComments"`
}

// Preferences is the viewer-local settings bundle that shapes every derived
// view. It persists across sessions via the preference store.
type Preferences struct {
	Filter           string `json:"filter"`
	PositiveKeywords string `json:"positiveKeywords"`
	NegativeKeywords string `json:"negativeKeywords"`

	ShowSimulated          bool `json:"showSimulated"`
	ShowSimulatedNotifs    bool `json:"showSimulatedNotifs"`
	ShowSimulatedUsers     bool `json:"showSimulatedUsers"`
	ShowSimulatedBlocklist bool `json:"showSimulatedBlocklist"`

	// ProfanityFilterEnabled persists the content-safety toggle; applying it
	// to text is a presentation concern.
	ProfanityFilterEnabled bool `json:"profanityFilterEnabled"`

	Thresholds Thresholds `json:"thresholds"`

	HiddenPosts  []string `json:"hiddenPosts"`
	BlockedUsers []string `json:"blockedUsers"`

	ReadNotifs      []string `json:"readNotifs"`
	DismissedNotifs []string `json:"dismissedNotifs"`

	Theme string `json:"theme"`
}

// DefaultPreferences returns the settings a fresh viewer starts with.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Filter:                 FilterOldest,
		PositiveKeywords:       "solana, blockchain, crypto, NFTs, SOL, cryptocurrency",
		NegativeKeywords:       "scam, airdrop, bot, spam",
		ShowSimulated:          true,
		ShowSimulatedNotifs:    true,
		ShowSimulatedUsers:     true,
		ShowSimulatedBlocklist: true,
		ProfanityFilterEnabled: true,
		Thresholds: Thresholds{
			MaxLikes:    9999,
			MaxDislikes: 9999,
			MaxComments: 9999,
		},
		Theme: "dark",
	}
}

// Clone returns a deep copy safe to mutate independently.
func (p *Preferences) Clone() *Preferences {
	out := *p
	out.HiddenPosts = append([]string(nil), p.HiddenPosts...)
	out.BlockedUsers = append([]string(nil), p.BlockedUsers...)
	out.ReadNotifs = append([]string(nil), p.ReadNotifs...)
	out.DismissedNotifs = append([]string(nil), p.DismissedNotifs...)
	return &out
}

func (p *Preferences) isHidden(sig string) bool {
	return contains(p.HiddenPosts, sig)
}

func (p *Preferences) isBlocked(wallet string) bool {
	return contains(p.BlockedUsers, wallet)
}

func (p *Preferences) isDismissed(sig string) bool {
	return contains(p.DismissedNotifs, sig)
}

func (p *Preferences) isRead(sig string) bool {
	return contains(p.ReadNotifs, sig)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
