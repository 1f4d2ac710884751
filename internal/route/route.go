// Package route resolves deep-link path segments against folded state:
// usernames, wallet addresses, community paths, and raw signatures.
package route

import (
	"errors"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
)

// MinSignatureLen is the shortest segment treated as a raw transaction
// signature rather than a name or wallet.
const MinSignatureLen = 60

var (
	// ErrUnknownWallet marks a syntactically valid wallet with no presence
	// in the protocol index.
	ErrUnknownWallet = errors.New("wallet not found in protocol index")

	// ErrUnknownRoute marks a segment that is neither a username, a wallet,
	// a community, nor a signature.
	ErrUnknownRoute = errors.New("could not locate a user or wallet")

	// ErrUnknownCommunity marks a community path whose id is missing or
	// deleted.
	ErrUnknownCommunity = errors.New("community not found or has been deleted")
)

// Kind says what a resolved route points at.
type Kind int

const (
	KindProfile Kind = iota
	KindCommunity
	KindSignature
)

// Route is a resolved deep link.
type Route struct {
	Kind        Kind
	Wallet      string
	CommunityID string
	Signature   string
}

// Resolve maps one path segment to a route. Lookup order: known username
// (case-insensitive), then syntactically valid wallet, then raw signature.
// A valid wallet that is neither the viewer nor indexed resolves to
// ErrUnknownWallet; callers fall back to the feed with a message.
func Resolve(s *fold.State, segment, viewer string) (*Route, error) {
	if segment == "" {
		return nil, ErrUnknownRoute
	}

	if wallet, ok := s.WalletByUsername(segment); ok {
		return &Route{Kind: KindProfile, Wallet: wallet}, nil
	}

	if ValidWallet(segment) {
		if segment == viewer || s.Users[segment] != nil {
			return &Route{Kind: KindProfile, Wallet: segment}, nil
		}
		return nil, ErrUnknownWallet
	}

	if len(segment) > MinSignatureLen || domain.IsSimulatedSignature(segment) {
		return &Route{Kind: KindSignature, Signature: segment}, nil
	}

	return nil, ErrUnknownRoute
}

// ResolvePath handles full deep-link paths, including the community form
// "community/<id>".
func ResolvePath(s *fold.State, path, viewer string) (*Route, error) {
	path = strings.Trim(path, "/")
	if id, ok := strings.CutPrefix(path, "community/"); ok {
		if s.Communities[id] == nil || s.Deleted(id) {
			return nil, ErrUnknownCommunity
		}
		return &Route{Kind: KindCommunity, CommunityID: id}, nil
	}
	return Resolve(s, path, viewer)
}

// ValidWallet reports whether addr decodes to a 32-byte ed25519 point on
// the curve, the shape of a real wallet address.
func ValidWallet(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
