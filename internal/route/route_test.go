package route

import (
	"errors"
	"strings"
	"testing"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
)

// Real ed25519 wallet addresses.
const (
	indexedWallet = "xYrbdj49APDxPiGxNSeG5iupxKk8VmEKCidVy2e1rCS"
	strayWallet   = "5yA6cqmdepTZbkNfEocyd71CnfHetd1jvnhZDFuifiYX"
)

func stateWithUser(t *testing.T) *fold.State {
	t.Helper()
	return fold.Fold([]*domain.Event{
		{Signature: "U1", Sender: indexedWallet, Kind: domain.KindUsernameSet, Text: "Alice", Timestamp: 100},
	})
}

func TestResolveUsernameCaseInsensitive(t *testing.T) {
	s := stateWithUser(t)
	r, err := Resolve(s, "alice", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Kind != KindProfile || r.Wallet != indexedWallet {
		t.Errorf("route = %+v, want profile for %s", r, indexedWallet)
	}
}

func TestResolveIndexedWallet(t *testing.T) {
	s := stateWithUser(t)
	r, err := Resolve(s, indexedWallet, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Kind != KindProfile || r.Wallet != indexedWallet {
		t.Errorf("route = %+v", r)
	}
}

func TestResolveUnknownWallet(t *testing.T) {
	s := stateWithUser(t)
	if _, err := Resolve(s, strayWallet, ""); !errors.Is(err, ErrUnknownWallet) {
		t.Errorf("err = %v, want ErrUnknownWallet", err)
	}
	// The viewer's own wallet resolves even without an indexed profile.
	r, err := Resolve(s, strayWallet, strayWallet)
	if err != nil {
		t.Fatalf("resolve own wallet: %v", err)
	}
	if r.Wallet != strayWallet {
		t.Errorf("route = %+v", r)
	}
}

func TestResolveSignature(t *testing.T) {
	s := stateWithUser(t)
	long := strings.Repeat("3", 88)
	r, err := Resolve(s, long, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Kind != KindSignature || r.Signature != long {
		t.Errorf("route = %+v", r)
	}

	r, err = Resolve(s, "sim_1700000000000_4", "")
	if err != nil {
		t.Fatalf("resolve simulated: %v", err)
	}
	if r.Kind != KindSignature {
		t.Errorf("route = %+v, want signature view for simulated id", r)
	}
}

func TestResolveUnknownRoute(t *testing.T) {
	s := stateWithUser(t)
	for _, seg := range []string{"", "nobody", "short"} {
		if _, err := Resolve(s, seg, ""); !errors.Is(err, ErrUnknownRoute) {
			t.Errorf("Resolve(%q) err = %v, want ErrUnknownRoute", seg, err)
		}
	}
}

func TestResolvePathCommunity(t *testing.T) {
	name := "builders"
	s := fold.Fold([]*domain.Event{
		{Signature: "C1", Sender: indexedWallet, Kind: domain.KindCreateCommunity, Timestamp: 100, CommunityName: &name},
	})
	r, err := ResolvePath(s, "/community/C1", "")
	if err != nil {
		t.Fatalf("resolve path: %v", err)
	}
	if r.Kind != KindCommunity || r.CommunityID != "C1" {
		t.Errorf("route = %+v", r)
	}
	if _, err := ResolvePath(s, "/community/C2", ""); !errors.Is(err, ErrUnknownCommunity) {
		t.Errorf("err = %v, want ErrUnknownCommunity", err)
	}
}

func TestValidWallet(t *testing.T) {
	if !ValidWallet(indexedWallet) {
		t.Error("real wallet rejected")
	}
	for _, bad := range []string{"", "notbase58!!!", "abc", strings.Repeat("3", 88)} {
		if ValidWallet(bad) {
			t.Errorf("ValidWallet(%q) = true, want false", bad)
		}
	}
}
