// Package dispatch is the single write path back into the ledger: it
// validates a typed user action, builds the memo payload, submits it via
// an external transaction sender, and on confirmation appends the new
// signature to the directory and requests a re-fold.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"twirvo-sync/internal/directory"
	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
	"twirvo-sync/internal/memo"
	"twirvo-sync/internal/storage"
)

// DefaultConfirmTimeout bounds the wait for ledger confirmation.
const DefaultConfirmTimeout = 90 * time.Second

// Precondition errors. All are raised before any network call.
var (
	ErrInvalidUsername = errors.New("username must be 4-24 characters")
	ErrUsernameTaken   = errors.New("username claimed by a real user")
	ErrInvalidBio      = errors.New("bio must be 10-500 characters")
	ErrInvalidURL      = errors.New("url must be 5-500 characters")
	ErrTooManyLinks    = errors.New("maximum 6 links allowed")
	ErrLinkTooLong     = errors.New("each link must be under 100 characters")
	ErrInvalidText     = errors.New("text must be 5-500 characters")
	ErrNoChange        = errors.New("value already written")
)

// TransactionSender builds, signs and sends the underlying ledger
// transaction carrying the memo payload. Fee computation and wallet
// signing live behind this boundary.
type TransactionSender interface {
	Send(ctx context.Context, wallet string, payload []byte) (string, error)
}

// Confirmer waits until a submitted signature reaches confirmed status.
type Confirmer interface {
	AwaitConfirmation(ctx context.Context, signature string) error
}

// Action is one typed user request.
type Action struct {
	Kind       domain.EventKind
	Text       string
	Links      []string
	Image      string
	Link       string
	ParentPost string

	// Community scopes the action to a community when set.
	Community string

	// Extra carries kind-specific payload fields (community_name and
	// friends on create/edit).
	Extra map[string]interface{}
}

// Options configures a Dispatcher.
type Options struct {
	State          func() *fold.State
	Sender         TransactionSender
	Confirmer      Confirmer
	Directory      *directory.Directory
	Audit          storage.AuditLog
	Refold         func()
	Logger         logrus.FieldLogger
	ConfirmTimeout time.Duration
	Now            func() time.Time
}

// Dispatcher validates and submits user actions.
type Dispatcher struct {
	state          func() *fold.State
	sender         TransactionSender
	confirmer      Confirmer
	directory      *directory.Directory
	audit          storage.AuditLog
	refold         func()
	logger         logrus.FieldLogger
	confirmTimeout time.Duration
	now            func() time.Time
}

// New creates a Dispatcher. Audit, Refold and Logger are optional.
func New(opts Options) *Dispatcher {
	timeout := opts.ConfirmTimeout
	if timeout == 0 {
		timeout = DefaultConfirmTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		state:          opts.State,
		sender:         opts.Sender,
		confirmer:      opts.Confirmer,
		directory:      opts.Directory,
		audit:          opts.Audit,
		refold:         opts.Refold,
		logger:         logger,
		confirmTimeout: timeout,
		now:            now,
	}
}

// Submit runs the full action pipeline for wallet and returns the new
// transaction signature. Precondition failures reject before any network
// call; submission outcomes are recorded to the audit log either way.
// Cancelling ctx stops the local wait only: an already-sent transaction
// may still confirm and will surface through a later fold.
func (d *Dispatcher) Submit(ctx context.Context, wallet string, action Action) (string, error) {
	s := d.state()
	kind := remapToggle(s, wallet, action)

	if err := validate(s, wallet, kind, action); err != nil {
		return "", err
	}

	payload := d.buildPayload(kind, action)
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	sig, err := d.sender.Send(ctx, wallet, raw)
	if err != nil {
		d.writeAudit(wallet, kind, "failed", "", raw, err)
		return "", fmt.Errorf("sending transaction: %w", err)
	}

	// The confirmation wait is detached from the caller's context: the
	// transaction is already on the wire, so caller cancellation stops
	// only the local wait while settle runs to completion and commits
	// the signature for the next fold.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.confirmTimeout)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- d.settle(cctx, wallet, kind, sig, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", err
		}
		return sig, nil
	case <-ctx.Done():
		return "", fmt.Errorf("awaiting confirmation: %w", ctx.Err())
	}
}

func (d *Dispatcher) settle(ctx context.Context, wallet string, kind domain.EventKind, sig string, raw []byte) error {
	if err := d.confirmer.AwaitConfirmation(ctx, sig); err != nil {
		d.writeAudit(wallet, kind, "failed", sig, raw, err)
		return fmt.Errorf("awaiting confirmation: %w", err)
	}

	d.directory.AddPending(sig)
	if err := d.directory.Commit(ctx, sig); err != nil {
		d.logger.WithField("signature", sig).WithError(err).Warn("directory commit failed")
	}
	d.writeAudit(wallet, kind, "successful", sig, raw, nil)

	if d.refold != nil {
		d.refold()
	}
	return nil
}

func (d *Dispatcher) buildPayload(kind domain.EventKind, action Action) map[string]interface{} {
	payload := map[string]interface{}{
		"protocol":  memo.ProtocolTag,
		"type":      string(kind),
		"text":      action.Text,
		"timestamp": d.now().UnixMilli(),
	}
	if kind == domain.KindLinkSet && len(action.Links) > 0 {
		payload["text"] = action.Links
	}
	if action.ParentPost != "" {
		payload["parent_post"] = action.ParentPost
	}
	if action.Community != "" {
		payload["parent_community"] = action.Community
	}
	for k, v := range action.Extra {
		payload[k] = v
	}
	if kind == domain.KindPost || kind == domain.KindPostComment {
		if action.Image != "" {
			payload["image"] = action.Image
		}
		if action.Link != "" {
			payload["link"] = action.Link
		}
	}
	// Removals carry the target in parent_post with an empty body.
	if kind == domain.KindRemovePost || kind == domain.KindRemoveComment {
		target := action.ParentPost
		if target == "" {
			target = action.Text
		}
		payload["parent_post"] = target
		payload["text"] = ""
	}
	return payload
}

func (d *Dispatcher) writeAudit(wallet string, kind domain.EventKind, status, sig string, payload []byte, cause error) {
	if d.audit == nil {
		return
	}
	ts := d.now().UnixMilli()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", wallet, kind, sig, ts)))
	rec := &storage.AuditRecord{
		ID:          hex.EncodeToString(sum[:]),
		Timestamp:   ts,
		Wallet:      wallet,
		ActionKind:  string(kind),
		Status:      status,
		TxSignature: sig,
		Payload:     string(payload),
	}
	if cause != nil {
		rec.ErrorMsg = cause.Error()
	}
	actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.audit.Insert(actx, rec); err != nil {
		d.logger.WithError(err).Warn("audit log write failed")
	}
}

// remapToggle turns a vote on an already-voted target into the matching
// removal, using the acting wallet's current vote state.
func remapToggle(s *fold.State, wallet string, action Action) domain.EventKind {
	target := action.ParentPost
	if target == "" {
		target = action.Text
	}
	switch action.Kind {
	case domain.KindPostLike, domain.KindPostDislike:
		st := s.StatsFor(target)
		if action.Kind == domain.KindPostLike && hasVoteRef(st.Likes, wallet) {
			return domain.KindRemoveLike
		}
		if action.Kind == domain.KindPostDislike && hasVoteRef(st.Dislikes, wallet) {
			return domain.KindRemoveDislike
		}
	case domain.KindCommunityLike, domain.KindCommunityDislike:
		if st := s.CommunityStats[target]; st != nil {
			if action.Kind == domain.KindCommunityLike && containsStr(st.Likes, wallet) {
				return domain.KindRemoveCommunityLike
			}
			if action.Kind == domain.KindCommunityDislike && containsStr(st.Dislikes, wallet) {
				return domain.KindRemoveCommunityDislike
			}
		}
	case domain.KindLikeUser, domain.KindDislikeUser:
		if st := s.UserStats[target]; st != nil {
			if action.Kind == domain.KindLikeUser && containsStr(st.Likes, wallet) {
				return domain.KindRemoveUserLike
			}
			if action.Kind == domain.KindDislikeUser && containsStr(st.Dislikes, wallet) {
				return domain.KindRemoveUserDislike
			}
		}
	}
	return action.Kind
}

func validate(s *fold.State, wallet string, kind domain.EventKind, action Action) error {
	profile := s.Users[wallet]

	switch kind {
	case domain.KindUsernameSet:
		if n := len(action.Text); n > 0 && (n < 4 || n > 24) {
			return ErrInvalidUsername
		}
		if profile != nil && profile.Username == action.Text {
			return ErrNoChange
		}
		if action.Text != "" && usernameTaken(s, action.Text) {
			return ErrUsernameTaken
		}

	case domain.KindProfileBioSet:
		if n := len(action.Text); n > 0 && (n < 10 || n > 500) {
			return ErrInvalidBio
		}
		if profile != nil && profile.Bio == action.Text {
			return ErrNoChange
		}

	case domain.KindProfilePictureSet:
		if n := len(action.Text); n > 0 && (n < 5 || n > 500) {
			return ErrInvalidURL
		}
		if profile != nil && profile.PFP == action.Text {
			return ErrNoChange
		}

	case domain.KindLinkSet:
		links := action.Links
		if len(links) == 0 && action.Text != "" {
			links = []string{action.Text}
		}
		if len(links) > 6 {
			return ErrTooManyLinks
		}
		for _, l := range links {
			if len(l) > 100 {
				return ErrLinkTooLong
			}
		}
		if profile != nil && equalStr(profile.Links, links) {
			return ErrNoChange
		}

	case domain.KindPost, domain.KindPostComment:
		if n := len(action.Text); n < 5 || n > 500 {
			return ErrInvalidText
		}
		if n := len(action.Image); action.Image != "" && (n < 5 || n > 500) {
			return ErrInvalidURL
		}
		if n := len(action.Link); action.Link != "" && (n < 5 || n > 500) {
			return ErrInvalidURL
		}
	}
	return nil
}

// usernameTaken checks claims by real users only; simulated identities do
// not reserve names.
func usernameTaken(s *fold.State, username string) bool {
	wallet, ok := s.WalletByUsername(username)
	if !ok {
		return false
	}
	p := s.Users[wallet]
	return p != nil && !p.Simulated
}

func hasVoteRef(refs []domain.VoteRef, wallet string) bool {
	for _, r := range refs {
		if r.Sender == wallet {
			return true
		}
	}
	return false
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func equalStr(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
