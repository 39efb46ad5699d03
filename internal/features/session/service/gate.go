package service

import (
	"strings"
	"sync"

	"monad-deathmatch-backend/internal/features/session/models"
)

// GateInput is one evaluation's view of the world.
type GateInput struct {
	Wallet       models.Signal
	Social       models.Signal
	SocialUser   *models.SocialIdentity
	CachedWallet string
	CurrentPath  string
}

// Gate decides access for a single mount. It issues at most one redirect over
// its lifetime; a new mount gets a new Gate.
type Gate struct {
	protectedRoute string
	publicRoute    string

	mu          sync.Mutex
	evaluated   bool
	redirected  bool
	provisional string
}

func NewGate(protectedRoute, publicRoute string) *Gate {
	return &Gate{
		protectedRoute: protectedRoute,
		publicRoute:    publicRoute,
	}
}

// Redirected reports whether the latch has fired.
func (g *Gate) Redirected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.redirected
}

// Evaluate folds the two signals into a decision. Evaluations are serialised;
// only the first qualifying one may redirect.
func (g *Gate) Evaluate(in GateInput) models.Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	var d models.Decision

	if !g.evaluated {
		g.evaluated = true
		if in.CachedWallet != "" {
			g.provisional = in.CachedWallet
			d.MirrorWallet = in.CachedWallet
		}
	}

	// the cached address only stands in while the provider is still resolving
	wallet := in.Wallet
	if wallet.IsPending() && g.provisional != "" {
		wallet = models.Present(g.provisional)
		d.ProvisionalWallet = true
	}

	if wallet.IsPresent() {
		addr := wallet.Identity
		d.Session.WalletAddress = &addr
	}
	if in.Social.IsPresent() {
		d.Session.SocialIdentity = in.SocialUser
	}

	if wallet.IsPending() || in.Social.IsPending() {
		d.Outcome = models.OutcomePending
		return d
	}

	if wallet.IsPresent() && in.Social.IsPresent() {
		d.Authorized = true
		d.Session.Authorized = true
		d.Outcome = models.OutcomeAuthorized
		d.RedirectTarget = g.redirect(in.CurrentPath, g.protectedRoute)
		return d
	}

	d.Outcome = models.OutcomeDenied
	d.RedirectTarget = g.redirect(in.CurrentPath, g.publicRoute)
	return d
}

func (g *Gate) redirect(current, target string) string {
	if g.redirected || samePath(current, target) {
		return ""
	}
	g.redirected = true
	return target
}

func samePath(a, b string) bool {
	trim := func(p string) string {
		if p == "" {
			return ""
		}
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		if len(p) > 1 {
			p = strings.TrimSuffix(p, "/")
		}
		return p
	}
	return trim(a) == trim(b)
}
