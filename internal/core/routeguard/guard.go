// Package routeguard decides where navigation should land given the current
// session and profile. Every function here is pure: the same input always
// yields the same decision and nothing is read from or written to shared state.
package routeguard

import (
	"net/url"
	"strings"

	"github.com/lastslot/account-service/internal/core/domain"
)

const (
	PathAuth                  = "/auth"
	PathDashboard             = "/dashboard"
	PathOnboarding            = "/onboarding"
	PathCreateCustomerProfile = "/create-customer-profile"
	PathCreateBusinessProfile = "/create-business-profile"
)

var publicPaths = map[string]struct{}{
	"/":               {},
	PathAuth:          {},
	"/about":          {},
	"/contact":        {},
	"/privacy":        {},
	"/terms":          {},
	"/how-it-works":   {},
	"/reset-password": {},
	"/search":         {},
}

var onboardingPaths = map[string]struct{}{
	PathOnboarding:            {},
	PathCreateCustomerProfile: {},
	PathCreateBusinessProfile: {},
}

// State classifies a visitor for routing purposes.
type State int

const (
	StateAnonymous State = iota
	StateNoProfile
	StateIncompleteCustomer
	StateIncompleteProvider
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateNoProfile:
		return "authenticated-no-profile"
	case StateIncompleteCustomer:
		return "authenticated-incomplete-customer"
	case StateIncompleteProvider:
		return "authenticated-incomplete-provider"
	case StateComplete:
		return "authenticated-complete"
	default:
		return "unknown"
	}
}

// Input is everything a routing decision depends on.
type Input struct {
	Session *domain.Session
	Profile *domain.Profile
	Path    string
	// LastRoute is the last in-app route the user visited, used when a
	// complete user is bounced off an onboarding page.
	LastRoute string
	// JustCompleted is a short-lived local hint set right after the user
	// finished the completion form, before the refetched profile arrives.
	JustCompleted bool
}

// Decision is the outcome of Decide. The zero value means "stay".
type Decision struct {
	Redirect bool   `json:"redirect"`
	To       string `json:"to,omitempty"`
}

func stay() Decision { return Decision{} }

func redirect(to string) Decision { return Decision{Redirect: true, To: to} }

// Classify maps session and profile to a State. justCompleted only upgrades
// an existing, incomplete profile.
func Classify(session *domain.Session, profile *domain.Profile, justCompleted bool) State {
	switch {
	case session == nil:
		return StateAnonymous
	case profile == nil:
		return StateNoProfile
	case profile.Complete || justCompleted:
		return StateComplete
	case profile.EffectiveRole() == domain.RoleProvider:
		return StateIncompleteProvider
	default:
		return StateIncompleteCustomer
	}
}

// Decide returns the redirect, if any, that keeps navigation consistent with
// the visitor's state.
func Decide(in Input) Decision {
	path := Normalize(in.Path)
	state := Classify(in.Session, in.Profile, in.JustCompleted)

	if state == StateAnonymous {
		if IsPublic(path) {
			return stay()
		}
		return redirect(PathAuth)
	}

	home := homeFor(state, in.LastRoute)
	if path == PathAuth {
		return redirect(home)
	}

	switch state {
	case StateNoProfile:
		if IsPublic(path) || path == PathOnboarding {
			return stay()
		}
		return redirect(PathOnboarding)

	case StateIncompleteCustomer, StateIncompleteProvider:
		if IsPublic(path) || path == home {
			return stay()
		}
		return redirect(home)

	default:
		if IsOnboarding(path) {
			return redirect(home)
		}
		return stay()
	}
}

func homeFor(state State, lastRoute string) string {
	switch state {
	case StateNoProfile:
		return PathOnboarding
	case StateIncompleteCustomer:
		return PathCreateCustomerProfile
	case StateIncompleteProvider:
		return PathCreateBusinessProfile
	}
	last := Normalize(lastRoute)
	if inApp(lastRoute) && !IsPublic(last) && !IsOnboarding(last) {
		return last
	}
	return PathDashboard
}

// inApp reports whether route is a same-origin absolute path. Protocol
// relative forms such as "//host" or "/\host" are rejected.
func inApp(route string) bool {
	if !strings.HasPrefix(route, "/") || strings.HasPrefix(route, "//") || strings.HasPrefix(route, "/\\") {
		return false
	}
	if strings.ContainsAny(route, "\\\r\n\t") {
		return false
	}
	u, err := url.Parse(route)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// Normalize strips query, fragment and trailing slashes. An empty path is "/".
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// IsPublic reports whether path is reachable without signing in.
func IsPublic(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	return strings.HasPrefix(path, "/search/")
}

// IsOnboarding reports whether path belongs to the onboarding flow.
func IsOnboarding(path string) bool {
	_, ok := onboardingPaths[path]
	return ok
}
