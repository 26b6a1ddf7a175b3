package session

import (
	"context"
	"testing"

	"github.com/lastslot/account-service/internal/core/domain"
)

type switchFixture struct {
	source     *stubSource
	procedures *stubProcedures
	resolver   *Resolver
	switcher   *Switcher
}

func newSwitchFixture(t *testing.T, active domain.Role, held ...domain.Role) switchFixture {
	t.Helper()
	src := newStubSource()
	src.seed("u1", active, held...)
	procs := &stubProcedures{source: src, user: "u1"}
	r := NewResolver(src, nopLogger())
	if res := r.Fetch(context.Background(), "u1"); !res.OK() {
		t.Fatalf("seed fetch failed: %v", res.Failure)
	}
	return switchFixture{source: src, procedures: procs, resolver: r, switcher: NewSwitcher(procs, r, nopLogger())}
}

func TestSwitchRoleNotHeldIsRejectedWithoutRemoteCall(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer)

	err := f.switcher.SwitchRole(context.Background(), "u1", domain.RoleProvider)
	if !domain.IsRejected(err) {
		t.Fatalf("expected rejected failure, got %v", err)
	}
	if f.procedures.switchCalls != 0 {
		t.Fatalf("expected no remote call, got %d", f.procedures.switchCalls)
	}
	if got := f.resolver.Cached().Profile.ActiveRole; got != domain.RoleCustomer {
		t.Fatalf("active role must not change, got %s", got)
	}
}

func TestSwitchRoleInvalidRole(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer)

	err := f.switcher.SwitchRole(context.Background(), "u1", domain.Role("admin"))
	if !domain.IsRejected(err) {
		t.Fatalf("expected rejected failure, got %v", err)
	}
	if f.procedures.switchCalls != 0 {
		t.Fatalf("expected no remote call")
	}
}

func TestSwitchRoleRefreshesCacheBeforeReturning(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer, domain.RoleProvider)
	before := f.source.callCount("u1")

	if err := f.switcher.SwitchRole(context.Background(), "u1", domain.RoleProvider); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.procedures.switchCalls != 1 {
		t.Fatalf("expected one remote call, got %d", f.procedures.switchCalls)
	}
	if f.source.callCount("u1") != before+1 {
		t.Fatalf("expected a refetch after switching")
	}
	if got := f.resolver.Cached().Profile.ActiveRole; got != domain.RoleProvider {
		t.Fatalf("expected cached active role provider, got %s", got)
	}
}

func TestSwitchRoleEmbeddedErrorIsRejected(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer, domain.RoleProvider)
	f.procedures.result = &domain.SwitchRoleResult{Success: false, Error: "role assignment disabled"}

	err := f.switcher.SwitchRole(context.Background(), "u1", domain.RoleProvider)
	if !domain.IsRejected(err) {
		t.Fatalf("expected rejected failure, got %v", err)
	}
	var msg string
	if fl, ok := err.(*domain.Failure); ok {
		msg = fl.Message
	}
	if msg != "role assignment disabled" {
		t.Fatalf("expected backend message, got %q", msg)
	}
	if got := f.resolver.Cached().Profile.ActiveRole; got != domain.RoleCustomer {
		t.Fatalf("active role must not change, got %s", got)
	}
}

func TestSwitchRoleTransportFailureIsUnavailable(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer, domain.RoleProvider)
	f.procedures.err = errBackendDown

	err := f.switcher.SwitchRole(context.Background(), "u1", domain.RoleProvider)
	if !domain.IsUnavailable(err) {
		t.Fatalf("expected unavailable failure, got %v", err)
	}
}

func TestSwitchRoleForOtherUserIsRejected(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer, domain.RoleProvider)

	err := f.switcher.SwitchRole(context.Background(), "someone-else", domain.RoleProvider)
	if !domain.IsRejected(err) {
		t.Fatalf("expected rejected failure, got %v", err)
	}
	if f.procedures.switchCalls != 0 {
		t.Fatalf("expected no remote call")
	}
}

func TestAddProviderWithoutBusinessNameFailsBeforeRemoteWrite(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer)

	for _, name := range []string{"", "   "} {
		err := f.switcher.AddRole(context.Background(), "u1", domain.RoleProvider, name)
		if !domain.IsRejected(err) {
			t.Fatalf("business name %q: expected rejected failure, got %v", name, err)
		}
	}
	if f.procedures.addCalls != 0 {
		t.Fatalf("expected no remote write, got %d", f.procedures.addCalls)
	}
}

func TestAddRoleAlreadyHeld(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer)

	err := f.switcher.AddRole(context.Background(), "u1", domain.RoleCustomer, "")
	if !domain.IsRejected(err) {
		t.Fatalf("expected rejected failure, got %v", err)
	}
	if f.procedures.addCalls != 0 {
		t.Fatalf("expected no remote write")
	}
}

func TestAddRoleRefreshesRoles(t *testing.T) {
	f := newSwitchFixture(t, domain.RoleCustomer, domain.RoleCustomer)

	if err := f.switcher.AddRole(context.Background(), "u1", domain.RoleProvider, "Cuts & Co"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.procedures.addCalls != 1 {
		t.Fatalf("expected one remote write, got %d", f.procedures.addCalls)
	}
	if !domain.HoldsRole(f.resolver.Cached().Roles, domain.RoleProvider) {
		t.Fatalf("expected provider role in cache after add")
	}
}
