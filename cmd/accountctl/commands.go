package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/session"
	"github.com/lastslot/account-service/internal/infrastructure/backend"
)

type commands struct {
	cfg     cliConfig
	client  *backend.Client
	manager *session.Manager
	out     io.Writer
}

// settle waits until the manager has processed the latest auth change and
// finished loading the profile. When userID is set, the session must belong
// to that user.
func (c *commands) settle(ctx context.Context, userID string) error {
	sub := c.manager.Observe(16)
	defer sub.Close()

	for {
		st := c.manager.State()
		matches := userID == "" || (st.Session != nil && st.Session.UserID == userID)
		select {
		case <-c.manager.Ready():
			if matches && !st.Loading {
				return nil
			}
		default:
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for session state: %w", ctx.Err())
		case <-sub.Events():
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (c *commands) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func credentialFlags(name string, args []string) (string, string, error) {
	fs := newFlagSet(name)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *email == "" || *password == "" {
		return "", "", errors.New("-email and -password are required")
	}
	return *email, *password, nil
}

func (c *commands) signUp(ctx context.Context, args []string) error {
	email, password, err := credentialFlags("signup", args)
	if err != nil {
		return err
	}
	s, err := c.manager.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if err := c.settle(ctx, s.UserID); err != nil {
		return err
	}
	return c.whoami()
}

func (c *commands) signIn(ctx context.Context, args []string) error {
	email, password, err := credentialFlags("signin", args)
	if err != nil {
		return err
	}
	s, err := c.manager.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if err := c.settle(ctx, s.UserID); err != nil {
		return err
	}
	return c.whoami()
}

func (c *commands) signOut(ctx context.Context) error {
	if c.manager.CurrentSession() == nil {
		return errors.New("not signed in")
	}
	return c.manager.SignOut(ctx)
}

func (c *commands) refresh(ctx context.Context) error {
	cur := c.manager.CurrentSession()
	if cur == nil {
		return errors.New("not signed in")
	}
	if err := c.client.Refresh(ctx); err != nil {
		return err
	}
	if err := c.settle(ctx, cur.UserID); err != nil {
		return err
	}
	return c.whoami()
}

type whoamiOutput struct {
	UserID        string                  `json:"user_id,omitempty"`
	Email         string                  `json:"email,omitempty"`
	Profile       *domain.Profile         `json:"profile"`
	Roles         []domain.RoleAssignment `json:"roles"`
	Failure       string                  `json:"failure,omitempty"`
	JustCompleted bool                    `json:"just_completed,omitempty"`
}

func (c *commands) whoami() error {
	st := c.manager.State()
	if st.Session == nil {
		return errors.New("not signed in")
	}
	out := whoamiOutput{
		UserID:        st.Session.UserID,
		Email:         st.Session.Email,
		Profile:       st.Profile,
		Roles:         st.Roles,
		JustCompleted: st.JustCompleted,
	}
	if st.Failure != nil {
		out.Failure = st.Failure.Error()
	}
	return c.print(out)
}

func (c *commands) onboard(ctx context.Context, args []string) error {
	fs := newFlagSet("onboard")
	role := fs.String("role", "", "customer or provider")
	business := fs.String("business", "", "business name, required for provider")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := domain.ParseRole(*role)
	if err != nil {
		return err
	}
	if _, err := c.client.Onboard(ctx, r, *business); err != nil {
		return err
	}
	if res := c.manager.RefreshProfile(ctx); res.Failure != nil {
		return res.Failure
	}
	return c.whoami()
}

func (c *commands) update(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	var u domain.ProfileUpdate
	optString(fs, &u.FullName, "name", "full name")
	optString(fs, &u.Phone, "phone", "phone number")
	optString(fs, &u.Location, "location", "location")
	optString(fs, &u.Bio, "bio", "short bio")
	optString(fs, &u.BusinessName, "business", "business name")
	complete := fs.Bool("complete", false, "mark the profile complete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *complete {
		u.Complete = complete
	}

	if _, err := c.manager.UpdateProfile(ctx, u); err != nil {
		return err
	}
	if *complete {
		c.manager.MarkProfileCompleted()
	}
	return c.whoami()
}

// optString binds a flag that leaves *dst nil unless it was given.
func optString(fs *flag.FlagSet, dst **string, name, help string) {
	fs.Func(name, help, func(v string) error {
		*dst = &v
		return nil
	})
}

func roleArg(args []string) (domain.Role, []string, error) {
	if len(args) == 0 {
		return "", nil, errors.New("role argument is required")
	}
	r, err := domain.ParseRole(args[0])
	return r, args[1:], err
}

func (c *commands) switchRole(ctx context.Context, args []string) error {
	r, _, err := roleArg(args)
	if err != nil {
		return err
	}
	if err := c.manager.SwitchRole(ctx, r); err != nil {
		return err
	}
	return c.whoami()
}

func (c *commands) addRole(ctx context.Context, args []string) error {
	r, rest, err := roleArg(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("add-role")
	business := fs.String("business", "", "business name, required for provider")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if err := c.manager.AddRole(ctx, r, *business); err != nil {
		return err
	}
	return c.whoami()
}

func (c *commands) route(args []string) error {
	if len(args) == 0 {
		return errors.New("path argument is required")
	}
	fs := newFlagSet("route")
	last := fs.String("last", "", "last visited in-app route")
	justCompleted := fs.Bool("just-completed", false, "treat the profile as just completed")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *justCompleted {
		c.manager.MarkProfileCompleted()
	}
	return c.print(c.manager.DecideRoute(args[0], *last))
}

func (c *commands) watch(ctx context.Context) error {
	sub := c.manager.Observe(32)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := c.print(describe(e)); err != nil {
				return err
			}
		}
	}
}

type eventOutput struct {
	Kind    string `json:"kind"`
	Change  string `json:"change,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Profile any    `json:"profile,omitempty"`
	Failure string `json:"failure,omitempty"`
}

func describe(e session.Event) eventOutput {
	if e.Kind == session.EventAuthChanged {
		out := eventOutput{Kind: "auth", Change: string(e.Change)}
		if e.Session != nil {
			out.UserID = e.Session.UserID
		}
		return out
	}
	out := eventOutput{Kind: "profile", UserID: e.Profile.UserID}
	if e.Profile.Profile != nil {
		out.Profile = e.Profile.Profile
	}
	if e.Profile.Failure != nil {
		out.Failure = e.Profile.Failure.Error()
	}
	return out
}

func loadSession(path string) (*domain.Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func saveSession(path string, s *domain.Session) error {
	if s == nil {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
