package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/aussiebroadwan/gotrue-go/pkg/anyjson"
	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
	"github.com/aussiebroadwan/gotrue-go/pkg/gotrue"
	"github.com/aussiebroadwan/gotrue-go/pkg/idx"
	"github.com/aussiebroadwan/gotrue-go/pkg/slogx"
)

// ErrUsage means the command line could not be understood.
var ErrUsage = errors.New("usage error")

type command struct {
	summary string
	run     func(ctx context.Context, app *Application, args []string, out io.Writer) error
}

var commands = map[string]command{
	"signup":      {"create a user with email or phone and a password", runSignUp},
	"signin":      {"sign in with email or phone and a password", runSignIn},
	"otp":         {"send a magic link or one-time code", runOTP},
	"verify":      {"verify a one-time code", runVerify},
	"session":     {"print the current session, refreshing it if needed", runSession},
	"set-session": {"adopt an access and refresh token issued elsewhere", runSetSession},
	"refresh":     {"refresh the stored session or a given refresh token", runRefresh},
	"user":        {"print the signed in user", runUser},
	"update":      {"change the signed in user's attributes", runUpdate},
	"recover":     {"send a password recovery email", runRecover},
	"oauth-url":   {"print the URL that starts an OAuth sign-in", runOAuthURL},
	"callback":    {"complete a sign-in from a redirect URL", runCallback},
	"signout":     {"sign out and clear the stored session", runSignOut},
	"watch":       {"print auth events and keep the session fresh until interrupted", runWatch},
}

// Usage writes the command list.
func Usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: gotrue <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "configuration comes from GOTRUE_* environment variables or the YAML file named by GOTRUE_CONFIG.")
}

// Run executes one command. Results are written to out as JSON.
func (app *Application) Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	// One request id per invocation ties its outbound calls together in the logs.
	ctx = slogx.WithRequestID(slogx.WithContext(ctx, app.logger), idx.New().String())
	return cmd.run(ctx, app, args[1:], out)
}

// ============================================================================
// Commands
// ============================================================================

func runSignUp(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("signup")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password (or GOTRUE_PASSWORD)")
	data := fs.String("data", "", "user metadata as a JSON object")
	captcha := fs.String("captcha", "", "captcha token")
	redirectTo := fs.String("redirect-to", "", "confirmation link target")
	if err := parse(fs, args); err != nil {
		return err
	}

	meta, err := parseData(*data)
	if err != nil {
		return err
	}

	resp, err := app.client.SignUp(ctx, gotrue.SignUpParams{
		Email:        *email,
		Phone:        *phone,
		Password:     passwordOrEnv(*password),
		Data:         meta,
		CaptchaToken: *captcha,
		RedirectTo:   *redirectTo,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, resp)
}

func runSignIn(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("signin")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password (or GOTRUE_PASSWORD)")
	if err := parse(fs, args); err != nil {
		return err
	}

	s, err := app.client.SignInWithPassword(ctx, gotrue.PasswordCredentials{
		Email:    *email,
		Phone:    *phone,
		Password: passwordOrEnv(*password),
	})
	if err != nil {
		return err
	}

	if app.client.Session(ctx) == nil {
		app.logger.Warn("account is not confirmed yet; the session was not stored")
	}
	return writeJSON(out, s)
}

func runOTP(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("otp")
	email := fs.String("email", "", "email address (magic link)")
	phone := fs.String("phone", "", "phone number (SMS code)")
	noSignUp := fs.Bool("no-signup", false, "fail for unknown users instead of creating them")
	captcha := fs.String("captcha", "", "captcha token")
	redirectTo := fs.String("redirect-to", "", "magic link target")
	if err := parse(fs, args); err != nil {
		return err
	}

	err := app.client.SignInWithOTP(ctx, gotrue.OTPParams{
		Email:         *email,
		Phone:         *phone,
		DisableSignUp: *noSignUp,
		CaptchaToken:  *captcha,
		RedirectTo:    *redirectTo,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]string{"status": "sent"})
}

func runVerify(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("verify")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	token := fs.String("token", "", "one-time code")
	otpType := fs.String("type", "", "sms, phone_change, signup, invite, magiclink, recovery or email_change")
	if err := parse(fs, args); err != nil {
		return err
	}

	typ := authapi.OTPType(*otpType)
	if typ == "" {
		typ = authapi.OTPTypeMagicLink
		if *phone != "" {
			typ = authapi.OTPTypeSMS
		}
	}

	resp, err := app.client.VerifyOTP(ctx, gotrue.VerifyOTPParams{
		Email: *email,
		Phone: *phone,
		Token: *token,
		Type:  typ,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, resp)
}

func runSession(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("session")
	stored := fs.Bool("stored", false, "print the stored session without refreshing it")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *stored {
		s, err := app.client.Manager().StoredSession(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, s)
	}

	s, err := app.client.GetSession(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, s)
}

func runSetSession(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("set-session")
	access := fs.String("access-token", "", "access token (JWT)")
	refresh := fs.String("refresh-token", "", "refresh token")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *access == "" || *refresh == "" {
		return fmt.Errorf("%w: -access-token and -refresh-token are required", ErrUsage)
	}

	s, err := app.client.SetSession(ctx, *access, *refresh)
	if err != nil {
		return err
	}
	return writeJSON(out, s)
}

func runRefresh(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("refresh")
	token := fs.String("token", "", "refresh token (default: the stored session's)")
	if err := parse(fs, args); err != nil {
		return err
	}

	s, err := app.client.RefreshSession(ctx, *token)
	if err != nil {
		return err
	}
	return writeJSON(out, s)
}

func runUser(ctx context.Context, app *Application, args []string, out io.Writer) error {
	if err := parse(newFlagSet("user"), args); err != nil {
		return err
	}

	user, err := app.client.GetUser(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, user)
}

func runUpdate(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("update")
	email := fs.String("email", "", "new email address")
	phone := fs.String("phone", "", "new phone number")
	password := fs.String("password", "", "new password")
	data := fs.String("data", "", "user metadata as a JSON object")
	if err := parse(fs, args); err != nil {
		return err
	}

	meta, err := parseData(*data)
	if err != nil {
		return err
	}

	attrs := authapi.UserAttributes{Data: meta}
	if *email != "" {
		attrs.Email = email
	}
	if *phone != "" {
		attrs.Phone = phone
	}
	if *password != "" {
		attrs.Password = password
	}

	user, err := app.client.Update(ctx, attrs)
	if err != nil {
		return err
	}
	return writeJSON(out, user)
}

func runRecover(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("recover")
	email := fs.String("email", "", "email address")
	captcha := fs.String("captcha", "", "captcha token")
	redirectTo := fs.String("redirect-to", "", "recovery link target")
	if err := parse(fs, args); err != nil {
		return err
	}

	err := app.client.ResetPasswordForEmail(ctx, *email, gotrue.ResetPasswordOptions{
		RedirectTo:   *redirectTo,
		CaptchaToken: *captcha,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]string{"status": "sent"})
}

func runOAuthURL(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("oauth-url")
	provider := fs.String("provider", "", "identity provider, e.g. github")
	scopes := fs.String("scopes", "", "comma separated provider scopes")
	redirectTo := fs.String("redirect-to", "", "where the service sends the browser afterwards")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *provider == "" {
		return fmt.Errorf("%w: -provider is required", ErrUsage)
	}

	var scopeList []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopeList = append(scopeList, s)
		}
	}

	u, err := app.client.GetOAuthSignInURL(ctx, authapi.Provider(*provider), gotrue.OAuthOptions{
		Scopes:     scopeList,
		RedirectTo: *redirectTo,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]string{"url": u.String()})
}

func runCallback(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("callback")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: callback takes exactly one URL", ErrUsage)
	}

	u, err := url.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w: %v", gotrue.ErrBadURL, err)
	}

	s, err := app.client.SessionFromURL(ctx, u)
	if err != nil {
		return err
	}
	return writeJSON(out, s)
}

func runSignOut(ctx context.Context, app *Application, args []string, out io.Writer) error {
	if err := parse(newFlagSet("signout"), args); err != nil {
		return err
	}

	app.client.SignOut(ctx)
	return writeJSON(out, map[string]string{"status": "signed_out"})
}

func runWatch(ctx context.Context, app *Application, args []string, out io.Writer) error {
	fs := newFlagSet("watch")
	interval := fs.Duration("interval", app.cfg.KeepAliveInterval, "how often to check the session")
	if err := parse(fs, args); err != nil {
		return err
	}

	stream := app.client.AuthStateChanges(ctx)

	keepAlive := NewKeepAlive(app.client, app.logger, *interval)
	keepAlive.Start()
	defer keepAlive.Stop()

	if err := app.client.Initialize(ctx); err != nil {
		app.logger.Warn("could not restore session", "error", err)
	}

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-stream:
			if !ok {
				return nil
			}
			if err := enc.Encode(notificationView(n)); err != nil {
				return err
			}
		}
	}
}

// ============================================================================
// Helpers
// ============================================================================

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

func passwordOrEnv(password string) string {
	if password != "" {
		return password
	}
	return os.Getenv("GOTRUE_PASSWORD")
}

func parseData(raw string) (map[string]anyjson.Value, error) {
	if raw == "" {
		return nil, nil
	}

	var meta map[string]anyjson.Value
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("%w: -data must be a JSON object: %v", ErrUsage, err)
	}
	return meta, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type notificationJSON struct {
	Event  events.Event `json:"event"`
	UserID string       `json:"user_id,omitempty"`
}

// notificationView drops tokens before printing.
func notificationView(n events.Notification) notificationJSON {
	view := notificationJSON{Event: n.Event}
	if n.Session != nil {
		view.UserID = n.Session.User.ID.String()
	}
	return view
}
