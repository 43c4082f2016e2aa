// Package admin implements oauthctl, the operator CLI for the application
// registry and the user directory.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/internal/oauth/store"
)

// ErrUsage is returned for unknown commands and bad flags. The usage text
// has already been written.
var ErrUsage = errors.New("usage")

// Config is the subset of the provider's environment the CLI needs.
type Config struct {
	DatabaseDriver string `env:"OAUTH_DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string `env:"OAUTH_DATABASE_DSN" envDefault:"file:oauth.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`
	PepperFile     string `env:"OAUTH_PEPPER_FILE" envDefault:"pepper"`
	TOTPIssuer     string `env:"OAUTH_TOTP_ISSUER" envDefault:"SaltoPlay"`

	// Deleting an application evicts its access tokens from the
	// provider's cache when one is configured.
	RedisAddr     string `env:"OAUTH_REDIS_ADDR"`
	RedisPassword string `env:"OAUTH_REDIS_PASSWORD"`
	RedisDB       int    `env:"OAUTH_REDIS_DB" envDefault:"0"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// CLI dispatches oauthctl commands.
type CLI struct {
	Store        store.Store
	Applications *service.ApplicationService
	Users        *service.UserService
	Logger       *slog.Logger

	Out io.Writer
	Err io.Writer
}

const usage = `usage: oauthctl <group> <command> [flags]

apps register      -name NAME -redirect-uri URI [-confidential]
apps list
apps rotate-secret -id CLIENT_ID
apps set-redirect  -id CLIENT_ID -redirect-uri URI
apps delete        -id CLIENT_ID

users create       -username NAME [-display-name NAME] [-email EMAIL] [-avatar-url URL]
users show         -id USER_ID | -username NAME
users set-profile  -id USER_ID [-display-name NAME] [-email EMAIL] [-avatar-url URL]
users totp-enroll  -id USER_ID
users totp-disable -id USER_ID

housekeeping run

Every command accepts -json for machine readable output.
`

// Run executes one command line, without the program name.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		fmt.Fprint(c.Err, usage)
		return ErrUsage
	}

	cmd := args[0] + " " + args[1]
	fs := flag.NewFlagSet("oauthctl "+cmd, flag.ContinueOnError)
	fs.SetOutput(c.Err)
	asJSON := fs.Bool("json", false, "print JSON")

	switch cmd {
	case "apps register":
		name := fs.String("name", "", "display name shown on the consent page")
		redirect := fs.String("redirect-uri", "", "the single allowed redirect URI")
		confidential := fs.Bool("confidential", false, "issue a client secret")
		if err := c.parse(fs, args[2:]); err != nil {
			return err
		}
		app, secret, err := c.Applications.RegisterApplication(ctx, *name, *redirect, *confidential)
		if err != nil {
			return err
		}
		return c.print(*asJSON, newApplicationView(app, secret))

	case "apps list":
		if err := c.parse(fs, args[2:]); err != nil {
			return err
		}
		apps, err := c.Applications.ListApplications(ctx)
		if err != nil {
			return err
		}
		views := make([]applicationView, 0, len(apps))
		for _, a := range apps {
			views = append(views, newApplicationView(a, ""))
		}
		if *asJSON {
			return c.writeJSON(views)
		}
		return c.table([]string{"CLIENT ID", "NAME", "TYPE", "REDIRECT URI", "CREATED"}, func(row func(...string)) {
			for _, v := range views {
				row(v.ClientID, v.Name, v.Type, v.RedirectURI, v.CreatedAt.Format(time.RFC3339))
			}
		})

	case "apps rotate-secret":
		id := fs.String("id", "", "client id")
		if err := c.parse(fs, args[2:], "id"); err != nil {
			return err
		}
		secret, err := c.Applications.RotateSecret(ctx, *id)
		if err != nil {
			return err
		}
		return c.print(*asJSON, map[string]string{"client_id": *id, "client_secret": secret})

	case "apps set-redirect":
		id := fs.String("id", "", "client id")
		redirect := fs.String("redirect-uri", "", "the new redirect URI")
		if err := c.parse(fs, args[2:], "id", "redirect-uri"); err != nil {
			return err
		}
		if err := c.Applications.UpdateRedirectURI(ctx, *id, *redirect); err != nil {
			return err
		}
		return c.print(*asJSON, map[string]string{"client_id": *id, "redirect_uri": *redirect})

	case "apps delete":
		id := fs.String("id", "", "client id")
		if err := c.parse(fs, args[2:], "id"); err != nil {
			return err
		}
		if err := c.Applications.DeleteApplication(ctx, *id); err != nil {
			return err
		}
		return c.print(*asJSON, map[string]string{"deleted": *id})

	case "users create":
		var u domain.User
		fs.StringVar(&u.Username, "username", "", "platform username")
		fs.StringVar(&u.DisplayName, "display-name", "", "display name")
		fs.StringVar(&u.Email, "email", "", "email address")
		fs.StringVar(&u.AvatarURL, "avatar-url", "", "avatar image URL")
		if err := c.parse(fs, args[2:], "username"); err != nil {
			return err
		}
		created, err := c.Users.CreateUser(ctx, u)
		if err != nil {
			return err
		}
		return c.print(*asJSON, newUserView(created))

	case "users show":
		id := fs.String("id", "", "user id")
		username := fs.String("username", "", "platform username")
		if err := c.parse(fs, args[2:]); err != nil {
			return err
		}
		var (
			u   domain.User
			err error
		)
		switch {
		case *id != "":
			u, err = c.Users.GetUser(ctx, *id)
		case *username != "":
			u, err = c.Users.GetUserByUsername(ctx, *username)
		default:
			return c.usageError(fs, "-id or -username is required")
		}
		if err != nil {
			return err
		}
		return c.print(*asJSON, newUserView(u))

	case "users set-profile":
		id := fs.String("id", "", "user id")
		displayName := fs.String("display-name", "", "display name")
		email := fs.String("email", "", "email address")
		avatarURL := fs.String("avatar-url", "", "avatar image URL")
		if err := c.parse(fs, args[2:], "id"); err != nil {
			return err
		}
		if err := c.Users.UpdateProfile(ctx, *id, *displayName, *email, *avatarURL); err != nil {
			return err
		}
		u, err := c.Users.GetUser(ctx, *id)
		if err != nil {
			return err
		}
		return c.print(*asJSON, newUserView(u))

	case "users totp-enroll":
		id := fs.String("id", "", "user id")
		if err := c.parse(fs, args[2:], "id"); err != nil {
			return err
		}
		enrollment, err := c.Users.EnrollTOTP(ctx, *id)
		if err != nil {
			return err
		}
		return c.print(*asJSON, map[string]string{"secret": enrollment.Secret, "url": enrollment.URL})

	case "users totp-disable":
		id := fs.String("id", "", "user id")
		if err := c.parse(fs, args[2:], "id"); err != nil {
			return err
		}
		if err := c.Users.DisableTOTP(ctx, *id); err != nil {
			return err
		}
		return c.print(*asJSON, map[string]string{"user_id": *id, "totp": "disabled"})

	case "housekeeping run":
		if err := c.parse(fs, args[2:]); err != nil {
			return err
		}
		removed := service.NewHousekeepingService(c.Store, c.Logger, 0).Cleanup(ctx)
		return c.print(*asJSON, map[string]int64{"removed": removed})
	}

	fmt.Fprintf(c.Err, "unknown command %q\n\n%s", cmd, usage)
	return ErrUsage
}

// parse parses args into fs and checks that every flag in required is set.
func (c *CLI) parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() > 0 {
		return c.usageError(fs, "unexpected arguments: "+strings.Join(fs.Args(), " "))
	}
	for _, name := range required {
		if fs.Lookup(name).Value.String() == "" {
			return c.usageError(fs, "-"+name+" is required")
		}
	}
	return nil
}

func (c *CLI) usageError(fs *flag.FlagSet, msg string) error {
	fmt.Fprintf(c.Err, "%s: %s\n", fs.Name(), msg)
	fs.PrintDefaults()
	return ErrUsage
}

type applicationView struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	RedirectURI  string    `json:"redirect_uri"`
	CreatedAt    time.Time `json:"created_at"`
}

func newApplicationView(a domain.Application, secret string) applicationView {
	typ := "public"
	if a.IsConfidential() {
		typ = "confidential"
	}
	return applicationView{
		ClientID:     a.ID,
		ClientSecret: secret,
		Name:         a.Name,
		Type:         typ,
		RedirectURI:  a.RedirectURI,
		CreatedAt:    a.CreatedAt,
	}
}

type userView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	TOTP        bool      `json:"totp"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserView(u domain.User) userView {
	return userView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		TOTP:        u.HasTOTP(),
		CreatedAt:   u.CreatedAt,
	}
}

// print writes v as JSON or as aligned key/value lines.
func (c *CLI) print(asJSON bool, v any) error {
	if asJSON {
		return c.writeJSON(v)
	}

	// Text output uses the JSON field names as keys.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return c.table(nil, func(row func(...string)) {
		for _, k := range keys {
			row(k, fmt.Sprint(fields[k]))
		}
	})
}

func (c *CLI) writeJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) table(header []string, rows func(row func(...string))) error {
	tw := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
	if header != nil {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	rows(func(cols ...string) {
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	})
	return tw.Flush()
}
