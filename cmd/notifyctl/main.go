package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	flag "github.com/spf13/pflag"

	"github.com/angelmondragon/rosterhub-backend/internal/center"
	"github.com/angelmondragon/rosterhub-backend/internal/center/httpgateway"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/pkg/auth"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

const usage = `usage: notifyctl [flags] <command> [id]

commands:
  tail              print the feed and follow new notifications
  list              print one page of the feed
  read <id>         mark a notification read
  unread <id>       mark a notification unread
  read-all          mark every notification read
  delete <id>       delete a notification

flags:
`

var errUsage = errors.New("invalid usage")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "notifyctl:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	apiURL   string
	token    string
	mintUser string
	mintTeam string
	filter   string
	limit    int
	logLevel string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("notifyctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.apiURL, "api", envOr("ROSTERHUB_API_URL", "http://localhost:8080"), "API base URL")
	fs.StringVar(&opts.token, "token", os.Getenv("ROSTERHUB_TOKEN"), "bearer token")
	fs.StringVar(&opts.mintUser, "mint-user", "", "mint a dev token for this user id with ROSTERHUB_JWT_* settings")
	fs.StringVar(&opts.mintTeam, "mint-team", "", "team id for --mint-user")
	fs.StringVar(&opts.filter, "filter", "all", "feed filter: all, unread or a category")
	fs.IntVar(&opts.limit, "limit", 25, "page size")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}
	command := rest[0]

	filter, err := center.ParseFilter(opts.filter)
	if err != nil {
		return err
	}
	token, err := resolveToken(opts)
	if err != nil {
		return err
	}

	logg := logger.New(logger.Options{ServiceName: "notifyctl", Level: logger.ParseLevel(opts.logLevel), Output: stderr})
	client, err := httpgateway.NewClient(opts.apiURL, token)
	if err != nil {
		return err
	}

	var channel center.Channel
	if command == "tail" {
		channel = httpgateway.NewStream(client, logg)
	}

	p := &printer{out: stdout, seen: map[uuid.UUID]bool{}}
	changes := make(chan struct{}, 1)
	c, err := center.New(client, channel,
		center.WithPageSize(opts.limit),
		center.WithChange(func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		}),
		center.WithLogger(logg),
		center.WithNotice(func(n center.Notice) { fmt.Fprintf(stderr, "! %s: %v\n", n.Message(), n.Err) }),
	)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	c.SetFilter(filter)

	switch command {
	case "list":
		if err := c.Start(ctx); err != nil {
			return err
		}
		p.printAll(c.Items())
		fmt.Fprintf(stdout, "unread: %d\n", c.UnreadCount())
		return nil

	case "tail":
		if err := c.Start(ctx); err != nil {
			return err
		}
		p.printAll(c.Items())
		fmt.Fprintf(stdout, "unread: %d\n", c.UnreadCount())
		return tail(ctx, c, p, stdout, changes)

	case "read", "unread", "delete":
		id, err := idArg(rest)
		if err != nil {
			fs.Usage()
			return err
		}
		switch command {
		case "read":
			err = c.MarkRead(ctx, id)
		case "unread":
			err = c.MarkUnread(ctx, id)
		default:
			err = c.Delete(ctx, id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %s\n", command, id)
		return nil

	case "read-all":
		affected, err := c.MarkAllRead(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "marked %d read\n", affected)
		return nil

	default:
		fs.Usage()
		return errUsage
	}
}

// tail prints new items each time the center reports a change, until ctx is done.
func tail(ctx context.Context, c *center.Center, p *printer, stdout io.Writer, changes <-chan struct{}) error {
	lastUnread := c.UnreadCount()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if p.printNew(c.Items()) || c.UnreadCount() != lastUnread {
				lastUnread = c.UnreadCount()
				fmt.Fprintf(stdout, "unread: %d\n", lastUnread)
			}
		}
	}
}

func resolveToken(opts options) (string, error) {
	if strings.TrimSpace(opts.mintUser) == "" {
		if strings.TrimSpace(opts.token) == "" {
			return "", errors.New("--token or ROSTERHUB_TOKEN is required")
		}
		return opts.token, nil
	}
	var jwtCfg config.JWTConfig
	if err := envconfig.Process(config.EnvPrefix, &jwtCfg); err != nil {
		return "", fmt.Errorf("loading jwt settings: %w", err)
	}
	return auth.MintIdentityToken(jwtCfg, time.Now(), auth.Identity{UserID: opts.mintUser, TeamID: opts.mintTeam})
}

func idArg(args []string) (uuid.UUID, error) {
	if len(args) < 2 {
		return uuid.Nil, errUsage
	}
	id, err := uuid.Parse(strings.TrimSpace(args[1]))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid notification id %q", args[1])
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

type printer struct {
	out  io.Writer
	seen map[uuid.UUID]bool
}

func (p *printer) printAll(items []notifications.Item) {
	for _, item := range items {
		p.seen[item.ID] = true
		p.print(item)
	}
}

// printNew prints items not printed before, oldest first.
func (p *printer) printNew(items []notifications.Item) bool {
	printed := false
	for i := len(items) - 1; i >= 0; i-- {
		if p.seen[items[i].ID] {
			continue
		}
		p.seen[items[i].ID] = true
		p.print(items[i])
		printed = true
	}
	return printed
}

func (p *printer) print(item notifications.Item) {
	mark := " "
	if !item.Read {
		mark = "*"
	}
	fmt.Fprintf(p.out, "%s %s [%s] %s  %s  (%s)\n",
		mark,
		item.CreatedAt.Local().Format("Jan 02 15:04"),
		item.Category,
		item.Title,
		item.Body,
		item.ID,
	)
}
