// Package cli is the terminal front end of the board client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/client/api"
	"github.com/noah-isme/lostfound-api/internal/client/devicestore"
	"github.com/noah-isme/lostfound-api/internal/client/engine"
	"github.com/noah-isme/lostfound-api/internal/client/render"
	"github.com/noah-isme/lostfound-api/internal/config"
	"github.com/noah-isme/lostfound-api/internal/database"
	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/offline"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage")

const usage = `usage: boardctl <command> [arguments]

commands:
  feed                      show the latest items
  like <id>                 like an item
  unlike <id>               remove your like
  post [flags]              post an item (-name -number -description -photo)
  delete <id>               delete one of your own items
  mine                      list items you posted from this device
  comments <id>             show the comments of an item
  comment <id> [flags]      comment on an item (-name -text)
  chat [-name NAME]         follow the chat room interactively
  say [-name NAME] <text>   post one chat message
`

// App runs board commands against the gateway.
type App struct {
	cfg    config.ClientConfig
	client *api.Client
	store  devicestore.Store
	feed   *engine.FeedEngine
	chat   *engine.ChatEngine
	term   *terminal
	in     io.Reader
	logger zerolog.Logger
	closer func() error
}

// NewApp wires the client from cfg: device state in SQLite, the offline
// layer in Redis when configured and in memory otherwise.
func NewApp(ctx context.Context, cfg config.ClientConfig, logger zerolog.Logger) (*App, error) {
	store, err := devicestore.OpenSQLite(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open device state: %w", err)
	}
	closers := []func() error{store.Close}
	closeAll := func() error {
		var errs []error
		for _, closeFn := range closers {
			errs = append(errs, closeFn())
		}
		return errors.Join(errs...)
	}

	var storage offline.Storage = offline.NewMemoryStorage()
	if cfg.CacheRedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.CacheRedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("offline cache redis unavailable, using memory")
		} else {
			storage = offline.NewRedisStorage(redisClient, "boardctl")
			closers = append(closers, redisClient.Close)
		}
	}

	origin, err := url.Parse(cfg.BaseURL)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	controller := offline.NewController(offline.Options{
		Origin:  origin,
		Storage: storage,
		Logger:  logger,
	})
	if err := controller.Register(ctx, cfg.CacheVersion); err != nil {
		logger.Warn().Err(err).Str("version", cfg.CacheVersion).Msg("offline layer activation failed")
	}

	app := newApp(cfg, api.New(cfg.BaseURL, controller, logger), store, os.Stdin, os.Stdout, logger)
	app.closer = closeAll
	return app, nil
}

func newApp(cfg config.ClientConfig, client *api.Client, store devicestore.Store, in io.Reader, out io.Writer, logger zerolog.Logger) *App {
	term := &terminal{out: out, loc: time.Local}

	var source engine.UpdateSource = engine.PollingSource{Interval: cfg.PollInterval}
	if cfg.Transport == "ws" {
		source = engine.StreamSource{URL: client.StreamURL(), Retry: cfg.PollInterval, Logger: logger}
	}

	return &App{
		cfg:    cfg,
		client: client,
		store:  store,
		feed:   engine.NewFeedEngine(client, feedView{term}, store, logger),
		chat:   engine.NewChatEngine(client, chatView{term}, store, source, logger),
		term:   term,
		in:     in,
		logger: logger,
	}
}

// Close releases device state and cache connections.
func (a *App) Close() error {
	a.chat.Stop()
	a.feed.Stop()
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.term.printf("%s", usage)
		return ErrUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "feed":
		return a.feed.Reload(ctx)
	case "like", "unlike":
		id, err := singleArg(command, rest)
		if err != nil {
			return err
		}
		if err := a.feed.Reload(ctx); err != nil {
			return err
		}
		if command == "like" {
			return a.feed.Like(ctx, id)
		}
		return a.feed.Unlike(ctx, id)
	case "post":
		return a.post(ctx, rest)
	case "delete":
		id, err := singleArg(command, rest)
		if err != nil {
			return err
		}
		if err := a.feed.Reload(ctx); err != nil {
			return err
		}
		if err := a.feed.DeleteOwn(ctx, id); err != nil {
			return err
		}
		a.term.printf("Deleted %s\n", id)
		return nil
	case "mine":
		return a.mine(ctx)
	case "comments":
		id, err := singleArg(command, rest)
		if err != nil {
			return err
		}
		comments, err := a.feed.Comments(ctx, id)
		if err != nil {
			return err
		}
		a.printComments(comments)
		return nil
	case "comment":
		return a.comment(ctx, rest)
	case "chat":
		return a.chatLoop(ctx, rest)
	case "say":
		return a.say(ctx, rest)
	case "help", "-h", "--help":
		a.term.printf("%s", usage)
		return nil
	default:
		a.term.printf("unknown command %q\n\n%s", command, usage)
		return ErrUsage
	}
}

func (a *App) post(ctx context.Context, args []string) error {
	name, number := a.feed.Autofill(ctx)

	fs := a.flagSet("post")
	fs.StringVar(&name, "name", name, "your name")
	fs.StringVar(&number, "number", number, "contact number")
	description := fs.String("description", "", "what was lost or found")
	photo := fs.String("photo", "", "path to a photo")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *photo == "" {
		a.term.println("! Please select a photo.")
		return fmt.Errorf("%w: -photo is required", ErrUsage)
	}

	raw, err := os.ReadFile(*photo)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}
	id, err := a.feed.Submit(ctx, engine.Submission{Name: name, Number: number, Description: *description, Photo: raw})
	if err != nil {
		return err
	}
	a.term.printf("Posted %s\n", id)
	return nil
}

func (a *App) mine(ctx context.Context) error {
	name, number := a.feed.Autofill(ctx)
	if name == "" {
		a.term.println("Nothing posted from this device yet.")
		return nil
	}
	if err := a.feed.Reload(ctx); err != nil {
		return err
	}
	items := a.feed.RecentUploads(ctx)
	a.term.printf("Uploads by %s (%s): %d\n", render.Plain(name), render.Plain(number), len(items))
	for _, item := range items {
		a.term.println(render.Item(item, a.feed.Liked(ctx, item.ID), a.feed.Likes(item.ID), a.term.loc))
	}
	return nil
}

func (a *App) comment(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("%w: comment <id> -name NAME -text TEXT", ErrUsage)
	}
	id := args[0]

	name, _ := a.feed.Autofill(ctx)
	fs := a.flagSet("comment")
	fs.StringVar(&name, "name", name, "your name")
	text := fs.String("text", "", "comment text")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *text == "" {
		*text = strings.Join(fs.Args(), " ")
	}

	comments, err := a.feed.AddComment(ctx, id, name, *text)
	if err != nil {
		return err
	}
	a.printComments(comments)
	return nil
}

func (a *App) printComments(comments []dto.CommentResponse) {
	if len(comments) == 0 {
		a.term.println("No comments yet.")
		return
	}
	for _, comment := range comments {
		a.term.println(render.Comment(comment, a.term.loc))
	}
}

func (a *App) say(ctx context.Context, args []string) error {
	fs := a.flagSet("say")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: say <text>", ErrUsage)
	}

	if err := a.joinChat(ctx, *name); err != nil {
		return err
	}
	defer a.chat.Stop()
	return a.chat.Send(ctx, text)
}

func (a *App) chatLoop(ctx context.Context, args []string) error {
	fs := a.flagSet("chat")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	scanner := bufio.NewScanner(a.in)
	if err := a.joinChat(ctx, *name); errors.Is(err, engine.ErrNotJoined) {
		for a.chat.Name() == "" {
			a.term.printf("name> ")
			if !scanner.Scan() {
				return nil
			}
			_ = a.chat.Join(ctx, scanner.Text())
		}
	} else if err != nil && !engine.IsOffline(err) {
		return err
	}
	defer a.chat.Stop()

	a.term.println("Type a message, or /reply [id], /cancel, /image <path>, /clear, /leave, /quit")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "/quit", "/exit":
			return nil
		case "/leave":
			return a.chat.Leave(ctx)
		case "/clear":
			a.chat.ClearLocal()
		case "/cancel":
			a.chat.CancelReply()
		case "/reply":
			id := strings.TrimSpace(arg)
			if id == "" {
				messages := a.chat.Messages()
				if len(messages) == 0 {
					a.term.println("! Nothing to reply to.")
					continue
				}
				id = messages[len(messages)-1].ID
			}
			if err := a.chat.StartReply(id); err != nil {
				a.term.println("! " + err.Error())
			}
		case "/image":
			raw, err := os.ReadFile(strings.TrimSpace(arg))
			if err != nil {
				a.term.println("! " + err.Error())
				continue
			}
			_ = a.chat.SendImage(ctx, raw)
		default:
			_ = a.chat.Send(ctx, line)
		}
	}
	return scanner.Err()
}

// joinChat joins under name, or under the remembered name when name is
// empty. It returns engine.ErrNotJoined when neither is available.
func (a *App) joinChat(ctx context.Context, name string) error {
	if name != "" {
		return a.chat.Join(ctx, name)
	}
	if err := a.chat.Start(ctx); err != nil {
		return err
	}
	if a.chat.Name() == "" {
		return engine.ErrNotJoined
	}
	return nil
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.term.out)
	return fs
}

func singleArg(command string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%w: %s <id>", ErrUsage, command)
	}
	return args[0], nil
}
