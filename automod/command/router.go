// Operator chat commands: plain-text, space-separated, prefixed with "/".
//
// Commands read and mutate the same stores as the moderation engine, so changes take effect on the next event.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cubewhy/ZzxBot/automod/engine"
	"github.com/cubewhy/ZzxBot/automod/policystore"
)

const Prefix = "/"

// Returned by a command when its arguments can not be parsed. The reply carries the command's usage string.
var ErrMalformedArgument = errors.New("malformed command argument")

// Sends a reply back to wherever the command came from (the group, or a direct message).
type Replier func(ctx context.Context, text string) error

type Request struct {
	// empty for direct messages
	GroupID string
	UserID  string
	SelfID  string
	Text    string
}

type Invocation struct {
	Request

	Name string
	Args []string
	// byte offset of each argument in Text, for commands which take free text
	offsets []int
	reply   Replier
	router  *Router
}

// Free text starting at argument `idx`, with the original whitespace (including newlines) preserved.
func (inv *Invocation) Rest(idx int) string {
	if idx >= len(inv.Args) {
		return ""
	}
	return strings.TrimRightFunc(inv.Text[inv.offsets[idx]:], unicode.IsSpace)
}

// Sends text verbatim to wherever the command came from.
func (inv *Invocation) Reply(ctx context.Context, text string) {
	if err := inv.reply(ctx, text); err != nil {
		inv.router.Logger.Warn("failed to send command reply", "command", inv.Name, "err", err)
	}
}

func (inv *Invocation) Replyf(ctx context.Context, format string, a ...any) {
	inv.Reply(ctx, fmt.Sprintf(format, a...))
}

func (inv *Invocation) IsAdmin(ctx context.Context) (bool, error) {
	return inv.router.Engine.Policies.IsAdmin(ctx, inv.UserID)
}

type Command struct {
	Name  string
	Usage string
	// non-admins are silently ignored
	AdminOnly bool
	// only usable in a group chat
	GroupOnly bool
	Run       func(ctx context.Context, inv *Invocation) error
}

type Router struct {
	Engine *engine.Engine
	Logger *slog.Logger
	// lifetime of background jobs started by commands (eg, bulk rename)
	JobContext context.Context

	commands map[string]*Command
	jobs     sync.WaitGroup
}

func NewRouter(eng *engine.Engine) *Router {
	r := &Router{
		Engine:     eng,
		Logger:     eng.Logger.With("component", "command"),
		JobContext: context.Background(),
		commands:   make(map[string]*Command),
	}
	for _, c := range []*Command{
		botCommand(),
		helpCommand(r),
		toggleCommand(),
		blacklistCommand(),
		acceptCommand(),
		welcomeCommand(),
		filterCommand(),
		recallCommand(),
		renameCommand(),
		modstatsCommand(),
	} {
		r.Register(c)
	}
	return r
}

func (r *Router) Register(c *Command) {
	r.commands[c.Name] = c
}

// Usage strings of all registered commands, sorted by name.
func (r *Router) Usages() []string {
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, r.commands[n].Usage)
	}
	return out
}

// Blocks until every background job started by a command has finished.
func (r *Router) Wait() {
	r.jobs.Wait()
}

func (r *Router) goJob(fn func(ctx context.Context)) {
	r.jobs.Add(1)
	go func() {
		defer r.jobs.Done()
		fn(r.JobContext)
	}()
}

// Splits on whitespace, remembering where each token started.
func tokenize(text string) ([]string, []int) {
	var (
		tokens  []string
		offsets []int
	)
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, text[start:i])
				offsets = append(offsets, start)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
		offsets = append(offsets, start)
	}
	return tokens, offsets
}

// Runs the command in `req`, if there is one. Returns false if the text is not a known command.
//
// Command failures are reported through `reply`, never returned.
func (r *Router) Handle(ctx context.Context, req Request, reply Replier) bool {
	if !strings.HasPrefix(req.Text, Prefix) {
		return false
	}
	tokens, offsets := tokenize(req.Text)
	if len(tokens) == 0 {
		return false
	}
	name := strings.TrimPrefix(tokens[0], Prefix)
	cmd, ok := r.commands[name]
	if !ok {
		return false
	}
	ctx, span := tracer.Start(ctx, "Command")
	defer span.End()

	logger := r.Logger.With("command", name, "user", req.UserID, "group", req.GroupID)
	inv := &Invocation{
		Request: req,
		Name:    name,
		Args:    tokens[1:],
		offsets: offsets[1:],
		reply:   reply,
		router:  r,
	}
	if cmd.AdminOnly {
		ok, err := inv.IsAdmin(ctx)
		if err != nil {
			logger.Error("admin check failed", "err", err)
			return true
		}
		if !ok {
			logger.Info("ignoring admin command from non-admin")
			commandCount.WithLabelValues(name, "denied").Inc()
			return true
		}
	}
	if cmd.GroupOnly && req.GroupID == "" {
		inv.Reply(ctx, "this command can only be used in a group")
		return true
	}

	err := cmd.Run(ctx, inv)
	status := "ok"
	if err != nil {
		status = "error"
		r.reportError(ctx, inv, cmd, err, logger)
	}
	commandCount.WithLabelValues(name, status).Inc()
	logger.Info("command handled", "status", status)
	return true
}

func (r *Router) reportError(ctx context.Context, inv *Invocation, cmd *Command, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, ErrMalformedArgument):
		inv.Replyf(ctx, "usage: %s", cmd.Usage)
	case errors.Is(err, policystore.ErrModuleNotFound):
		inv.Reply(ctx, err.Error())
	case errors.Is(err, engine.ErrActionRejected):
		inv.Reply(ctx, "the platform rejected the action (does the bot have permission?)")
	default:
		logger.Error("command failed", "err", err)
		inv.Reply(ctx, "command failed: internal error")
	}
}

func malformed(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedArgument, fmt.Sprintf(format, a...))
}
