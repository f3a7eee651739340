package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redsteadz/agentic-interviewer/internal/auth"
	"github.com/redsteadz/agentic-interviewer/internal/backend"
	"github.com/redsteadz/agentic-interviewer/internal/calls"
	"github.com/redsteadz/agentic-interviewer/internal/config"
	"github.com/redsteadz/agentic-interviewer/internal/reporting"
	"github.com/redsteadz/agentic-interviewer/internal/schedule"
	"github.com/redsteadz/agentic-interviewer/pkg/logger"
)

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

func run(args []string, stdout, stderr io.Writer) int {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	app := newApp(cfg, stderr)

	switch args[1] {
	case "login":
		return app.cmdLogin(rootCtx, args[2:], stdout, stderr)
	case "call":
		return app.cmdCall(rootCtx, args[2:], stdout, stderr)
	case "watch":
		return app.cmdWatch(rootCtx, args[2:], stdout, stderr)
	case "calls":
		return app.cmdCalls(rootCtx, args[2:], stdout, stderr)
	case "transcripts":
		return app.cmdTranscripts(rootCtx, args[2:], stdout, stderr)
	case "schedule":
		return app.cmdSchedule(rootCtx, args[2:], stdout, stderr)
	case "scheduled":
		return app.cmdScheduled(rootCtx, args[2:], stdout, stderr)
	case "cancel":
		return app.cmdCancel(rootCtx, args[2:], stdout, stderr)
	case "stats":
		return app.cmdStats(rootCtx, args[2:], stdout, stderr)
	case "serve":
		return app.cmdServe(rootCtx, args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: console <command> [flags]

commands:
  login        authenticate against the backend and cache the token pair
  call         start an interview call and watch it to completion
  watch        follow an existing call until it reaches a terminal status
  calls        list interview calls
  transcripts  search call transcripts
  schedule     schedule a future call
  scheduled    list scheduled calls
  cancel       cancel a scheduled call
  stats        summarize call outcomes
  serve        run the HTTP console`)
}

// app wires the long-lived pieces once per invocation. Every command shares
// the same authenticated HTTP client.
type app struct {
	cfg     config.Config
	guard   *auth.Guard
	client  *backend.Client
	poller  *calls.Poller
	sched   *schedule.Reconciler
	reports *reporting.Service
}

func newApp(cfg config.Config, stderr io.Writer) *app {
	store := auth.NewStore(cfg.Auth.TokenFile)
	guard := auth.NewGuard(store, cfg.Auth.BaseURL, nil)
	guard.Margin = cfg.Auth.RefreshMargin
	guard.OnExpired = func() {
		fmt.Fprintln(stderr, "session expired, run `console login` again")
	}

	hc := &http.Client{Transport: guard, Timeout: cfg.Backend.HTTPTimeout}
	client := backend.NewClient(cfg.Backend.BaseURL, hc)

	return &app{
		cfg:     cfg,
		guard:   guard,
		client:  client,
		poller:  calls.NewPoller(client, cfg.Poll.Interval),
		sched:   schedule.NewReconciler(client),
		reports: reporting.NewService(client),
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	user := fs.String("user", "", "backend username")
	pass := fs.String("pass", "", "backend password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *user == "" {
		fmt.Fprintln(stderr, "login requires -user")
		fs.Usage()
		return 2
	}
	if *pass == "" {
		fmt.Fprint(stdout, "password: ")
		if _, err := fmt.Fscanln(os.Stdin, pass); err != nil {
			fmt.Fprintln(stderr, "read password:", err)
			return 1
		}
	}

	if err := a.guard.Login(ctx, *user, *pass); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, "logged in, tokens cached at", a.cfg.Auth.TokenFile)
	return 0
}

func (a *app) cmdCall(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(stderr)
	to := fs.String("to", "", "customer phone number (E.164)")
	numberRef := fs.String("number", "", "registered phone number id")
	assistant := fs.String("assistant", "", "assistant id")
	follow := fs.Bool("follow", true, "poll the call until it ends")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *to == "" || *numberRef == "" || *assistant == "" {
		fmt.Fprintln(stderr, "call requires -to, -number and -assistant")
		fs.Usage()
		return 2
	}

	call, err := a.client.MakeCall(ctx, backend.MakeCallRequest{
		CustomerNumber: *to,
		PhoneNumberRef: *numberRef,
		AssistantRef:   *assistant,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "call %s started, status %s\n", call.ProviderCallID, call.Status)

	if !*follow {
		return 0
	}
	return a.follow(ctx, call, stdout, stderr)
}

func (a *app) cmdWatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "watch requires <call_id>")
		return 2
	}

	call, err := a.client.GetCall(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return a.follow(ctx, call, stdout, stderr)
}

// follow tracks one call and prints each status transition until the call
// reaches a terminal status or the context is cancelled.
func (a *app) follow(ctx context.Context, call calls.Call, stdout, stderr io.Writer) int {
	if call.Status.Terminal() {
		printFinished(stdout, call)
		return 0
	}

	a.poller.Track(ctx, call)
	defer a.poller.Stop()

	last := call.Status
	fmt.Fprintf(stdout, "watching %s (%s), refresh every %s\n",
		call.ProviderCallID, call.Status, a.cfg.Poll.Interval)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(stderr, "interrupted")
			return 1
		case fresh := <-a.poller.Updates():
			if fresh.Status != last {
				fmt.Fprintf(stdout, "status: %s -> %s\n", last, fresh.Status)
				last = fresh.Status
			}
			if fresh.Status.Terminal() {
				printFinished(stdout, fresh)
				return 0
			}
		}
	}
}

func printFinished(w io.Writer, c calls.Call) {
	outcome := c.Outcome
	if outcome == nil {
		classified := calls.Classify(c)
		outcome = &classified
	}
	fmt.Fprintf(w, "call %s finished: %s (%s), duration %s, cost %.2f\n",
		c.ProviderCallID, c.Status, outcome.Status, c.DurationFormatted(), c.Cost)
}

func (a *app) cmdCalls(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	campaign := fs.String("campaign", "", "filter by campaign id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	list, err := a.client.ListCalls(ctx, *campaign)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, c := range list {
		outcome := "-"
		if c.Outcome != nil {
			outcome = c.Outcome.Status
		}
		fmt.Fprintf(stdout, "%-38s %-14s %-14s %-8s %s\n",
			c.ProviderCallID, c.CustomerNumber, c.Status, c.DurationFormatted(), outcome)
	}
	return 0
}

func (a *app) cmdTranscripts(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("transcripts", flag.ContinueOnError)
	fs.SetOutput(stderr)
	q := fs.String("q", "", "text to search for")
	campaign := fs.String("campaign", "", "filter by campaign id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	list, err := a.client.ListCalls(ctx, *campaign)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	found := 0
	for _, c := range list {
		if !c.Transcript.Matches(*q) {
			continue
		}
		found++
		fmt.Fprintf(stdout, "--- %s (%s)\n%s\n\n", c.ProviderCallID, c.CustomerNumber, c.Transcript.Normalize())
	}
	if found == 0 {
		fmt.Fprintln(stdout, "no matching transcripts")
	}
	return 0
}

func (a *app) cmdSchedule(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(stderr)
	to := fs.String("to", "", "customer phone number (E.164)")
	numberRef := fs.String("number", "", "registered phone number id")
	assistant := fs.String("assistant", "", "assistant id")
	at := fs.String("at", "", "local time, e.g. 2026-09-15T10:30")
	tz := fs.String("tz", "", "IANA timezone, e.g. America/Chicago")
	name := fs.String("name", "", "call name")
	notes := fs.String("notes", "", "notes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	created, err := a.sched.Create(ctx, schedule.Form{
		CustomerNumber: *to,
		PhoneNumberRef: *numberRef,
		AssistantRef:   *assistant,
		LocalTime:      *at,
		Timezone:       *tz,
		CallName:       *name,
		Notes:          *notes,
	})
	if err != nil {
		var verr *schedule.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(stderr, "%s: %s\n", field, msg)
			}
			return 2
		}
		fmt.Fprintln(stderr, err)
		return 1
	}

	local, err := schedule.InZone(created.ScheduledAt, created.Timezone)
	if err != nil {
		local = created.ScheduledAt
	}
	fmt.Fprintf(stdout, "scheduled %s for %s (%s UTC)\n",
		created.ID, local.Format("2006-01-02 15:04 MST"), created.ScheduledAt.Format("2006-01-02 15:04"))
	return 0
}

func (a *app) cmdScheduled(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scheduled", flag.ContinueOnError)
	fs.SetOutput(stderr)
	campaign := fs.String("campaign", "", "filter by campaign id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	list, err := a.sched.List(ctx, *campaign)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, s := range list {
		when := s.ScheduledAt.Format("2006-01-02 15:04")
		if local, err := schedule.InZone(s.ScheduledAt, s.Timezone); err == nil {
			when = local.Format("2006-01-02 15:04 MST")
		}
		fmt.Fprintf(stdout, "%-10s %-14s %-22s %s\n", s.ID, s.CustomerNumber, when, s.Status)
	}
	return 0
}

func (a *app) cmdCancel(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "cancel requires <scheduled_call_id>")
		return 2
	}

	// Refresh the listing first so cancellability reflects the backend.
	if _, err := a.sched.List(ctx, ""); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := a.sched.Cancel(ctx, fs.Arg(0)); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, "cancelled", fs.Arg(0))
	return 0
}

func (a *app) cmdStats(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	campaign := fs.String("campaign", "", "filter by campaign id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sum, err := a.reports.CallsSummary(ctx, reporting.CallsSummaryRequest{CampaignID: *campaign})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "total %d  answered %d  brief %d  voicemail %d  no-answer %d  busy %d  declined %d  failed %d  live %d\n",
		sum.TotalCalls, sum.AnsweredCalls, sum.BriefCalls, sum.VoicemailCalls,
		sum.NoAnswerCalls, sum.BusyCalls, sum.DeclinedCalls, sum.FailedCalls, sum.InProgressCalls)
	fmt.Fprintf(stdout, "talk time %ds (avg %ds)  spend %.2f  answer rate %.0f%%\n",
		sum.TotalDurationSeconds, sum.AverageDurationSeconds, sum.TotalCost, sum.AnswerRate*100)
	return 0
}
