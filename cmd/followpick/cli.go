package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/followpick/internal/config"
	"github.com/hpungsan/followpick/internal/db"
	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/ops"
	"github.com/hpungsan/followpick/internal/watch"
	"github.com/hpungsan/followpick/internal/web"
)

// deps carries what commands need. source is nil when the config failed
// validation; sourceErr then says why.
type deps struct {
	store     *db.SnapshotStore
	source    follower.Source
	sourceErr error
	cfg       *config.Config

	// stdout receives command output (os.Stdout when nil).
	stdout io.Writer
}

func (d *deps) out() io.Writer {
	if d.stdout != nil {
		return d.stdout
	}
	return os.Stdout
}

// requireSource returns the provider or the configuration error explaining
// why there is none.
func (d *deps) requireSource() (follower.Source, error) {
	if d.source != nil {
		return d.source, nil
	}
	if d.sourceErr != nil {
		return nil, d.sourceErr
	}
	return nil, errors.NewConfig("provider API key is not configured")
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "followpick",
		Usage:   "Random winner picker for follower giveaways",
		Version: Version,
		Commands: []*cli.Command{
			pickCmd(d),
			orientationCmd(d),
			captureCmd(d),
			snapshotsCmd(d),
			showCmd(d),
			subjectsCmd(d),
			watchCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// pickCmd creates the pick command.
func pickCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "pick",
		Usage:     "Pick a random winner among a profile's current followers",
		ArgsUsage: "<username>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Followers to draw from (default from config, max from config)"},
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for a reproducible draw"},
		},
		Action: func(c *cli.Context) error {
			subject, err := subjectArg(c)
			if err != nil {
				return outputError(err)
			}
			source, err := d.requireSource()
			if err != nil {
				return outputError(err)
			}

			input := ops.PickGeneralInput{Subject: subject, Count: c.Int("count")}
			if c.IsSet("count") && input.Count <= 0 {
				return outputError(errors.NewInvalidRequest("--count must be positive"))
			}
			if c.IsSet("seed") {
				input.Rand = ops.NewSeededRand(c.Uint64("seed"))
			}

			output, err := ops.PickGeneral(c.Context, source, d.cfg, input)
			if err != nil {
				return outputError(err)
			}
			return d.outputJSON(output)
		},
	}
}

// orientationCmd creates the orientation command.
func orientationCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "orientation",
		Usage:     "Pick a random winner among followers gained within a recent window",
		ArgsUsage: "<username>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "window", Aliases: []string{"w"}, Value: "1h", Usage: "Lookback window: hours (1.5) or a preset (30m, 1h, 2h)"},
			&cli.StringFlag{Name: "policy", Aliases: []string{"p"}, Usage: "Baseline policy: nearest|within_window|always_capture (default from config)"},
			&cli.BoolFlag{Name: "full-baseline", Usage: "Record follower identities when a baseline is captured"},
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for a reproducible draw"},
		},
		Action: func(c *cli.Context) error {
			subject, err := subjectArg(c)
			if err != nil {
				return outputError(err)
			}
			window, err := ops.ParseWindow(c.String("window"))
			if err != nil {
				return outputError(err)
			}
			var policy ops.BaselinePolicy
			if c.IsSet("policy") {
				if policy, err = ops.ParsePolicy(c.String("policy")); err != nil {
					return outputError(err)
				}
			}
			source, err := d.requireSource()
			if err != nil {
				return outputError(err)
			}

			input := ops.PickOrientationInput{
				Subject:      subject,
				Window:       window,
				Policy:       policy,
				FullBaseline: c.Bool("full-baseline"),
			}
			if c.IsSet("seed") {
				input.Rand = ops.NewSeededRand(c.Uint64("seed"))
			}

			output, err := ops.PickOrientation(c.Context, d.store, source, d.cfg, input)
			if err != nil {
				return outputError(err)
			}
			if o := output.Orientation; o != nil && o.AssumedFromCountOnly {
				fmt.Fprintf(os.Stderr, "note: %s\n", o.Disclosure)
			}
			return d.outputJSON(output)
		},
	}
}

// captureCmd creates the capture command.
func captureCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "capture",
		Usage:     "Record a follower snapshot now, to serve as a later baseline",
		ArgsUsage: "<username>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "full", Usage: "Record follower identities, not just the count"},
		},
		Action: func(c *cli.Context) error {
			subject, err := subjectArg(c)
			if err != nil {
				return outputError(err)
			}
			source, err := d.requireSource()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Capture(c.Context, d.store, source, ops.CaptureInput{
				Subject:  subject,
				Full:     c.Bool("full"),
				MaxFetch: d.cfg.MaxFetch,
			})
			if err != nil {
				return outputError(err)
			}
			return d.outputJSON(output)
		},
	}
}

// snapshotsCmd creates the snapshots command.
func snapshotsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "snapshots",
		Usage:     "List stored snapshots of a profile, newest first",
		ArgsUsage: "<username>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			subject, err := subjectArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.List(c.Context, d.store, ops.ListInput{
				Subject: subject,
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return d.outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one stored snapshot",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "followers", Usage: "Include recorded follower identities"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, d.store, ops.FetchInput{
				ID:               c.Args().First(),
				IncludeFollowers: c.Bool("followers"),
			})
			if err != nil {
				return outputError(err)
			}
			return d.outputJSON(output)
		},
	}
}

// subjectsCmd creates the subjects command.
func subjectsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "subjects",
		Usage: "List profiles with stored snapshots",
		Action: func(c *cli.Context) error {
			output, err := ops.Inventory(c.Context, d.store)
			if err != nil {
				return outputError(err)
			}
			return d.outputJSON(output)
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Capture snapshots on a schedule until interrupted",
		ArgsUsage: "<username>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schedule", Aliases: []string{"s"}, Required: true, Usage: `Cron expression, e.g. "*/15 * * * *" or "@every 30m"`},
			&cli.BoolFlag{Name: "full", Usage: "Record follower identities, not just the count"},
			&cli.BoolFlag{Name: "now", Usage: "Also capture once immediately"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("at least one username is required"))
			}
			source, err := d.requireSource()
			if err != nil {
				return outputError(err)
			}

			w := watch.New(d.store, source, d.cfg.MaxFetch, d.cfg.CallBudget())
			for _, subject := range c.Args().Slice() {
				if err := w.Watch(subject, c.String("schedule"), c.Bool("full")); err != nil {
					return outputError(err)
				}
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if c.Bool("now") {
				for _, subject := range c.Args().Slice() {
					// Failures are logged; the schedule keeps running.
					_ = w.RunOnce(ctx, subject, c.Bool("full"))
				}
			}

			w.Start()
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			// The UI starts without a credential; picks then report CONFIG_ERROR.
			var source follower.Source
			if s, err := d.requireSource(); err == nil {
				source = s
			}
			srv := web.NewServer(d.store, source, d.cfg, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv, d.cfg.CallBudget()); err != nil {
				return cli.Exit(fmt.Sprintf("server error: %v", err), 1)
			}
			return nil
		},
	}
}

// subjectArg returns the first positional argument.
func subjectArg(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", errors.NewInvalidRequest("username is required")
	}
	if c.NArg() > 1 {
		return "", errors.NewInvalidRequest("expected exactly one username")
	}
	return c.Args().First(), nil
}

// outputJSON marshals result to stdout as indented JSON.
func (d *deps) outputJSON(v any) error {
	enc := json.NewEncoder(d.out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI as "[CODE] message (hint)".
func outputError(err error) error {
	if pErr := errors.As(err); pErr != nil {
		msg := fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message)
		if pErr.Hint != "" {
			msg += " (" + pErr.Hint + ")"
		}
		return cli.Exit(msg, 1)
	}
	return cli.Exit(err.Error(), 1)
}

