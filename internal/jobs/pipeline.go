package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"giftboard/internal/capture"
	"giftboard/internal/config"
	"giftboard/internal/logging"
	"giftboard/internal/metrics"
	"giftboard/internal/model"
	"giftboard/internal/ranking"
	"giftboard/internal/render"
	"giftboard/internal/snapshot"
	"giftboard/internal/store/history"
	"giftboard/internal/twitch"
)

// TokenSource yields an access token for the Helix calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Pipeline runs fetch, rank and render one stage after another.
type Pipeline struct {
	Config    config.Config
	Tokens    TokenSource
	NewClient func(token string) twitch.Client
	Capturer  capture.Capturer
	// History is optional; nil skips run bookkeeping.
	History *history.DB
	// Picker is optional; nil uses a randomly seeded one.
	Picker render.Picker
	Out    io.Writer
}

type FetchResult struct {
	RunID         string
	BroadcasterID string
	Subscribers   []model.Subscriber
}

type RenderResult struct {
	HTMLPath       string
	ScreenshotPath string
	Rows           int
	Ranked         []model.RankedSubscriber
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format, args...)
	}
}

// Fetch authenticates, pulls the subscriber page and saves it as CSV.
func (p *Pipeline) Fetch(ctx context.Context) (FetchResult, error) {
	var res FetchResult
	start := time.Now()
	defer metrics.ObservePipelineDuration(start)

	token, err := p.Tokens.AccessToken(ctx)
	if err != nil {
		return res, fmt.Errorf("get access token: %w", err)
	}
	client := p.NewClient(token)
	login := p.Config.Twitch.Broadcaster
	id, err := client.ResolveUserID(ctx, login)
	if err != nil {
		return res, fmt.Errorf("resolve %q: %w", login, err)
	}
	res.BroadcasterID = id
	p.printf("User ID: %s\n", id)

	subs, err := client.FetchSubscribers(ctx, id)
	if err != nil {
		return res, fmt.Errorf("fetch subscribers: %w", err)
	}
	res.Subscribers = subs
	if err := snapshot.Save(p.Config.Paths.CSV, subs); err != nil {
		return res, fmt.Errorf("save %s: %w", p.Config.Paths.CSV, err)
	}
	p.printf("Saved %d subscribers to %s\n", len(subs), p.Config.Paths.CSV)
	if p.History != nil {
		run, err := p.History.StartRun(ctx, login, id, len(subs), time.Now())
		if err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
		res.RunID = run.ID
	}
	logging.Info("fetch_done", map[string]any{"broadcaster_id": id, "subscribers": len(subs), "run_id": res.RunID})
	return res, nil
}

// Rank loads the saved CSV and ranks it.
func (p *Pipeline) Rank() ([]model.RankedSubscriber, error) {
	rows, err := snapshot.Load(p.Config.Paths.CSV)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.Config.Paths.CSV, err)
	}
	return ranking.Rank(snapshot.Subscribers(rows)), nil
}

// Render ranks the saved CSV, writes the HTML leaderboard and captures it.
// runID ties the leaderboard to a history run; empty means the latest one.
func (p *Pipeline) Render(ctx context.Context, runID string) (RenderResult, error) {
	var res RenderResult
	start := time.Now()
	defer metrics.ObservePipelineDuration(start)

	ranked, err := p.Rank()
	if err != nil {
		return res, err
	}
	res.Ranked = ranked
	tmpl, err := os.ReadFile(p.Config.Paths.Template)
	if err != nil {
		return res, fmt.Errorf("read template: %w", err)
	}
	r := render.New(p.Config.Twitch.Broadcaster, render.LoadIcons(p.Config.Paths.Icons))
	if p.Picker != nil {
		r.Rand = p.Picker
	}
	rows, n := r.Rows(ranked)
	res.Rows = n
	page := render.Page(string(tmpl), rows, p.Config.Render.Placeholder)
	htmlPath, err := render.WriteHTML(p.Config.Paths.OutputHTML, page)
	if err != nil {
		return res, fmt.Errorf("write html: %w", err)
	}
	res.HTMLPath = htmlPath
	p.printf("HTML generated: %s\n", htmlPath)

	if err := p.recordLeaderboard(ctx, runID, ranked); err != nil {
		return res, err
	}

	if p.Capturer != nil {
		if err := p.Capturer.Capture(ctx, htmlPath, p.Config.Paths.Screenshot); err != nil {
			return res, fmt.Errorf("capture: %w", err)
		}
		res.ScreenshotPath = p.Config.Paths.Screenshot
		p.printf("Screenshot saved as: %s\n", p.Config.Paths.Screenshot)
	}
	logging.Info("render_done", map[string]any{"rows": n, "html": htmlPath})
	return res, nil
}

func (p *Pipeline) recordLeaderboard(ctx context.Context, runID string, ranked []model.RankedSubscriber) error {
	if p.History == nil {
		return nil
	}
	if runID == "" {
		run, err := p.History.LatestRun(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("latest run: %w", err)
		}
		runID = run.ID
	}
	if err := p.History.PutLeaderboard(ctx, runID, ranked); err != nil {
		return fmt.Errorf("record leaderboard: %w", err)
	}
	return nil
}

// Run fetches then renders. A failed fetch leaves no HTML or image behind.
func (p *Pipeline) Run(ctx context.Context) (RenderResult, error) {
	f, err := p.Fetch(ctx)
	if err != nil {
		return RenderResult{}, err
	}
	return p.Render(ctx, f.RunID)
}
