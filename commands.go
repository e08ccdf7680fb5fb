package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/deckcast/internal/deck"
	"github.com/llehouerou/deckcast/internal/errmsg"
	"github.com/llehouerou/deckcast/internal/event"
	"github.com/llehouerou/deckcast/internal/logging"
	"github.com/llehouerou/deckcast/internal/playlist"
	"github.com/llehouerou/deckcast/internal/radio"
)

type playOptions struct {
	backend     string
	decks       int
	autoAdvance bool
	// autoAdvanceSet is true when the flag overrides the config.
	autoAdvanceSet bool
}

func setupPlayCommand(opts *options) *cobra.Command {
	var po playOptions
	cmd := &cobra.Command{
		Use:   "play [location...]",
		Short: "Queue locations and play them through the decks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			po.autoAdvanceSet = cmd.Flags().Changed("auto-advance")
			return runPlay(ctx, a, po, args)
		},
	}
	cmd.Flags().StringVar(&po.backend, "output", "", "Output backend: speaker, wav or discard")
	cmd.Flags().IntVar(&po.decks, "decks", 0, "Number of decks (overrides config)")
	cmd.Flags().BoolVar(&po.autoAdvance, "auto-advance", false, "Advance to the next track when one trails into silence")
	return cmd
}

func runPlay(ctx context.Context, a *app, po playOptions, locations []string) error {
	pl := playlist.NewPlaylist()
	for _, loc := range locations {
		pl.Add(trackFromLocation(loc))
	}

	aa := a.cfg.GetAutoAdvanceConfig()
	enabled := aa.Enabled
	if po.autoAdvanceSet {
		enabled = po.autoAdvance
	}
	dc := a.cfg.GetDecksConfig()
	if po.decks > 0 {
		dc.Count = po.decks
	}

	sinks, err := a.sinkOpener(po.backend)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	pool, err := deck.NewPool(deck.Options{
		Decks:         dc.Count,
		BufferSeconds: dc.BufferSeconds,
		AutoAdvance:   enabled,
		MaxAttempts:   aa.MaxAttempts,
		Settle:        aa.Settle(),
	}, deck.Deps{
		Sources:  a.sourceOpener(),
		Sinks:    sinks,
		Playlist: pl,
		Picker:   radio.New(pl, a.library, aa.MaxAttempts),
		Logger:   a.logger,
	})
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer pool.Close()

	c := &console{pool: pool, logger: logging.Module(a.logger, "console")}
	sub := pool.SubscribeSize(256)
	defer pool.Bus().Unsubscribe(sub)

	for _, d := range pool.Decks() {
		c.autoLoad(ctx, d)
	}
	err = c.run(ctx, sub)
	c.wg.Wait()
	return err
}

// console drives the pool from its events: it starts the first deck that
// cues and, with auto-advance off, hands over by hand at the end of each
// track.
type console struct {
	pool    *deck.Pool
	logger  *slog.Logger
	started bool
	wg      sync.WaitGroup
}

func (c *console) run(ctx context.Context, sub *event.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("shutting down")
			return nil
		case <-sub.Done:
			return nil

		case e := <-sub.Ready:
			c.logger.Info("deck ready", "deck", e.Deck, "duration", tenths(e.Duration))
			if !c.started {
				c.started = c.play(e.Deck)
			}

		case e := <-sub.LoadFailed:
			c.logger.Error(errmsg.FormatDeck(e.Deck, errmsg.OpDeckLoad, e.Err), "track", e.Track.Name())
			if errors.Is(e.Err, radio.ErrNoEligibleTrack) && !c.anyPlaying() {
				c.logger.Info("nothing left to play")
				return nil
			}

		case e := <-sub.Playback:
			c.logger.Debug("playback changed", "deck", e.Deck, "playing", e.Playing)

		case e := <-sub.Tick:
			if e.Remaining > 0 && e.Remaining%100 == 0 {
				c.logger.Debug("remaining", "deck", e.Deck, "time", tenths(e.Remaining))
			}

		case e := <-sub.MarkPlayed:
			c.logger.Info("now playing", "deck", e.Deck, "track", e.Track.Name())

		case e := <-sub.PlaybackError:
			c.logger.Warn(errmsg.FormatDeck(e.Deck, errmsg.OpDeckOutput, e.Err))

		case e := <-sub.AutoAdvance:
			c.logger.Info("auto-advance", "from", e.Deck)

		case e := <-sub.EndOfTrack:
			c.logger.Info("end of track", "deck", e.Deck)
			if c.pool.AutoAdvance() {
				continue
			}
			if !c.handOver(e.Deck) {
				c.logger.Info("playlist finished")
				return nil
			}
			if d, err := c.pool.Deck(e.Deck); err == nil {
				c.autoLoad(ctx, d)
			}
		}
	}
}

func (c *console) play(n int) bool {
	d, err := c.pool.Deck(n)
	if err != nil {
		return false
	}
	if s := d.State(); !s.CanPlay() {
		c.logger.Debug("deck not playable", "deck", n, "state", s)
		return false
	}
	return d.Play()
}

// handOver starts the next deck after from that is ready to play.
func (c *console) handOver(from int) bool {
	decks := c.pool.Decks()
	for i := 1; i < len(decks); i++ {
		d := decks[(from-1+i)%len(decks)]
		if d.State() == deck.StateReady && d.Play() {
			return true
		}
	}
	return false
}

func (c *console) anyPlaying() bool {
	for _, d := range c.pool.Decks() {
		if d.IsPlaying() {
			return true
		}
	}
	return false
}

func (c *console) autoLoad(ctx context.Context, d *deck.Deck) {
	c.wg.Go(func() {
		if err := d.AutoLoad(ctx); err != nil {
			c.logger.Debug(errmsg.FormatDeck(d.Number(), errmsg.OpAutoLoad, err))
		}
	})
}

func trackFromLocation(loc string) playlist.Track {
	base := filepath.Base(loc)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	t := playlist.Track{Title: title, Location: loc}
	if artist, rest, ok := strings.Cut(title, " - "); ok {
		t.Artist, t.Title = artist, rest
	}
	return t
}

func tenths(n int) time.Duration {
	return time.Duration(n) * 100 * time.Millisecond
}

func setupScanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [source...]",
		Short: "Scan library sources for new, changed and removed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				sources, err := a.library.Sources(ctx)
				if err != nil {
					return errors.New(errmsg.Format(errmsg.OpSourceLoad, err))
				}
				for _, s := range sources {
					names = append(names, s.Name)
				}
			}
			for _, name := range names {
				start := time.Now()
				stats, err := a.library.Scan(ctx, name)
				if err != nil {
					return errors.New(errmsg.FormatWith(errmsg.OpLibraryScan, name, err))
				}
				count, _ := a.library.TrackCount(ctx, name)
				fmt.Printf("%s: %d added, %d updated, %d removed, %d skipped; %s tracks (%s)\n",
					name, stats.Added, stats.Updated, stats.Removed, stats.Skipped,
					humanize.Comma(int64(count)), time.Since(start).Round(time.Millisecond))
			}
			return nil
		},
	}
}

func setupSourcesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List library sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sources, err := a.library.Sources(ctx)
			if err != nil {
				return errors.New(errmsg.Format(errmsg.OpSourceLoad, err))
			}
			if len(sources) == 0 {
				fmt.Println("No sources configured.")
				return nil
			}
			for _, s := range sources {
				count, err := a.library.TrackCount(ctx, s.Name)
				if err != nil {
					return errors.New(errmsg.FormatWith(errmsg.OpSourceLoad, s.Name, err))
				}
				auto := "manual"
				if s.AutoAdvance {
					auto = "auto-advance"
				}
				fmt.Printf("%-16s %-12s %8s tracks  %s\n", s.Name, auto, humanize.Comma(int64(count)), s.Path)
			}
			return nil
		},
	}
}
