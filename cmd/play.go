package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/avplay-cli/avplay/history"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/player"
	"github.com/avplay-cli/avplay/sink"
	"github.com/avplay-cli/avplay/tui"
	"github.com/avplay-cli/avplay/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const progressInterval = 200 * time.Millisecond

type playRequest struct {
	files    []string
	seek     mo.Option[time.Duration]
	switchAt mo.Option[time.Duration]
	mode     media.SeekMode
	resume   bool
}

func init() {
	rootCmd.AddCommand(playCmd)

	fs := playCmd.Flags()
	fs.DurationP("seek", "s", 0, "Start playback from this position")
	fs.DurationP("switch-at", "w", 0, "Switch to the next file once playback reaches this position")
	fs.BoolP("interactive", "i", false, "Control playback from the keyboard")
	fs.BoolP("continue", "c", false, "Resume from the position saved in history")
	fs.StringP("pick", "p", "", "Play the file whose name best matches this query first")
	seekModeFlags(fs)

	playCmd.MarkFlagsMutuallyExclusive("seek", "continue")
}

var playCmd = &cobra.Command{
	Use:   "play file...",
	Short: "Play a file, optionally switching to the next one midway",
	Example: "  avplay play intro.webm\n" +
		"  avplay play --seek 11s --accurate --switch-at 12s intro.webm outro.webm\n" +
		"  avplay play -i --pick outro *.webm",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fs := cmd.Flags()

		files := args
		if query := lo.Must(fs.GetString("pick")); query != "" {
			var err error
			files, err = pick(query, files)
			handleErr(err)
		}

		mode, err := seekMode(fs)
		handleErr(err)

		req := playRequest{
			files:    files,
			seek:     optionalDuration(fs, "seek"),
			switchAt: optionalDuration(fs, "switch-at"),
			mode:     mode,
			resume:   lo.Must(fs.GetBool("continue")),
		}

		engine, err := player.New(player.DefaultOptions(files[0], newSurface(files[0])))
		handleErr(err)

		if err = start(engine, req); err == nil {
			if lo.Must(fs.GetBool("interactive")) {
				err = tui.Run(engine, tui.Options{
					Files:     files,
					Accurate:  mode == media.Accurate,
					NewTarget: newSurface,
					Subscribe: engine.Subscribe,
				})
			} else {
				err = watch(cmd.Context(), engine, req)
			}
		}

		saveHistory(engine.Status())
		handleErr(errors.Join(err, engine.Close()))
	},
}

func newSurface(path string) media.RenderTarget {
	return sink.NewSurface(util.FileStem(path))
}

// start begins playback where the request asks for it.
func start(p player.Player, req playRequest) error {
	if req.resume {
		saved, err := history.Position(req.files[0])
		if err != nil {
			return err
		}
		if pos, ok := saved.Get(); ok {
			log.Infof("resuming %s at %s", req.files[0], util.Timestamp(pos))
			p.SeekAndPlay(pos, media.Accurate)
			return nil
		}
	}

	if pos, ok := req.seek.Get(); ok {
		p.SeekAndPlay(media.ToMicros(pos), req.mode)
		return nil
	}

	p.Play()
	return nil
}

// switchDue reports whether playback has reached the switch point of req.
func switchDue(req playRequest, st player.Status) bool {
	at, ok := req.switchAt.Get()
	return ok && len(req.files) > 1 && st.PositionUs >= media.ToMicros(at)
}

// watch prints progress until the engine completes, a track fails or the
// process is interrupted.
func watch(ctx context.Context, engine *player.Engine, req playRequest) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	failed := make(chan error, 1)
	report := func(err error) {
		select {
		case failed <- err:
		default:
		}
	}
	engine.Subscribe(func(e player.Event) {
		if e.Kind == player.EventFailed {
			report(fmt.Errorf("%s: %w", e.Track, e.Err))
		}
	})

	var (
		erase    func()
		switched bool
	)
	engine.StartTicker(progressInterval, func(st player.Status) {
		if erase != nil {
			erase()
		}

		if !switched && switchDue(req, st) {
			switched = true
			next := req.files[1]
			if err := engine.SwitchSource(next, newSurface(next)); err != nil {
				report(err)
			}
		}

		erase = util.PrintErasable(tui.StatusLine(st))
	})
	defer fmt.Println()
	defer engine.StopTicker()

	select {
	case <-engine.Wait():
		return nil
	case err := <-failed:
		return err
	case <-ctx.Done():
		return nil
	}
}

func saveHistory(st player.Status) {
	if !viper.GetBool(key.HistorySaveOnExit) || st.File == "" {
		return
	}

	pos := st.PositionUs
	if st.State == player.Completed {
		pos = st.DurationUs
	}

	if err := history.Save(st.File, pos, st.DurationUs); err != nil {
		log.Warn(err)
	}
}
