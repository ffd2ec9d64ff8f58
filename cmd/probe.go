package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/avplay-cli/avplay/codec"
	"github.com/avplay-cli/avplay/color"
	"github.com/avplay-cli/avplay/icon"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/probe"
	"github.com/avplay-cli/avplay/style"
	"github.com/avplay-cli/avplay/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().BoolP("json", "j", false, "Print the report as JSON")
	probeCmd.Flags().Bool("schema", false, "Print the JSON schema of the report and exit")
	probeCmd.Flags().Bool("fresh", false, "Ignore cached reports")

	probeCmd.SetOut(os.Stdout)
}

var probeCmd = &cobra.Command{
	Use:   "probe file...",
	Short: "Describe the tracks of a file and the decoders that would play them",
	Args: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")

		if lo.Must(cmd.Flags().GetBool("schema")) {
			handleErr(encoder.Encode(probe.Schema()))
			return
		}

		var (
			asJson   = lo.Must(cmd.Flags().GetBool("json"))
			fresh    = lo.Must(cmd.Flags().GetBool("fresh"))
			decoders = codec.Default(viper.GetBool(key.DecoderPreferHardware))
			reports  = make([]*probe.Report, 0, len(args))
		)

		for _, path := range args {
			inspect := probe.File
			if fresh {
				inspect = probe.Inspect
			}

			report, err := inspect(path, decoders)
			handleErr(err)
			reports = append(reports, report)
		}

		if asJson {
			handleErr(encoder.Encode(reports))
			return
		}

		for i, report := range reports {
			cmd.Print(prettyReport(report))
			if i < len(reports)-1 {
				cmd.Println()
			}
		}
	},
}

func prettyReport(r *probe.Report) string {
	out := fmt.Sprintf(
		"%s %s\n%s %s, %s\n",
		style.New().Bold(true).Foreground(color.HiPurple).Render(util.FileStem(r.File)),
		style.Faint(r.File),
		style.Fg(color.Yellow)(string(r.Container)),
		util.Timestamp(r.DurationUs),
		util.Quantify(len(r.Tracks), "track", "tracks"),
	)

	for _, t := range r.Tracks {
		kind := icon.Get(icon.Audio)
		detail := fmt.Sprintf("%d Hz, %d ch", t.Format.SampleRate, t.Format.Channels)
		if t.Kind == media.Video {
			kind = icon.Get(icon.Video)
			detail = fmt.Sprintf("%dx%d", t.Format.Width, t.Format.Height)
		}

		decoder := style.Fg(color.Red)(icon.Get(icon.Fail) + " no decoder")
		if t.Decoder != "" {
			decoder = style.Fg(color.Green)(icon.Get(icon.Success) + " " + t.Decoder)
		}

		out += fmt.Sprintf(
			"  %s #%d %s %s  %s, %s  %s\n",
			kind,
			t.ID,
			style.Fg(color.Purple)(t.Format.MIME),
			detail,
			util.Quantify(t.Samples, "sample", "samples"),
			util.Quantify(t.Syncs, "sync point", "sync points"),
			decoder,
		)
	}
	return out
}
