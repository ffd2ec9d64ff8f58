package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/avplay-cli/avplay/codec"
	"github.com/avplay-cli/avplay/color"
	"github.com/avplay-cli/avplay/constant"
	"github.com/avplay-cli/avplay/icon"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/source"
	"github.com/avplay-cli/avplay/style"
	"github.com/avplay-cli/avplay/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version")
	versionCmd.Flags().BoolP("json", "j", false, "Print build info as JSON")
}

type decoderInfo struct {
	Name     string   `json:"name"`
	Hardware bool     `json:"hardware"`
	MIMEs    []string `json:"mimes"`
}

type buildInfo struct {
	Version    string             `json:"version"`
	Revision   string             `json:"revision"`
	BuiltAt    string             `json:"built_at"`
	BuiltBy    string             `json:"built_by"`
	Go         string             `json:"go"`
	Platform   string             `json:"platform"`
	Containers []source.Container `json:"containers"`
	Decoders   []decoderInfo      `json:"decoders"`
}

// newBuildInfo describes this build and the decoders r would probe.
func newBuildInfo(r *codec.Registry) buildInfo {
	return buildInfo{
		Version:    constant.Version,
		Revision:   constant.Revision,
		BuiltAt:    strings.TrimSpace(constant.BuiltAt),
		BuiltBy:    constant.BuiltBy,
		Go:         runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Containers: []source.Container{source.IVF, source.Ogg, source.Matroska},
		Decoders: lo.Map(r.All(), func(c codec.Candidate, _ int) decoderInfo {
			return decoderInfo{Name: c.Name, Hardware: c.Hardware, MIMEs: c.MIMEs}
		}),
	}
}

func (b buildInfo) render() string {
	label := func(s string) string { return style.New().Width(12).Render(style.Faint(s)) }
	row := func(name, value string) string { return "  " + label(name) + " " + style.Bold(value) + "\n" }

	var sb strings.Builder
	sb.WriteString(style.Fg(color.Purple)("▇▇▇ "+constant.Avplay) + "\n\n")
	sb.WriteString(row("Version", b.Version))
	sb.WriteString(row("Revision", b.Revision))
	sb.WriteString(row("Built", b.BuiltAt+" by "+b.BuiltBy))
	sb.WriteString(row("Go", b.Go))
	sb.WriteString(row("Platform", b.Platform))
	sb.WriteString(row("Containers", strings.Join(lo.Map(b.Containers, func(c source.Container, _ int) string {
		return string(c)
	}), ", ")))

	sb.WriteString("\n  " + style.Faint(fmt.Sprintf("Decoders (%s)", util.Quantify(len(b.Decoders), "candidate", "candidates"))) + "\n")
	for _, d := range b.Decoders {
		kind := style.Fg(color.Cyan)("sw")
		if d.Hardware {
			kind = style.Fg(color.Green)("hw")
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s  %s\n",
			icon.Get(icon.Play), kind, style.Bold(d.Name), style.Faint(strings.Join(d.MIMEs, " "))))
	}
	return sb.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, build metadata and bundled decoders",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		info := newBuildInfo(codec.Default(viper.GetBool(key.DecoderPreferHardware)))

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(info))
			return
		}

		cmd.Print(info.render())
	},
}
