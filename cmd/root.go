// Package cmd implements the command-line interface for avplay.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/avplay-cli/avplay/color"
	"github.com/avplay-cli/avplay/constant"
	"github.com/avplay-cli/avplay/icon"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/style"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, square)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	bindFlag(rootCmd.PersistentFlags(), "icons", key.IconsVariant)

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Remember where playback stopped")
	bindFlag(rootCmd.PersistentFlags(), "write-history", key.HistorySaveOnExit)
}

var rootCmd = &cobra.Command{
	Use:   constant.Avplay,
	Short: "A terminal player for video and audio files",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - A terminal player for video and audio files"),
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("version")) {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
