package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/icon"
	"github.com/avplay-cli/avplay/util"
	"github.com/avplay-cli/avplay/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"history file", "history", mo.Some("s"), where.History},
	{"probe reports", "probes", mo.Some("p"), where.Probes},
	{"logs directory", "logs", mo.Some("l"), where.Logs},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}

	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

// confirm asks before deleting unless the user already agreed.
func confirm(cmd *cobra.Command, what []string) (bool, error) {
	if lo.Must(cmd.Flags().GetBool("yes")) {
		return true, nil
	}

	var response bool
	err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("Clear the %s?", util.Quantify(len(what), "selected item", "selected items")),
		Help:    fmt.Sprintf("%v", what),
		Default: false,
	}, &response)
	return response, err
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached reports, history and logs",
	Run: func(cmd *cobra.Command, args []string) {
		selected := lo.Filter(clearTargets, func(t clearTarget, _ int) bool {
			return lo.Must(cmd.Flags().GetBool(t.argLong))
		})

		if len(selected) == 0 {
			handleErr(cmd.Help())
			return
		}

		ok, err := confirm(cmd, lo.Map(selected, func(t clearTarget, _ int) string { return t.name }))
		handleErr(err)
		if !ok {
			return
		}

		for _, target := range selected {
			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			location := target.location()
			exists, err := filesystem.API().Exists(location)
			if err == nil && exists {
				err = util.Delete(location)
			}
			e()
			handleErr(err)
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}
	},
}
