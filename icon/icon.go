// Package icon provides a flexible multi-variant rendering engine for UI symbols and feedback indicators.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/avplay-cli/avplay/key"
	"github.com/spf13/viper"
)

// Visual Variant Constants - these define the supported aesthetic styles for icon rendering.
const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Play Icon = iota
	Pause
	Seek
	Switch
	Stop
	Video
	Audio
	Success
	Fail
	Progress
)

// iconDef encapsulates the visual representations of a single UI symbol across all supported variants.
type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

var icons = map[Icon]*iconDef{
	Play:     {emoji: "▶️", nerd: "", plain: ">", kaomoji: "(ง •̀_•́)ง", squares: "▶"},
	Pause:    {emoji: "⏸️", nerd: "", plain: "||", kaomoji: "(－_－) zzZ", squares: "⏸"},
	Seek:     {emoji: "⏩", nerd: "", plain: ">>", kaomoji: "ε=ε=┌( >_<)┘", squares: "⏩"},
	Switch:   {emoji: "🔀", nerd: "", plain: "<>", kaomoji: "(⌐■_■)", squares: "⇄"},
	Stop:     {emoji: "⏹️", nerd: "", plain: "[]", kaomoji: "(￣ー￣)", squares: "■"},
	Video:    {emoji: "🎞️", nerd: "", plain: "V", kaomoji: "[□_□]", squares: "▣"},
	Audio:    {emoji: "🔊", nerd: "", plain: "A", kaomoji: "♪(´ε` )", squares: "♫"},
	Success:  {emoji: "🎉", nerd: "", plain: "Success", kaomoji: "(ᵔᴥᵔ)", squares: "🟩"},
	Fail:     {emoji: "💀", nerd: "", plain: "Fail", kaomoji: "(×_×)", squares: "🟥"},
	Progress: {emoji: "⏳", nerd: "", plain: "...", kaomoji: "(・_・ヾ", squares: "🟦"},
}

// Get retrieves the visual representation for the receiver Def based on the global icons variant configuration.
func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Get returns the rendered string for a specified Icon identifier from the global registry.
func Get(i Icon) string {
	return icons[i].Get()
}
