package board

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const barWidth = 30

// displayColors maps roster display color tokens onto terminal colors
var displayColors = map[string]*color.Color{
	"blue":    color.New(color.FgBlue),
	"indigo":  color.New(color.FgHiBlue),
	"red":     color.New(color.FgRed),
	"rose":    color.New(color.FgHiRed),
	"green":   color.New(color.FgGreen),
	"emerald": color.New(color.FgHiGreen),
	"lime":    color.New(color.FgHiGreen),
	"purple":  color.New(color.FgMagenta),
	"pink":    color.New(color.FgHiMagenta),
	"yellow":  color.New(color.FgYellow),
	"amber":   color.New(color.FgHiYellow),
	"orange":  color.New(color.FgHiYellow),
	"teal":    color.New(color.FgCyan),
	"cyan":    color.New(color.FgHiCyan),
}

func colorFor(token string) *color.Color {
	if c, ok := displayColors[token]; ok {
		return c
	}
	return color.New(color.Reset)
}

// Render formats v as a terminal results board
func Render(v View) string {
	var output strings.Builder

	bold := color.New(color.Bold)
	grey := color.New(color.FgHiBlack)

	output.WriteString(bold.Sprint("LIVE BALLOT") + "\n")
	output.WriteString(renderCountdown(v) + "\n")
	if v.Admin {
		output.WriteString(color.New(color.FgHiYellow).Sprint("admin: extend <days> | reset") + "\n")
	}
	if !v.Ready {
		output.WriteString(grey.Sprint("loading...") + "\n")
	}
	output.WriteString("\n")

	for _, r := range v.Results {
		c := colorFor(r.DisplayColor)
		filled := int(r.Percentage / 100 * barWidth)
		bar := c.Sprint(strings.Repeat("█", filled)) + grey.Sprint(strings.Repeat("░", barWidth-filled))

		line := fmt.Sprintf("%3d  %-26s %s %5.1f%%  (%d)", r.ID, truncate(r.Name, 26), bar, r.Percentage, r.Votes)
		if r.Party != "" {
			line += grey.Sprint("  " + r.Party)
		}
		output.WriteString(line + "\n")
	}

	output.WriteString("\n" + bold.Sprint("Leaderboard") + "\n")
	for i, r := range v.Leaderboard {
		if i == 3 {
			break
		}
		badge := "  "
		if v.Stats.Leader != nil && r.ID == v.Stats.Leader.ID {
			badge = color.New(color.FgYellow).Sprint("★ ")
		}
		output.WriteString(fmt.Sprintf("%s#%d %s - %d votes\n", badge, r.Rank, r.Name, r.Votes))
	}

	output.WriteString("\n" + bold.Sprint("Statistics") + "\n")
	output.WriteString(fmt.Sprintf("total votes: %d\n", v.Stats.TotalVotes))
	output.WriteString(fmt.Sprintf("candidates with votes: %d/%d\n", v.Stats.CandidatesWithVotes, len(v.Results)))
	output.WriteString(fmt.Sprintf("highest score: %d\n", v.Stats.MaxVotes))
	output.WriteString(fmt.Sprintf("your votes: %d\n", v.Governor.LocalVoteCount))

	switch {
	case !v.Countdown.Known:
		output.WriteString(grey.Sprint("loading closing time") + "\n")
	case v.Countdown.HasClosed:
		output.WriteString(color.New(color.FgRed).Sprint("voting is closed") + "\n")
	case !v.CanVote:
		output.WriteString(grey.Sprintf("next vote in %s", v.CooldownText) + "\n")
	default:
		output.WriteString(color.New(color.FgGreen).Sprint("you can vote: vote <id>") + "\n")
	}

	return output.String()
}

func renderCountdown(v View) string {
	switch {
	case !v.Countdown.Known:
		return "closing time unknown"
	case v.Countdown.HasClosed:
		return color.New(color.FgRed).Sprint("voting closed")
	}
	cd := v.Countdown.Countdown
	return fmt.Sprintf("closes in %dd %02dh %02dm %02ds", cd.Days, cd.Hours, cd.Minutes, cd.Seconds)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
