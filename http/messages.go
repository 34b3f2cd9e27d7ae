package http

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"themind/game"
)

func playMessage(res *game.PlayResult) string {
	var b strings.Builder
	if res.Mistake {
		fmt.Fprintf(&b, "Mistake! %d was still in someone's hand. %s left.", res.LowestInHand, english.Plural(res.Lives, "life", "lives"))
		if len(res.Discarded) > 0 {
			fmt.Fprintf(&b, " %s discarded.", english.Plural(len(res.Discarded), "lower card", "lower cards"))
		}
	} else {
		fmt.Fprintf(&b, "Played %d.", res.Value)
	}
	if tail := outcomeMessage(res.Status, res.Level); tail != "" {
		b.WriteString(" ")
		b.WriteString(tail)
	}
	return b.String()
}

func shurikenMessage(res *game.ShurikenResult) string {
	msg := fmt.Sprintf("Shuriken thrown, %s discarded.", english.Plural(res.DiscardedCount, "card", "cards"))
	if tail := outcomeMessage(res.Status, res.Level); tail != "" {
		msg += " " + tail
	}
	return msg
}

func transitionMessage(res *game.TransitionResult) string {
	switch res.Action {
	case game.AdminStart:
		return fmt.Sprintf("Match started, %s dealt.", english.Plural(res.CardsDealt, "card", "cards"))
	case game.AdminNextLevel:
		msg := fmt.Sprintf("%s level started.", humanize.Ordinal(res.Level))
		if res.LivesGained > 0 {
			msg += fmt.Sprintf(" Bonus: +%s.", english.Plural(res.LivesGained, "life", "lives"))
		}
		if res.ShurikensGained > 0 {
			msg += fmt.Sprintf(" Bonus: +%s.", english.Plural(res.ShurikensGained, "shuriken", "shurikens"))
		}
		return msg
	case game.AdminPause:
		return "Match paused."
	case game.AdminResume:
		return "Match resumed."
	case game.AdminCancel:
		return "Match cancelled."
	}
	return ""
}

func outcomeMessage(status string, level int) string {
	switch status {
	case game.StatusLevelComplete:
		return fmt.Sprintf("%s level complete!", humanize.Ordinal(level))
	case game.StatusWon:
		return "All levels cleared, you won!"
	case game.StatusFinished:
		return fmt.Sprintf("Out of lives on the %s level.", humanize.Ordinal(level))
	}
	return ""
}

func joinMessage(p *game.PlayerView) string {
	return fmt.Sprintf("%s took the %s seat.", p.Username, humanize.Ordinal(p.Seat))
}

func statsMessage(s *game.StatsView) string {
	if s.GamesPlayed == 0 {
		return "No matches finished yet."
	}
	return fmt.Sprintf("%s, %d won, best score %s.",
		english.Plural(s.GamesPlayed, "match", "matches"), s.GamesWon, humanize.Comma(int64(s.BestScore)))
}
