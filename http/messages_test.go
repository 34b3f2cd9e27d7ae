package http

import (
	"testing"

	"themind/game"
)

func TestPlayMessage(t *testing.T) {
	tests := []struct {
		name string
		res  game.PlayResult
		want string
	}{
		{
			name: "clean play",
			res:  game.PlayResult{Value: 42, Status: game.StatusInProgress, Level: 3},
			want: "Played 42.",
		},
		{
			name: "mistake with discards",
			res:  game.PlayResult{Value: 7, Mistake: true, LowestInHand: 3, Discarded: []int{3}, Lives: 2, Level: 1, Status: game.StatusLevelComplete},
			want: "Mistake! 3 was still in someone's hand. 2 lives left. 1 lower card discarded. 1st level complete!",
		},
		{
			name: "last life",
			res:  game.PlayResult{Value: 50, Mistake: true, LowestInHand: 10, Lives: 0, Level: 4, Status: game.StatusFinished},
			want: "Mistake! 10 was still in someone's hand. 0 lives left. Out of lives on the 4th level.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := playMessage(&tt.res); got != tt.want {
				t.Errorf("playMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransitionMessage(t *testing.T) {
	res := &game.TransitionResult{Action: game.AdminNextLevel, Level: 10, LivesGained: 1}
	if got, want := transitionMessage(res), "10th level started. Bonus: +1 life."; got != want {
		t.Errorf("transitionMessage = %q, want %q", got, want)
	}
}

func TestStatsMessage(t *testing.T) {
	s := &game.StatsView{GamesPlayed: 3, GamesWon: 1, BestScore: 1440}
	if got, want := statsMessage(s), "3 matches, 1 won, best score 1,440."; got != want {
		t.Errorf("statsMessage = %q, want %q", got, want)
	}
}
