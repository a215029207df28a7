package player

import (
	"ctchen222/tictactoe-match/internal/game"
	"testing"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		mark game.PlayerMark
		want string
	}{
		{"Given name", "Ada", game.PlayerX, "Ada"},
		{"Trimmed", "  Grace \t", game.PlayerO, "Grace"},
		{"Empty X", "", game.PlayerX, "Player X"},
		{"Blank O", "   ", game.PlayerO, "Player O"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.in, tt.mark); got != tt.want {
				t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.in, tt.mark, got, tt.want)
			}
		})
	}
}

func TestNewPlayer(t *testing.T) {
	p := NewPlayer("p-1", "", game.PlayerO)

	if p.ID != "p-1" || p.Name != "Player O" || p.Mark != game.PlayerO || p.IsBot {
		t.Errorf("NewPlayer() = %+v", p)
	}
}
