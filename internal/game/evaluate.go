package game

// WinLine is a triple of cell indices that wins when held by one mark.
type WinLine [3]int

// WinLines are the 3 rows, 3 columns and 2 diagonals, in that order.
var WinLines = [8]WinLine{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// OutcomeKind classifies a board.
type OutcomeKind int

const (
	InProgress OutcomeKind = iota
	Won
	Draw
)

func (k OutcomeKind) String() string {
	switch k {
	case Won:
		return "won"
	case Draw:
		return "draw"
	default:
		return "in_progress"
	}
}

// Outcome is the result of evaluating a board. Winner and Line are only set
// when Kind is Won.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner PlayerMark  `json:"winner,omitempty"`
	Line   WinLine     `json:"line"`
}

// Decided reports whether the round is over.
func (o Outcome) Decided() bool {
	return o.Kind != InProgress
}

// Evaluate reports whether the board is won, drawn or still in progress.
// The first completed line in WinLines order is reported.
func Evaluate(b Board) Outcome {
	for _, line := range WinLines {
		a := b[line[0]]
		if a != None && a == b[line[1]] && a == b[line[2]] {
			return Outcome{Kind: Won, Winner: a, Line: line}
		}
	}

	if b.IsBoardFull() {
		return Outcome{Kind: Draw}
	}

	return Outcome{Kind: InProgress}
}

// CheckWinner returns the winning mark, or None.
func CheckWinner(b Board) PlayerMark {
	return Evaluate(b).Winner
}
