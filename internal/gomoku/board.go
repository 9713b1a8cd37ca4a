// Package gomoku is the turn-based five-in-a-row game.
package gomoku

import "errors"

const (
	DefaultBoardSize = 15
	WinLength        = 5
)

// Placement rejections. Their text is the status sent to players.
var (
	ErrInvalidCell = errors.New("invalid")
	ErrOccupied    = errors.New("occupied")
)

// Board is an N×N grid; 0 is empty, otherwise the owner's mark.
type Board struct {
	n     int
	cells [][]int
	moves int
}

func NewBoard(n int) *Board {
	if n <= 0 {
		n = DefaultBoardSize
	}
	cells := make([][]int, n)
	for y := range cells {
		cells[y] = make([]int, n)
	}
	return &Board{n: n, cells: cells}
}

func (b *Board) Size() int { return b.n }

func (b *Board) At(x, y int) int {
	if !b.inBounds(x, y) {
		return 0
	}
	return b.cells[y][x]
}

// Place marks (x, y) for owner. The board is unchanged on error.
func (b *Board) Place(x, y, owner int) error {
	if !b.inBounds(x, y) {
		return ErrInvalidCell
	}
	if b.cells[y][x] != 0 {
		return ErrOccupied
	}
	b.cells[y][x] = owner
	b.moves++
	return nil
}

var directions = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// WinsAt reports whether the mark at (x, y) completes a run of at least
// WinLength in any of the four line directions.
func (b *Board) WinsAt(x, y int) bool {
	owner := b.At(x, y)
	if owner == 0 {
		return false
	}
	for _, d := range directions {
		count := 1 + b.run(x, y, d[0], d[1], owner) + b.run(x, y, -d[0], -d[1], owner)
		if count >= WinLength {
			return true
		}
	}
	return false
}

func (b *Board) run(x, y, dx, dy, owner int) int {
	n := 0
	for x, y = x+dx, y+dy; b.inBounds(x, y) && b.cells[y][x] == owner; x, y = x+dx, y+dy {
		n++
	}
	return n
}

func (b *Board) Full() bool {
	return b.moves >= b.n*b.n
}

// Rows returns a copy of the grid indexed [y][x].
func (b *Board) Rows() [][]int {
	out := make([][]int, b.n)
	for y := range b.cells {
		out[y] = append([]int(nil), b.cells[y]...)
	}
	return out
}

func (b *Board) inBounds(x, y int) bool {
	return x >= 0 && x < b.n && y >= 0 && y < b.n
}
