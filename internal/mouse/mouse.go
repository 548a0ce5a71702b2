package mouse

import (
	"fmt"
	"strings"
)

type Kind int

const (
	// KindOther is any event the compositor does not act on.
	KindOther Kind = iota
	KindMove
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	default:
		return "other"
	}
}

type Buttons struct {
	Left   bool `json:"left"`
	Right  bool `json:"right"`
	Middle bool `json:"middle"`
	Fourth bool `json:"fourth"`
	Fifth  bool `json:"fifth"`
}

func (b Buttons) String() string {
	var names []string
	if b.Left {
		names = append(names, "left")
	}
	if b.Right {
		names = append(names, "right")
	}
	if b.Middle {
		names = append(names, "middle")
	}
	if b.Fourth {
		names = append(names, "fourth")
	}
	if b.Fifth {
		names = append(names, "fifth")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

type Scroll struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// Event is one report from a mouse driver. DY is positive when the device
// moves up.
type Event struct {
	Kind    Kind
	DX      int
	DY      int
	Buttons Buttons
	Scroll  Scroll
}

func Move(dx, dy int, buttons Buttons) Event {
	return Event{Kind: KindMove, DX: dx, DY: dy, Buttons: buttons}
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d,%d %s)", e.Kind, e.DX, e.DY, e.Buttons)
}

// SameModifiers reports whether e and o hold the same buttons and scroll
// state. Middle is not compared.
func (e Event) SameModifiers(o Event) bool {
	return e.Scroll == o.Scroll &&
		e.Buttons.Left == o.Buttons.Left &&
		e.Buttons.Right == o.Buttons.Right &&
		e.Buttons.Fourth == o.Buttons.Fourth &&
		e.Buttons.Fifth == o.Buttons.Fifth
}

// Coalesce pops the head of q and folds every following movement event with
// the same modifiers into it. The first event that does not match stays in
// the queue. ok is false when the queue was empty or the head was not a
// movement event, which is consumed and dropped.
func Coalesce(q *Queue) (batch Event, n int, ok bool) {
	head, ok := q.Pop()
	if !ok {
		return Event{}, 0, false
	}
	if head.Kind != KindMove {
		return head, 1, false
	}

	batch, n = head, 1
	for {
		next, ok := q.Peek()
		if !ok || next.Kind != KindMove || !next.SameModifiers(head) {
			break
		}
		q.Pop()
		batch.DX += next.DX
		batch.DY += next.DY
		n++
	}

	return batch, n, true
}
