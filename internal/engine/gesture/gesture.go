// Package gesture classifies pointer motion on a feed card into a horizontal
// commit (invest or boost) or a vertical scroll.
package gesture

import "math"

const (
	// NoiseFloor is the displacement below which motion is not classified.
	NoiseFloor = 10.0
	// SwipeThreshold is the horizontal travel needed to commit.
	SwipeThreshold = 80.0
	// FeedbackScale maps drag distance onto the card's visual offset.
	FeedbackScale = 0.08
)

// Phase of the recognizer within one pointer cycle.
type Phase int

const (
	Idle Phase = iota
	Sensing
	Dragging
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Sensing:
		return "sensing"
	case Dragging:
		return "dragging"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Direction of a provisional commit.
type Direction int

const (
	None Direction = iota
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Action fired when a pointer cycle ends.
type Action int

const (
	ActionNone Action = iota
	ActionInvest
	ActionBoost
)

func (a Action) String() string {
	switch a {
	case ActionInvest:
		return "invest"
	case ActionBoost:
		return "boost"
	default:
		return "none"
	}
}

// Target is the kind of element a pointer went down on.
type Target int

const (
	TargetSurface Target = iota
	TargetButton
	TargetLink
	TargetMediaControl
	TargetInput
)

// Interactive reports whether the target handles its own pointer input.
func (t Target) Interactive() bool {
	return t != TargetSurface
}

// Pointer is a single pointer sample in card-local logical pixels.
type Pointer struct {
	ID     int
	X, Y   float64
	Target Target
}

// Feedback describes the drag while it is in progress.
type Feedback struct {
	Dx        float64
	Direction Direction
	Offset    float64
}

// Recognizer tracks one pointer cycle on one card. The zero value is Idle.
type Recognizer struct {
	phase     Phase
	pointerID int
	startX    float64
	startY    float64
	dx        float64
	direction Direction
}

// Phase returns the current phase.
func (r *Recognizer) Phase() Phase { return r.phase }

// Direction returns the provisional commit direction.
func (r *Recognizer) Direction() Direction { return r.direction }

// Down starts sensing. It returns false when the pointer lands on an
// interactive control or another pointer is already being tracked.
func (r *Recognizer) Down(p Pointer) bool {
	if r.phase != Idle || p.Target.Interactive() {
		return false
	}
	r.phase = Sensing
	r.pointerID = p.ID
	r.startX, r.startY = p.X, p.Y
	r.dx = 0
	r.direction = None
	return true
}

// Move feeds a pointer sample. Feedback is only meaningful while Dragging.
func (r *Recognizer) Move(p Pointer) Feedback {
	if p.ID != r.pointerID || (r.phase != Sensing && r.phase != Dragging) {
		return Feedback{}
	}
	dx := p.X - r.startX
	dy := p.Y - r.startY

	if r.phase == Sensing {
		if math.Max(math.Abs(dx), math.Abs(dy)) < NoiseFloor {
			return Feedback{}
		}
		if math.Abs(dy) > math.Abs(dx) {
			r.phase = Cancelled
			r.dx = 0
			r.direction = None
			return Feedback{}
		}
		r.phase = Dragging
	}

	r.dx = dx
	switch {
	case math.Abs(dx) < SwipeThreshold:
		r.direction = None
	case dx > 0:
		r.direction = Right
	default:
		r.direction = Left
	}
	return Feedback{Dx: dx, Direction: r.direction, Offset: dx * FeedbackScale}
}

// Up ends the cycle and returns the action to fire, if any.
func (r *Recognizer) Up(p Pointer) Action {
	if r.phase == Idle || p.ID != r.pointerID {
		return ActionNone
	}
	action := ActionNone
	if r.phase == Dragging {
		switch r.direction {
		case Right:
			action = ActionInvest
		case Left:
			action = ActionBoost
		}
	}
	r.reset()
	return action
}

// Cancel is delivered when the platform aborts the pointer. It resolves the
// same way as Up.
func (r *Recognizer) Cancel(p Pointer) Action {
	return r.Up(p)
}

func (r *Recognizer) reset() {
	*r = Recognizer{}
}
