// Package wizard implements the six-step application state machine. Each
// forward transition passes through the step's validation gate; backward
// transitions are unconditional.
package wizard

import (
	"time"

	"funding-apply/internal/draft"
)

// Mode selects live validation or the developer preview, which seeds a full
// application and bypasses gates. Preview is an explicit constructor choice,
// never a global toggle.
type Mode int

const (
	ModeLive Mode = iota
	ModePreview
)

// Step is an ordinal wizard phase.
type Step int

const (
	StepFunding      Step = 1 // funding amount + use of funds
	StepBusiness     Step = 2 // business identity
	StepOwnership    Step = 3 // owner(s)
	StepReview       Step = 4 // review + signing
	StepConfirmation Step = 5 // reached only through a successful submission
	StepDocuments    Step = 6 // optional supporting documents
)

// FieldFormLevel keys errors that belong to the whole form rather than a
// single input, such as the combined-ownership imbalance.
const FieldFormLevel = "_form"

// ErrorMap carries one message per offending field id.
type ErrorMap map[string]string

// Wizard is the single writer of its draft. The submission pipeline reads
// the draft and reports back through Confirm.
type Wizard struct {
	mode Mode
	step Step
	app  draft.Application
	atts draft.Attachments
}

// New creates a wizard in the given mode. Preview starts with the seed
// record; live starts empty.
func New(mode Mode) *Wizard {
	w := &Wizard{mode: mode, step: StepFunding}
	if mode == ModePreview {
		w.app = PreviewSeed()
	}
	return w
}

// Resume creates a live wizard from a restored draft.
func Resume(app draft.Application, step Step) *Wizard {
	if step < StepFunding || step > StepDocuments {
		step = StepFunding
	}
	return &Wizard{mode: ModeLive, step: step, app: app}
}

func (w *Wizard) Mode() Mode                      { return w.mode }
func (w *Wizard) Step() Step                      { return w.step }
func (w *Wizard) App() *draft.Application         { return &w.app }
func (w *Wizard) Attachments() *draft.Attachments { return &w.atts }
func (w *Wizard) SetApp(app draft.Application)    { w.app = app }

// Advance validates the current step and moves forward by exactly one on
// success. The review step never advances here: reaching confirmation
// requires a successful submission (Confirm). Preview mode bypasses gates.
func (w *Wizard) Advance(now time.Time) (ErrorMap, bool) {
	if w.step >= StepDocuments {
		return nil, false
	}
	if w.step == StepReview {
		return nil, false
	}

	if w.mode != ModePreview {
		if errs := Validate(w.step, &w.app, now); len(errs) > 0 {
			return errs, false
		}
	}
	w.step++
	return nil, true
}

// Back moves one step backward, always permitted.
func (w *Wizard) Back() {
	if w.step > StepFunding {
		w.step--
	}
}

// JumpTo serves the review screen's edit affordance (jump backward to any
// earlier step) and the confirmation screen's move to the document upload
// step. Any other forward jump is refused.
func (w *Wizard) JumpTo(target Step) bool {
	if target < StepFunding || target > StepDocuments {
		return false
	}
	if target < w.step {
		w.step = target
		return true
	}
	if w.step == StepConfirmation && target == StepDocuments {
		w.step = target
		return true
	}
	return false
}

// Confirm records a successful submission, landing on the confirmation step.
func (w *Wizard) Confirm() {
	w.step = StepConfirmation
}
