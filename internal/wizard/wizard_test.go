package wizard

import (
	"testing"
	"time"

	"funding-apply/internal/draft"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func validApplication() draft.Application {
	return PreviewSeed()
}

func TestAdvanceBlockedByGate(t *testing.T) {
	w := New(ModeLive)

	errs, ok := w.Advance(testNow)
	assert.False(t, ok)
	assert.Equal(t, StepFunding, w.Step())
	assert.Contains(t, errs, "fundingAmount")
	assert.Contains(t, errs, "useOfFunds")
}

func TestAdvanceWalksToReview(t *testing.T) {
	w := New(ModeLive)
	w.SetApp(validApplication())

	for _, want := range []Step{StepBusiness, StepOwnership, StepReview} {
		errs, ok := w.Advance(testNow)
		require.True(t, ok, "advance to %d failed: %v", want, errs)
		assert.Equal(t, want, w.Step())
	}

	// Review never advances on its own: confirmation requires a
	// successful submission.
	_, ok := w.Advance(testNow)
	assert.False(t, ok)
	assert.Equal(t, StepReview, w.Step())

	w.Confirm()
	assert.Equal(t, StepConfirmation, w.Step())
}

func TestAdvancePartialFailureStaysPut(t *testing.T) {
	w := New(ModeLive)
	app := validApplication()
	app.EIN = "12-34"
	w.SetApp(app)

	_, ok := w.Advance(testNow)
	require.True(t, ok)
	assert.Equal(t, StepBusiness, w.Step())

	errs, ok := w.Advance(testNow)
	assert.False(t, ok)
	assert.Equal(t, StepBusiness, w.Step())
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, "ein")
}

func TestBackIsUnconditional(t *testing.T) {
	w := New(ModeLive)
	w.Back()
	assert.Equal(t, StepFunding, w.Step())

	w = Resume(draft.Application{}, StepOwnership)
	w.Back()
	assert.Equal(t, StepBusiness, w.Step())
}

func TestJumpTo(t *testing.T) {
	w := Resume(validApplication(), StepReview)

	// Backward jumps are always allowed, forward jumps never are.
	assert.True(t, w.JumpTo(StepFunding))
	assert.Equal(t, StepFunding, w.Step())
	assert.False(t, w.JumpTo(StepOwnership))
	assert.Equal(t, StepFunding, w.Step())

	// Confirmation unlocks the document step and nothing else does.
	w = Resume(validApplication(), StepReview)
	assert.False(t, w.JumpTo(StepDocuments))
	w.Confirm()
	assert.True(t, w.JumpTo(StepDocuments))
	assert.Equal(t, StepDocuments, w.Step())
}

func TestPreviewBypassesGates(t *testing.T) {
	w := New(ModePreview)
	app := w.App()
	app.FundingAmount = ""
	app.EIN = "garbage"

	_, ok := w.Advance(testNow)
	assert.True(t, ok)
	assert.Equal(t, StepBusiness, w.Step())
}

func TestPreviewSeedPassesEveryGate(t *testing.T) {
	app := PreviewSeed()
	for step := StepFunding; step <= StepDocuments; step++ {
		assert.Empty(t, Validate(step, &app, testNow), "step %d", step)
	}
}

func TestResumeClampsStep(t *testing.T) {
	w := Resume(draft.Application{}, Step(42))
	assert.Equal(t, StepFunding, w.Step())
}

func TestOwnershipSumFormLevelError(t *testing.T) {
	app := validApplication()
	app.Owner.OwnershipPercent = "60"
	app.SecondOwner.OwnershipPercent = "30"

	errs := Validate(StepOwnership, &app, testNow)
	require.Contains(t, errs, FieldFormLevel)
	assert.Equal(t, "Combined ownership must equal exactly 100%", errs[FieldFormLevel])
	assert.NotContains(t, errs, "owner.ownershipPercent")
	assert.NotContains(t, errs, "secondOwner.ownershipPercent")
}

// A sole owner may hold any stake in (0,100]; the sum rule only binds when
// a second owner exists.
func TestOwnershipSoleOwnerPartialStakePasses(t *testing.T) {
	app := validApplication()
	app.HasSecondOwner = false

	for _, pct := range []string{"60", "1", "100"} {
		app.Owner.OwnershipPercent = pct
		assert.Empty(t, Validate(StepOwnership, &app, testNow), "stake %s%%", pct)
	}
}

func TestOwnershipSecondOwnerIgnoredWhenAbsent(t *testing.T) {
	app := validApplication()
	app.HasSecondOwner = false
	app.Owner.OwnershipPercent = "100"
	app.SecondOwner = draft.Owner{}

	assert.Empty(t, Validate(StepOwnership, &app, testNow))
}

func TestOwnershipPercentBounds(t *testing.T) {
	app := validApplication()
	app.HasSecondOwner = false

	for _, bad := range []string{"0", "-5", "101", "abc", ""} {
		app.Owner.OwnershipPercent = bad
		errs := Validate(StepOwnership, &app, testNow)
		assert.Contains(t, errs, "owner.ownershipPercent", "value %q", bad)
	}
}

func TestReviewRequiresSignature(t *testing.T) {
	app := validApplication()
	app.Signature = draft.Signature{}

	errs := Validate(StepReview, &app, testNow)
	assert.Contains(t, errs, "signature.typedName")
	assert.Contains(t, errs, "signature.signedDate")

	// A drawn signature satisfies the signing requirement without a
	// typed name.
	app.Signature = draft.Signature{
		ImageData:  "data:image/png;base64,iVBORw0KGgo=",
		SignedDate: "2026-08-29",
	}
	assert.Empty(t, Validate(StepReview, &app, testNow))
}

func TestFirstInvalidFollowsDisplayOrder(t *testing.T) {
	errs := ErrorMap{
		"zip":       "Enter a valid ZIP code",
		"legalName": "Enter your business legal name",
	}
	assert.Equal(t, "legalName", FirstInvalid(errs))
	assert.Equal(t, "", FirstInvalid(ErrorMap{}))
}
