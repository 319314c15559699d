package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "funding-apply/internal/common/errors"
	"funding-apply/internal/common/logger"
	"funding-apply/internal/draft"
	"funding-apply/internal/notify"
	"funding-apply/internal/records"
	"funding-apply/internal/signature"
	"funding-apply/internal/storage"
	"funding-apply/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes recording call order
// ==========================

type fakeWorld struct {
	calls []string

	renderErr error
	uploadErr error
	insertErr error
	indexErr  error
}

func (w *fakeWorld) Issue(_ context.Context, userAgent string) signature.Certificate {
	w.calls = append(w.calls, "certificate")
	return signature.Certificate{
		IP:        "203.0.113.9",
		UserAgent: userAgent,
		Timestamp: time.Date(2026, time.August, 29, 15, 4, 5, 0, time.UTC),
		SigningID: "cert-1",
	}
}

func (w *fakeWorld) Render(context.Context, *draft.Application, signature.Certificate) ([]byte, error) {
	w.calls = append(w.calls, "pdf")
	if w.renderErr != nil {
		return nil, w.renderErr
	}
	return []byte("%PDF-1.4 fake"), nil
}

func (w *fakeWorld) Upload(_ context.Context, folder storage.Folder, filename, _ string, _ []byte) (string, error) {
	w.calls = append(w.calls, "upload")
	if w.uploadErr != nil {
		return "", w.uploadErr
	}
	return "https://files.example.com/" + folder.Path + "/" + filename, nil
}

func (w *fakeWorld) Insert(context.Context, records.Record) error {
	w.calls = append(w.calls, "record")
	return w.insertErr
}

func (w *fakeWorld) Index(context.Context, records.Record) error {
	w.calls = append(w.calls, "index")
	return w.indexErr
}

func (w *fakeWorld) Send(context.Context, notify.Submission) notify.Result {
	w.calls = append(w.calls, "notify")
	return notify.Result{ApplicantEmailSent: true, AdminEmailSent: true}
}

func (w *fakeWorld) Clear(context.Context, string) {
	w.calls = append(w.calls, "clear")
}

func newTestPipeline(t *testing.T, w *fakeWorld) *Pipeline {
	return New(w, w, w, Options{
		Recorder:     w,
		Indexer:      w,
		Notifier:     w,
		DraftClearer: w,
	}, 5*time.Second, 10*time.Second, logger.NewTestLogger(t))
}

func signedApplication() draft.Application {
	return wizard.PreviewSeed()
}

func TestSubmitRunsStagesInOrder(t *testing.T) {
	w := &fakeWorld{}
	p := newTestPipeline(t, w)
	app := signedApplication()

	res, err := p.Submit(context.Background(), "sess-1", &app, "ua")
	require.NoError(t, err)

	assert.Equal(t, []string{"certificate", "pdf", "upload", "record", "index", "notify", "clear"}, w.calls)
	assert.Equal(t, "cert-1", res.Certificate.SigningID)
	assert.Contains(t, res.DocumentURL, "applications/blue-ridge-coffee-roasters-llc/")
	assert.Contains(t, res.DocumentURL, "/application.pdf")
	assert.Empty(t, res.Warnings)
}

func TestSubmitUploadFailureStopsRun(t *testing.T) {
	w := &fakeWorld{uploadErr: errors.New("connection timeout")}
	p := newTestPipeline(t, w)
	app := signedApplication()

	res, err := p.Submit(context.Background(), "sess-1", &app, "ua")
	assert.Nil(t, res)

	stageErr, ok := apperrors.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.StageUpload, stageErr.Stage)
	assert.Equal(t, apperrors.CategoryTimeout, stageErr.Category)

	// Nothing after the failed upload ran, so no email, record, or draft
	// clear can claim a submission that never landed.
	assert.Equal(t, []string{"certificate", "pdf", "upload"}, w.calls)
}

func TestSubmitRenderFailureStopsBeforeUpload(t *testing.T) {
	w := &fakeWorld{renderErr: errors.New("render blew up")}
	p := newTestPipeline(t, w)
	app := signedApplication()

	_, err := p.Submit(context.Background(), "sess-1", &app, "ua")
	stageErr, ok := apperrors.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.StagePDF, stageErr.Stage)
	assert.Equal(t, []string{"certificate", "pdf"}, w.calls)
}

// Failures past the upload are warnings, not errors: the submission already
// landed and later stages must still each get their chance.
func TestSubmitBestEffortTailContinues(t *testing.T) {
	w := &fakeWorld{insertErr: errors.New("db down"), indexErr: errors.New("es down")}
	p := newTestPipeline(t, w)
	app := signedApplication()

	res, err := p.Submit(context.Background(), "sess-1", &app, "ua")
	require.NoError(t, err)
	assert.Equal(t, []string{"certificate", "pdf", "upload", "record", "index", "notify", "clear"}, w.calls)

	// Each warning names its own stage, so a record failure and an index
	// failure stay distinguishable.
	assert.Equal(t, []string{"record", "index"}, res.Warnings)
}

func TestSubmitRequiresSignature(t *testing.T) {
	w := &fakeWorld{}
	p := newTestPipeline(t, w)
	app := signedApplication()
	app.Signature = draft.Signature{}

	_, err := p.Submit(context.Background(), "sess-1", &app, "ua")
	assert.ErrorIs(t, err, apperrors.ErrSignatureMissing)
	assert.Empty(t, w.calls)
}

func TestSubmitThrottlesRapidResubmits(t *testing.T) {
	w := &fakeWorld{}
	p := newTestPipeline(t, w)
	app := signedApplication()

	clock := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	_, err := p.Submit(context.Background(), "sess-1", &app, "ua")
	require.NoError(t, err)

	clock = clock.Add(2 * time.Second)
	_, err = p.Submit(context.Background(), "sess-1", &app, "ua")
	assert.ErrorIs(t, err, apperrors.ErrSubmitThrottled)

	// A different session is never throttled by someone else's attempt.
	_, err = p.Submit(context.Background(), "sess-2", &app, "ua")
	assert.NoError(t, err)

	clock = clock.Add(11 * time.Second)
	_, err = p.Submit(context.Background(), "sess-1", &app, "ua")
	assert.NoError(t, err)
}

func TestSubmitDrawnSignatureSatisfiesGuard(t *testing.T) {
	w := &fakeWorld{}
	p := newTestPipeline(t, w)
	app := signedApplication()
	app.Signature = draft.Signature{
		ImageData:  "data:image/png;base64,iVBORw0KGgo=",
		SignedDate: "2026-08-29",
	}

	_, err := p.Submit(context.Background(), "sess-1", &app, "ua")
	assert.NoError(t, err)
}
