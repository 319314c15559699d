// Package pipeline runs the submission sequence: certificate, document
// render, upload, then the best-effort tail. Stages run strictly in order
// as a flat list; a fatal stage failure stops the run, a best-effort
// failure is logged and the run continues.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "funding-apply/internal/common/errors"
	"funding-apply/internal/common/logger"
	"funding-apply/internal/common/metrics"
	"funding-apply/internal/common/observability"
	"funding-apply/internal/draft"
	"funding-apply/internal/notify"
	"funding-apply/internal/records"
	"funding-apply/internal/signature"
	"funding-apply/internal/storage"
)

const documentFilename = "application.pdf"

// Collaborator surfaces, narrowed to exactly what the pipeline calls.
type CertIssuer interface {
	Issue(ctx context.Context, userAgent string) signature.Certificate
}

type PDFRenderer interface {
	Render(ctx context.Context, app *draft.Application, cert signature.Certificate) ([]byte, error)
}

type Recorder interface {
	Insert(ctx context.Context, rec records.Record) error
}

type SearchIndexer interface {
	Index(ctx context.Context, rec records.Record) error
}

type Notifier interface {
	Send(ctx context.Context, sub notify.Submission) notify.Result
}

type DraftClearer interface {
	Clear(ctx context.Context, session string)
}

// Result is what a successful run hands back to the wizard.
type Result struct {
	Certificate signature.Certificate
	Folder      storage.Folder
	DocumentURL string
	Warnings    []string
}

// Pipeline wires the collaborators and the resubmit guard.
type Pipeline struct {
	certs   CertIssuer
	pdf     PDFRenderer
	store   storage.ObjectStore
	recs    Recorder
	index   SearchIndexer
	mail    Notifier
	drafts  DraftClearer
	obs     *observability.Observability
	logger  logger.Logger
	timeout time.Duration
	now     func() time.Time

	guardMu       sync.Mutex
	lastAttempt   map[string]time.Time
	guardInterval time.Duration
}

// Options carries the optional collaborators. Nil members disable their
// best-effort stage.
type Options struct {
	Recorder     Recorder
	Indexer      SearchIndexer
	Notifier     Notifier
	DraftClearer DraftClearer
	Obs          *observability.Observability
}

func New(certs CertIssuer, pdf PDFRenderer, store storage.ObjectStore, opts Options,
	stageTimeout, guardInterval time.Duration, log logger.Logger) *Pipeline {
	return &Pipeline{
		certs:         certs,
		pdf:           pdf,
		store:         store,
		recs:          opts.Recorder,
		index:         opts.Indexer,
		mail:          opts.Notifier,
		drafts:        opts.DraftClearer,
		obs:           opts.Obs,
		logger:        log.WithFields(map[string]interface{}{"component": "pipeline"}),
		timeout:       stageTimeout,
		now:           time.Now,
		lastAttempt:   make(map[string]time.Time),
		guardInterval: guardInterval,
	}
}

// stage is one entry in the run list. Fatal stages stop the run on error;
// the rest only warn.
type stage struct {
	name  apperrors.Stage
	fatal bool
	run   func(ctx context.Context) error
}

// Submit runs the full sequence for one session. The returned error is nil
// exactly when the certificate, document, and upload stages all succeeded;
// everything after the upload only contributes warnings.
func (p *Pipeline) Submit(ctx context.Context, session string, app *draft.Application, userAgent string) (*Result, error) {
	if err := p.admit(session, app); err != nil {
		return nil, err
	}
	metrics.SubmissionsStarted.Inc()

	res := &Result{}
	var (
		pdfData []byte
		rec     records.Record
	)

	stages := []stage{
		{name: apperrors.StageCertificate, fatal: true, run: func(ctx context.Context) error {
			res.Certificate = p.certs.Issue(ctx, userAgent)
			return nil
		}},
		{name: apperrors.StagePDF, fatal: true, run: func(ctx context.Context) error {
			data, err := p.pdf.Render(ctx, app, res.Certificate)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}},
		{name: apperrors.StageUpload, fatal: true, run: func(ctx context.Context) error {
			res.Folder = storage.NewFolder(app.LegalName, p.now())
			url, err := p.store.Upload(ctx, res.Folder, documentFilename, "application/pdf", pdfData)
			if err != nil {
				return err
			}
			res.DocumentURL = url
			return nil
		}},
		{name: apperrors.StageRecord, fatal: false, run: func(ctx context.Context) error {
			if p.recs == nil {
				return nil
			}
			rec = records.NewRecord(app, res.Certificate, res.DocumentURL)
			return p.recs.Insert(ctx, rec)
		}},
		{name: apperrors.StageIndex, fatal: false, run: func(ctx context.Context) error {
			if p.index == nil {
				return nil
			}
			return p.index.Index(ctx, records.NewRecord(app, res.Certificate, res.DocumentURL))
		}},
		{name: apperrors.StageNotify, fatal: false, run: func(ctx context.Context) error {
			if p.mail == nil {
				return nil
			}
			p.mail.Send(ctx, notify.Submission{
				ApplicantName:  strings.TrimSpace(app.Owner.FirstName + " " + app.Owner.LastName),
				ApplicantEmail: app.Owner.Email,
				BusinessName:   app.LegalName,
				FundingAmount:  app.FundingAmount,
				DocumentURL:    res.DocumentURL,
				Certificate:    res.Certificate,
			})
			return nil
		}},
		{name: apperrors.StageClearDraft, fatal: false, run: func(ctx context.Context) error {
			if p.drafts == nil {
				return nil
			}
			p.drafts.Clear(ctx, session)
			return nil
		}},
	}

	for _, st := range stages {
		if err := p.runStage(ctx, st); err != nil {
			if st.fatal {
				p.recordRun(ctx, "failed")
				return nil, err
			}
			res.Warnings = append(res.Warnings, string(st.name))
		}
	}

	metrics.SubmissionsCompleted.Inc()
	p.recordRun(ctx, "completed")
	p.logger.Info("submission completed", map[string]interface{}{
		"session":   session,
		"signingId": res.Certificate.SigningID,
		"document":  res.DocumentURL,
		"warnings":  res.Warnings,
	})
	return res, nil
}

// admit applies the two pre-flight guards: a present signature and the
// per-session resubmit interval.
func (p *Pipeline) admit(session string, app *draft.Application) error {
	if strings.TrimSpace(app.Signature.TypedName) == "" && strings.TrimSpace(app.Signature.ImageData) == "" {
		return apperrors.ErrSignatureMissing
	}

	p.guardMu.Lock()
	defer p.guardMu.Unlock()
	now := p.now()
	if last, ok := p.lastAttempt[session]; ok && now.Sub(last) < p.guardInterval {
		metrics.SubmissionsThrottled.Inc()
		return apperrors.ErrSubmitThrottled
	}
	p.lastAttempt[session] = now
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, st stage) error {
	stageCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := st.run(stageCtx)
	elapsed := time.Since(start)

	metrics.StageDuration.WithLabelValues(string(st.name)).Observe(elapsed.Seconds())
	if p.obs != nil {
		p.obs.RecordStageDuration(ctx, string(st.name), elapsed)
	}

	if err == nil {
		return nil
	}

	stageErr := apperrors.NewStageError(st.name, err)
	fatal := "false"
	if st.fatal {
		fatal = "true"
	}
	metrics.StageFailures.WithLabelValues(string(st.name), string(stageErr.Category), fatal).Inc()

	level := p.logger.Warn
	if st.fatal {
		level = p.logger.Error
	}
	level("stage failed", map[string]interface{}{
		"stage":    st.name,
		"category": stageErr.Category,
		"fatal":    st.fatal,
		"error":    err,
	})
	if st.fatal {
		return stageErr
	}
	return err
}

func (p *Pipeline) recordRun(ctx context.Context, outcome string) {
	if p.obs != nil {
		p.obs.RecordRun(ctx, outcome)
	}
}
