// Package records persists submitted applications for back-office review:
// a relational row per submission and a best-effort search index entry.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"funding-apply/internal/common/logger"
	"funding-apply/internal/draft"
	"funding-apply/internal/signature"
)

// Record is the persisted submission summary.
type Record struct {
	SigningID     string
	BusinessName  string
	ApplicantName string
	Email         string
	FundingAmount string
	DocumentURL   string
	SubmittedAt   time.Time
}

// NewRecord builds the persisted summary from a submitted draft.
func NewRecord(app *draft.Application, cert signature.Certificate, documentURL string) Record {
	return Record{
		SigningID:     cert.SigningID,
		BusinessName:  app.LegalName,
		ApplicantName: app.Owner.FirstName + " " + app.Owner.LastName,
		Email:         app.Owner.Email,
		FundingAmount: app.FundingAmount,
		DocumentURL:   documentURL,
		SubmittedAt:   cert.Timestamp,
	}
}

// Repository writes submissions to Postgres.
type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "records"}),
	}
}

// Insert stores the record. A record already present under the same signing
// id is treated as a successful no-op so a retried submission cannot double
// count. The audit log write is best effort.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE signing_id = $1)`,
		rec.SigningID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		r.logger.Warn("duplicate submission ignored", map[string]interface{}{
			"signingId": rec.SigningID,
		})
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO applications
			(signing_id, business_name, applicant_name, email, funding_amount, document_url, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.SigningID, rec.BusinessName, rec.ApplicantName, rec.Email,
		rec.FundingAmount, rec.DocumentURL, rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (signing_id, event, created_at) VALUES ($1, $2, $3)`,
		rec.SigningID, "application_submitted", time.Now().UTC(),
	); err != nil {
		r.logger.Warn("audit log write failed", map[string]interface{}{
			"signingId": rec.SigningID,
			"error":     err,
		})
	}

	return nil
}
