// Package docupload handles the post-submission document step. Files are
// screened locally (extension and size) before any network call, then
// uploaded into the submission's existing storage folder.
package docupload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	apperrors "funding-apply/internal/common/errors"
	"funding-apply/internal/common/logger"
	"funding-apply/internal/common/metrics"
	"funding-apply/internal/draft"
	"funding-apply/internal/storage"

	"github.com/ledongthuc/pdf"
)

// Slot names the two upload positions. Bank statements are required by
// underwriting, so their upload failure is fatal; everything else is best
// effort.
type Slot string

const (
	SlotBankStatements Slot = "bank_statements"
	SlotOtherDocuments Slot = "other_documents"
)

var (
	// ErrFolderMissing means the documents step ran without a completed
	// submission to attach to.
	ErrFolderMissing = errors.New("no submission folder to upload into")

	// ErrBankStatementsRequired means the required slot was left empty.
	ErrBankStatementsRequired = errors.New("bank statements are required")
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Limits bound acceptable file sizes, both ends inclusive.
type Limits struct {
	MinBytes int64
	MaxBytes int64
}

// RejectReason explains a local screening failure.
type RejectReason string

const (
	RejectBadExtension RejectReason = "bad_extension"
	RejectTooSmall     RejectReason = "too_small"
	RejectTooLarge     RejectReason = "too_large"
	RejectUnreadable   RejectReason = "unreadable"
)

// ValidationError is returned when a file fails screening before upload.
type ValidationError struct {
	Slot     Slot
	Reason   RejectReason
	Filename string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document %q rejected: %s", e.Filename, e.Reason)
}

// UserMessage is the copy shown next to the offending slot.
func (e *ValidationError) UserMessage(limits Limits) string {
	switch e.Reason {
	case RejectBadExtension:
		return "Please upload a PDF, JPG, JPEG, or PNG file."
	case RejectTooSmall:
		return "This file looks empty. Please choose a complete file."
	case RejectTooLarge:
		return fmt.Sprintf("Files must be %d MB or smaller.", limits.MaxBytes/(1<<20))
	default:
		return "We could not read this file. Please choose another."
	}
}

// Uploader screens and stores the document step's files.
type Uploader struct {
	store  storage.ObjectStore
	limits Limits
	logger logger.Logger
}

func NewUploader(store storage.ObjectStore, limits Limits, log logger.Logger) *Uploader {
	return &Uploader{
		store:  store,
		limits: limits,
		logger: log.WithFields(map[string]interface{}{"component": "docupload"}),
	}
}

// Screen validates a file locally. It runs before any decode or network
// call, so an oversized or wrongly named file costs nothing.
func (u *Uploader) Screen(slot Slot, filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		metrics.DocumentsRejected.WithLabelValues(string(slot), string(RejectBadExtension)).Inc()
		return &ValidationError{Slot: slot, Reason: RejectBadExtension, Filename: filename}
	}
	if size < u.limits.MinBytes {
		metrics.DocumentsRejected.WithLabelValues(string(slot), string(RejectTooSmall)).Inc()
		return &ValidationError{Slot: slot, Reason: RejectTooSmall, Filename: filename}
	}
	if size > u.limits.MaxBytes {
		metrics.DocumentsRejected.WithLabelValues(string(slot), string(RejectTooLarge)).Inc()
		return &ValidationError{Slot: slot, Reason: RejectTooLarge, Filename: filename}
	}
	return nil
}

// Decode turns a data URL or bare base64 payload into an attachment,
// screening it on the decoded size.
func (u *Uploader) Decode(slot Slot, filename, payload string) (*draft.Attachment, error) {
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		metrics.DocumentsRejected.WithLabelValues(string(slot), string(RejectUnreadable)).Inc()
		return nil, &ValidationError{Slot: slot, Reason: RejectUnreadable, Filename: filename}
	}
	if err := u.Screen(slot, filename, int64(len(data))); err != nil {
		return nil, err
	}
	return &draft.Attachment{Filename: filename, Data: data}, nil
}

// Outcome reports what the upload run did per slot.
type Outcome struct {
	BankStatementsURL string
	OtherDocumentsURL string
	Warnings          []string
}

// Upload stores the attachments into the submission folder. Bank statements
// are required and their failure fails the run; the other slot is optional
// and only warns.
func (u *Uploader) Upload(ctx context.Context, folder storage.Folder, atts *draft.Attachments) (*Outcome, error) {
	if strings.TrimSpace(folder.Path) == "" {
		return nil, ErrFolderMissing
	}
	if atts.BankStatements == nil {
		return nil, ErrBankStatementsRequired
	}

	out := &Outcome{}

	url, err := u.uploadOne(ctx, folder, SlotBankStatements, atts.BankStatements)
	if err != nil {
		return nil, apperrors.NewStageError(apperrors.StageDocuments, err)
	}
	out.BankStatementsURL = url

	if atts.OtherDocuments != nil {
		url, err := u.uploadOne(ctx, folder, SlotOtherDocuments, atts.OtherDocuments)
		if err != nil {
			u.logger.Warn("optional document upload failed", map[string]interface{}{
				"slot":  SlotOtherDocuments,
				"error": err,
			})
			out.Warnings = append(out.Warnings, string(SlotOtherDocuments))
		} else {
			out.OtherDocumentsURL = url
		}
	}

	return out, nil
}

func (u *Uploader) uploadOne(ctx context.Context, folder storage.Folder, slot Slot, att *draft.Attachment) (string, error) {
	if err := u.Screen(slot, att.Filename, int64(len(att.Data))); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(att.Filename))
	if ext == ".pdf" {
		u.sanityCheckPDF(slot, att)
	}

	objectName := strings.ReplaceAll(string(slot), "_", "-") + ext
	return u.store.Upload(ctx, folder, objectName, contentTypes[ext], att.Data)
}

// sanityCheckPDF tries to open the PDF. An unreadable document is still
// uploaded; reviewers want the file either way, so this only warns.
func (u *Uploader) sanityCheckPDF(slot Slot, att *draft.Attachment) {
	if _, err := pdf.NewReader(bytes.NewReader(att.Data), int64(len(att.Data))); err != nil {
		u.logger.Warn("pdf does not parse, uploading anyway", map[string]interface{}{
			"slot":     slot,
			"filename": att.Filename,
			"error":    err,
		})
	}
}
