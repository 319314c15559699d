package docupload

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	apperrors "funding-apply/internal/common/errors"
	"funding-apply/internal/common/logger"
	"funding-apply/internal/draft"
	"funding-apply/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	uploads []string
	failOn  map[string]error
}

func (s *fakeStore) Upload(_ context.Context, folder storage.Folder, filename, _ string, _ []byte) (string, error) {
	if err, ok := s.failOn[filename]; ok {
		return "", err
	}
	s.uploads = append(s.uploads, filename)
	return "https://files.example.com/" + folder.Path + "/" + filename, nil
}

func testLimits() Limits {
	return Limits{MinBytes: 1 << 10, MaxBytes: 10 << 20}
}

func newTestUploader(t *testing.T, store *fakeStore) *Uploader {
	return NewUploader(store, testLimits(), logger.NewTestLogger(t))
}

func testFolder() storage.Folder {
	return storage.Folder{Path: "applications/acme/20260829-150405"}
}

func attachment(name string, size int) *draft.Attachment {
	return &draft.Attachment{Filename: name, Data: make([]byte, size)}
}

// Screening happens entirely locally, so a bad file is rejected before any
// upload is attempted.
func TestScreenRejectsBeforeNetwork(t *testing.T) {
	store := &fakeStore{}
	u := newTestUploader(t, store)

	tests := []struct {
		name     string
		filename string
		size     int64
		reason   RejectReason
	}{
		{"executable", "statement.exe", 5 << 10, RejectBadExtension},
		{"no extension", "statement", 5 << 10, RejectBadExtension},
		{"disguised double extension", "statement.pdf.exe", 5 << 10, RejectBadExtension},
		{"below floor", "statement.pdf", 500, RejectTooSmall},
		{"above ceiling", "statement.pdf", 10<<20 + 1, RejectTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := u.Screen(SlotBankStatements, tt.filename, tt.size)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
	assert.Empty(t, store.uploads)
}

func TestScreenBoundsInclusive(t *testing.T) {
	u := newTestUploader(t, &fakeStore{})

	assert.NoError(t, u.Screen(SlotBankStatements, "a.pdf", 1<<10))
	assert.NoError(t, u.Screen(SlotBankStatements, "a.pdf", 10<<20))
	assert.NoError(t, u.Screen(SlotBankStatements, "photo.JPG", 5<<10))
}

func TestDecodeDataURL(t *testing.T) {
	u := newTestUploader(t, &fakeStore{})

	raw := make([]byte, 2<<10)
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	att, err := u.Decode(SlotOtherDocuments, "photo.png", payload)
	require.NoError(t, err)
	assert.Equal(t, raw, att.Data)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	u := newTestUploader(t, &fakeStore{})

	_, err := u.Decode(SlotOtherDocuments, "photo.png", "!!not base64!!")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RejectUnreadable, verr.Reason)
}

func TestUploadRequiresFolder(t *testing.T) {
	u := newTestUploader(t, &fakeStore{})

	_, err := u.Upload(context.Background(), storage.Folder{}, &draft.Attachments{})
	assert.ErrorIs(t, err, ErrFolderMissing)
}

func TestUploadBothSlots(t *testing.T) {
	store := &fakeStore{}
	u := newTestUploader(t, store)

	out, err := u.Upload(context.Background(), testFolder(), &draft.Attachments{
		BankStatements: attachment("statements-q2.pdf", 5<<10),
		OtherDocuments: attachment("lease.jpg", 5<<10),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"bank-statements.pdf", "other-documents.jpg"}, store.uploads)
	assert.Contains(t, out.BankStatementsURL, "bank-statements.pdf")
	assert.Contains(t, out.OtherDocumentsURL, "other-documents.jpg")
	assert.Empty(t, out.Warnings)
}

func TestUploadRequiresBankStatements(t *testing.T) {
	store := &fakeStore{}
	u := newTestUploader(t, store)

	_, err := u.Upload(context.Background(), testFolder(), &draft.Attachments{
		OtherDocuments: attachment("lease.jpg", 5<<10),
	})
	assert.ErrorIs(t, err, ErrBankStatementsRequired)
	assert.Empty(t, store.uploads)
}

// Bank statements are required downstream, so their failure is fatal.
func TestUploadBankStatementFailureIsFatal(t *testing.T) {
	store := &fakeStore{failOn: map[string]error{"bank-statements.pdf": errors.New("500 internal server error")}}
	u := newTestUploader(t, store)

	_, err := u.Upload(context.Background(), testFolder(), &draft.Attachments{
		BankStatements: attachment("statements-q2.pdf", 5<<10),
		OtherDocuments: attachment("lease.jpg", 5<<10),
	})
	stageErr, ok := apperrors.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.StageDocuments, stageErr.Stage)
	assert.Equal(t, apperrors.CategoryServer, stageErr.Category)

	// The optional slot was never attempted after the fatal failure.
	assert.Empty(t, store.uploads)
}

func TestUploadOtherDocumentFailureWarnsOnly(t *testing.T) {
	store := &fakeStore{failOn: map[string]error{"other-documents.jpg": errors.New("connection refused")}}
	u := newTestUploader(t, store)

	out, err := u.Upload(context.Background(), testFolder(), &draft.Attachments{
		BankStatements: attachment("statements-q2.pdf", 5<<10),
		OtherDocuments: attachment("lease.jpg", 5<<10),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bank-statements.pdf"}, store.uploads)
	assert.Equal(t, []string{"other_documents"}, out.Warnings)
	assert.Empty(t, out.OtherDocumentsURL)
}
