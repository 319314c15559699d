package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "funding-apply/internal/common/errors"
	"funding-apply/internal/docupload"
	"funding-apply/internal/draft"
	"funding-apply/internal/schema"
	"funding-apply/internal/storage"
	"funding-apply/internal/wizard"

	"github.com/gin-gonic/gin"
)

type saveDraftRequest struct {
	Application json.RawMessage `json:"application" binding:"required"`
	Step        int             `json:"step"`
	Preview     bool            `json:"preview"`
}

// saveDraft queues a debounced write of the posted draft snapshot.
func (s *Server) saveDraft(c *gin.Context) {
	var req saveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := schema.ValidateDraft(req.Application); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var app draft.Application
	if err := json.Unmarshal(req.Application, &app); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.saver.Queue(session(c), app, req.Step, req.Preview)
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

func (s *Server) loadDraft(c *gin.Context) {
	app, step, ok := s.store.Load(c.Request.Context(), session(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":       true,
		"application": app,
		"step":        step,
		"meaningful":  draft.Meaningful(app),
	})
}

func (s *Server) clearDraft(c *gin.Context) {
	sess := session(c)
	s.saver.Cancel(sess)
	s.store.Clear(c.Request.Context(), sess)
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

type validateStepRequest struct {
	Application draft.Application `json:"application"`
}

// validateStep runs one step's gate and reports the offending fields.
func (s *Server) validateStep(c *gin.Context) {
	stepNum, err := strconv.Atoi(c.Param("step"))
	if err != nil || stepNum < int(wizard.StepFunding) || stepNum > int(wizard.StepDocuments) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step must be between 1 and 6"})
		return
	}

	var req validateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	errs := wizard.Validate(wizard.Step(stepNum), &req.Application, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"valid":        len(errs) == 0,
		"errors":       errs,
		"firstInvalid": wizard.FirstInvalid(errs),
	})
}

type submitRequest struct {
	Application draft.Application `json:"application"`
}

// submit validates every pre-review step, then runs the pipeline.
func (s *Server) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	for step := wizard.StepFunding; step <= wizard.StepReview; step++ {
		if errs := wizard.Validate(step, &req.Application, now); len(errs) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"step":         int(step),
				"errors":       errs,
				"firstInvalid": wizard.FirstInvalid(errs),
			})
			return
		}
	}

	res, err := s.pipe.Submit(c.Request.Context(), session(c), &req.Application, c.Request.UserAgent())
	if err != nil {
		s.writeSubmitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submitted":   true,
		"certificate": res.Certificate,
		"documentUrl": res.DocumentURL,
		"folderPath":  res.Folder.Path,
		"warnings":    res.Warnings,
	})
}

func (s *Server) writeSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrSubmitThrottled):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSignatureMissing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		if stageErr, ok := apperrors.AsStageError(err); ok {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    stageErr.UserMessage,
				"stage":    stageErr.Stage,
				"category": stageErr.Category,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submission failed"})
	}
}

type filePayload struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

type documentsRequest struct {
	FolderPath     string       `json:"folderPath"`
	BankStatements *filePayload `json:"bankStatements"`
	OtherDocuments *filePayload `json:"otherDocuments"`
}

// uploadDocuments decodes, screens, and stores the optional document step.
func (s *Server) uploadDocuments(c *gin.Context) {
	var req documentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	atts := &draft.Attachments{}
	for _, f := range []struct {
		slot    docupload.Slot
		payload *filePayload
		target  **draft.Attachment
	}{
		{docupload.SlotBankStatements, req.BankStatements, &atts.BankStatements},
		{docupload.SlotOtherDocuments, req.OtherDocuments, &atts.OtherDocuments},
	} {
		if f.payload == nil {
			continue
		}
		att, err := s.uploader.Decode(f.slot, f.payload.Filename, f.payload.Data)
		if err != nil {
			var verr *docupload.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"slot":   verr.Slot,
					"reason": verr.Reason,
					"error":  verr.Error(),
				})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		*f.target = att
	}

	out, err := s.uploader.Upload(c.Request.Context(), storage.Folder{Path: req.FolderPath}, atts)
	if err != nil {
		if errors.Is(err, docupload.ErrFolderMissing) {
			c.JSON(http.StatusConflict, gin.H{"error": "submit the application before uploading documents"})
			return
		}
		if errors.Is(err, docupload.ErrBankStatementsRequired) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if stageErr, ok := apperrors.AsStageError(err); ok {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    stageErr.UserMessage,
				"category": stageErr.Category,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bankStatementsUrl": out.BankStatementsURL,
		"otherDocumentsUrl": out.OtherDocumentsURL,
		"warnings":          out.Warnings,
	})
}
