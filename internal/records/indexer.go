package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"funding-apply/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
)

const indexName = "funding-applications"

// Indexer mirrors submitted records into Elasticsearch so the back office
// can search them. Indexing is best effort: the pipeline logs failures and
// keeps going.
type Indexer struct {
	client *elasticsearch.Client
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "records-indexer"}),
	}
}

type indexDocument struct {
	SigningID     string `json:"signingId"`
	BusinessName  string `json:"businessName"`
	ApplicantName string `json:"applicantName"`
	Email         string `json:"email"`
	FundingAmount string `json:"fundingAmount"`
	DocumentURL   string `json:"documentUrl"`
	SubmittedAt   string `json:"submittedAt"`
}

// Index writes one document keyed by signing id, so a retried submission
// overwrites rather than duplicates.
func (i *Indexer) Index(ctx context.Context, rec Record) error {
	doc := indexDocument{
		SigningID:     rec.SigningID,
		BusinessName:  rec.BusinessName,
		ApplicantName: rec.ApplicantName,
		Email:         rec.Email,
		FundingAmount: rec.FundingAmount,
		DocumentURL:   rec.DocumentURL,
		SubmittedAt:   rec.SubmittedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal index document: %w", err)
	}

	res, err := i.client.Index(
		indexName,
		bytes.NewReader(payload),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(rec.SigningID),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document: %s", res.Status())
	}
	i.logger.Debug("record indexed", map[string]interface{}{
		"signingId": rec.SigningID,
	})
	return nil
}
