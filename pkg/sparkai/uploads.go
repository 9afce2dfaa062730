package sparkai

import (
	"context"
	"io"
)

// UploadsService handles multipart file uploads
type UploadsService struct {
	client *Client
}

// KnowledgeBaseUpload is the result of uploading a reference document
type KnowledgeBaseUpload struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	DocumentID string `json:"documentId,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Document converts the upload result into a campaign knowledge-base entry
func (u KnowledgeBaseUpload) Document() KnowledgeBaseDocument {
	return KnowledgeBaseDocument{ID: u.ID, Filename: u.Filename, DocumentID: u.DocumentID}
}

// LeadsUpload is the result of uploading a leads CSV
type LeadsUpload struct {
	Leads      []Lead `json:"leads"`
	LeadsCount int    `json:"leadsCount"`
	Message    string `json:"message,omitempty"`
}

// KnowledgeBase uploads a PDF to a campaign's knowledge base
func (s *UploadsService) KnowledgeBase(ctx context.Context, campaignID, filename string, content io.Reader) (*KnowledgeBaseUpload, error) {
	var result KnowledgeBaseUpload
	err := s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   "/api/upload/pdf",
		Form:   map[string]string{"campaignId": campaignID},
		Files:  []FilePart{{Field: "pdf", Filename: filename, Content: content}},
	}, &result)
	if result.Filename == "" {
		result.Filename = filename
	}
	return &result, err
}

// Leads uploads a CSV of leads; the backend parses it and returns the rows
func (s *UploadsService) Leads(ctx context.Context, campaignID, filename string, content io.Reader) (*LeadsUpload, error) {
	var result LeadsUpload
	err := s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   "/api/upload/csv",
		Form:   map[string]string{"campaignId": campaignID},
		Files:  []FilePart{{Field: "csv", Filename: filename, Content: content}},
	}, &result)
	if err == nil && result.LeadsCount == 0 {
		result.LeadsCount = len(result.Leads)
	}
	return &result, err
}
