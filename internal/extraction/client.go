package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an HTTP client for the external OCR/entity-extraction service.
// One scan is one request and one response: there is no retry tier here, and
// on failure the caller substitutes FallbackResult instead of blocking the
// user.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an extraction client. The timeout covers the full
// request; OCR inference can be slow.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ScanRequest is the request body sent to the extraction service.
type ScanRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// ScanLineItem is one line item in the service's flattened convenience view.
type ScanLineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
}

// ScanData is the flattened field view of a successful extraction.
type ScanData struct {
	TotalAmount      float64            `json:"total_amount"`
	SupplierName     string             `json:"supplier_name"`
	ReceiptDate      string             `json:"receipt_date"`
	Currency         string             `json:"currency"`
	LineItems        []ScanLineItem     `json:"line_items"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

// ScanRaw carries the full recognized text and entity list; the normalizer
// consumes the entities.
type ScanRaw struct {
	Text     string   `json:"text"`
	Entities []Entity `json:"entities"`
}

// ScanResponse is the extraction service's response envelope.
type ScanResponse struct {
	Success bool      `json:"success"`
	Data    *ScanData `json:"data,omitempty"`
	Raw     *ScanRaw  `json:"raw,omitempty"`
	Error   string    `json:"error,omitempty"`
	Details string    `json:"details,omitempty"`
}

// Scan sends one image to the extraction service. image is the raw bytes;
// mimeType defaults to image/jpeg.
func (c *Client) Scan(ctx context.Context, image []byte, mimeType string) (*ScanResponse, error) {
	if len(image) == 0 {
		return nil, &Error{Code: ErrInvalidImage, Message: "image is empty"}
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	body, err := json.Marshal(ScanRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		MimeType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		code := ErrServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = ErrServiceTimeout
		}
		return nil, &Error{Code: code, Message: "extraction request failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: ErrServiceUnavailable, Message: "read response", Cause: err}
	}

	var result ScanResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &Error{
			Code:    ErrProcessingFailed,
			Message: fmt.Sprintf("undecodable response (HTTP %d)", resp.StatusCode),
			Cause:   err,
		}
	}

	if resp.StatusCode != http.StatusOK || !result.Success {
		msg := result.Error
		if msg == "" {
			msg = fmt.Sprintf("extraction failed with HTTP %d", resp.StatusCode)
		}
		code := ErrProcessingFailed
		if resp.StatusCode == http.StatusBadRequest {
			code = ErrInvalidImage
		}
		return nil, &Error{Code: code, Message: msg}
	}

	return &result, nil
}
