package design

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const canvaBaseURL = "https://api.canva.com"

type Canva struct {
	APIKey     string
	TemplateID string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

func NewCanva(apiKey, templateID string, log *logrus.Logger) (*Canva, error) {
	if apiKey == "" {
		return nil, errors.New("design: api key is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Canva{
		APIKey:     apiKey,
		TemplateID: templateID,
		BaseURL:    canvaBaseURL,
		HTTPClient: &http.Client{Timeout: time.Minute},
		Logger:     log,
	}, nil
}

type canvaTextElement struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type canvaSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type canvaDesignRequest struct {
	TemplateID string `json:"template_id,omitempty"`
	Elements   struct {
		TextElements    []canvaTextElement `json:"text_elements"`
		ContentSections []canvaSection     `json:"content_sections"`
	} `json:"elements"`
}

type canvaDesignResponse struct {
	ID string `json:"id"`
}

type canvaExportResponse struct {
	DownloadURL string `json:"download_url"`
}

func (c *Canva) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("design api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("design api: %s %s: status %d: %s", method, path, resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("design api: decode: %w", err)
		}
	}
	return nil
}

func (c *Canva) CreateDesign(ctx context.Context, doc Document) (string, error) {
	var req canvaDesignRequest
	req.TemplateID = c.TemplateID
	req.Elements.TextElements = []canvaTextElement{
		{Type: "heading", Content: doc.Title},
		{Type: "subheading", Content: doc.Subtitle},
	}
	for _, s := range doc.Sections {
		req.Elements.ContentSections = append(req.Elements.ContentSections, canvaSection{
			Title:   s.Title,
			Content: s.Content,
			Type:    "text",
		})
	}

	var resp canvaDesignResponse
	if err := c.do(ctx, http.MethodPost, "/v1/designs", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("design api: no design id in response")
	}

	c.Logger.WithField("design_id", resp.ID).Info("design created")
	return resp.ID, nil
}

func (c *Canva) ExportPDF(ctx context.Context, designID string) (string, error) {
	var resp canvaExportResponse
	err := c.do(ctx, http.MethodPost, "/v1/designs/"+designID+"/exports", map[string]string{"format": "pdf"}, &resp)
	if err != nil {
		return "", err
	}
	if resp.DownloadURL == "" {
		return "", errors.New("design api: no download url in export response")
	}
	return resp.DownloadURL, nil
}
