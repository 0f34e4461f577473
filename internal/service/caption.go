package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/transfer"
)

// CaptionService asks the configured generative model for a caption based
// on the post's media. The model is an opaque collaborator: one request in,
// structured caption data out.
type CaptionService interface {
	GenerateCaption(ctx context.Context, mediaURL, category string) (*transfer.CaptionResult, error)
}

type captionService struct {
	cfg    config.Config
	client *http.Client
}

func NewCaptionService(cfg config.Config) CaptionService {
	return &captionService{
		cfg:    cfg,
		client: http.DefaultClient,
	}
}

func (s *captionService) GenerateCaption(ctx context.Context, mediaURL, category string) (*transfer.CaptionResult, error) {
	if s.cfg.CaptionModelURL == "" {
		return nil, errors.New("caption model is not configured")
	}

	payload := map[string]string{
		"media_url": mediaURL,
		"category":  category,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.CaptionModelURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.CaptionModelKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.CaptionModelKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code from caption model: %d (%s)", resp.StatusCode, respBody)
	}

	var result transfer.CaptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing caption response: %w", err)
	}

	if result.Caption == "" {
		return nil, errors.New("caption model returned an empty caption")
	}

	return &result, nil
}

// RenderCaption joins the generated caption and hashtags the way they are
// stored on the post.
func RenderCaption(res *transfer.CaptionResult) string {
	if len(res.Hashtags) == 0 {
		return res.Caption
	}
	return res.Caption + "\n\n" + strings.Join(res.Hashtags, " ")
}
