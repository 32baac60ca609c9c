package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ocrgate/internal/catalog"
	"ocrgate/internal/config"
	"ocrgate/internal/domain"
	"ocrgate/internal/media"
	"ocrgate/internal/oai"
)

// Translator turns an OpenAI-style chat request into one validated
// OcrJob. It is a pure function of its inputs apart from timestamp
// generation and URL dereferencing; it touches no shared state.
type Translator struct {
	cfg     config.PipelineConfig
	fetcher *media.Fetcher
}

// NewTranslator creates a Translator from pipeline config.
func NewTranslator(cfg config.PipelineConfig) *Translator {
	return &Translator{
		cfg:     cfg,
		fetcher: media.NewFetcher(cfg.FetchURLTimeout, cfg.MaxImageSizeMB*1024*1024),
	}
}

// Translate validates the request and produces the job plus the decoded
// source image (kept for annotation after inference). All validation
// happens here, before any accelerator resource is touched.
func (t *Translator) Translate(ctx context.Context, req *oai.ChatCompletionRequest) (*domain.OcrJob, *media.Image, error) {
	instruction, img, err := t.extractUserContent(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if img == nil {
		return nil, nil, domain.ErrNoImage
	}

	presetName := t.cfg.DefaultPreset
	taskName := t.cfg.DefaultTask
	refText := ""
	if req.ExtraBody != nil {
		if req.ExtraBody.ModelSize != "" {
			presetName = req.ExtraBody.ModelSize
		}
		if req.ExtraBody.TaskType != "" {
			taskName = req.ExtraBody.TaskType
		}
		refText = req.ExtraBody.RefText
	}

	preset, err := catalog.ResolvePreset(presetName)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := catalog.ResolveTemplate(domain.TaskType(taskName))
	if err != nil {
		return nil, nil, err
	}
	if tmpl.TaskType != domain.TaskLocate {
		// ref_text only carries meaning for locate; a stray value from
		// the client must not end up on the job.
		refText = ""
	}
	prompt, err := catalog.BuildPrompt(tmpl, refText)
	if err != nil {
		return nil, nil, err
	}

	processed := media.Preprocess(img.Decoded, preset)
	payload, err := media.EncodePNG(processed)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	now := time.Now()
	job := &domain.OcrJob{
		ImageData:   payload,
		ContentType: img.ContentType,
		Width:       img.Width(),
		Height:      img.Height(),
		Preset:      preset,
		Task:        tmpl,
		RefText:     refText,
		Instruction: instruction,
		Prompt:      prompt,
		SubmittedAt: now,
		Deadline:    now.Add(t.cfg.InferenceTimeout),
	}
	return job, img, nil
}

// extractUserContent pulls the instruction text and image attachment
// from the last user message.
func (t *Translator) extractUserContent(ctx context.Context, req *oai.ChatCompletionRequest) (string, *media.Image, error) {
	var last *oai.Message
	for i := range req.Messages {
		if req.Messages[i].Role == "user" {
			last = &req.Messages[i]
		}
	}
	if last == nil {
		return "", nil, nil
	}

	instruction := last.Content.Text
	var img *media.Image
	for _, part := range last.Content.Parts {
		switch part.Type {
		case "text":
			if part.Text != "" {
				instruction = part.Text
			}
		case "image_url":
			if part.ImageURL == nil || part.ImageURL.URL == "" {
				continue
			}
			decoded, err := t.sourceImage(ctx, part.ImageURL.URL)
			if err != nil {
				return "", nil, err
			}
			img = decoded
		}
	}
	return instruction, img, nil
}

func (t *Translator) sourceImage(ctx context.Context, url string) (*media.Image, error) {
	switch {
	case strings.HasPrefix(url, "data:"):
		return media.DecodeDataURI(url)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		if !t.cfg.AllowImageURLs {
			return nil, fmt.Errorf("%w: image URLs are disabled; inline the image as base64", domain.ErrInvalidImage)
		}
		return t.fetcher.Fetch(ctx, url)
	default:
		// Bare base64 payloads are accepted for convenience.
		return media.DecodeDataURI(url)
	}
}
