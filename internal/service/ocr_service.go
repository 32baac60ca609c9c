package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ocrgate/internal/config"
	"ocrgate/internal/domain"
	"ocrgate/internal/grounding"
	"ocrgate/internal/media"
	"ocrgate/internal/oai"
	"ocrgate/internal/port"
)

// OcrService runs the full inference request pipeline: translate,
// execute through the shared model manager, parse grounding output,
// annotate, and assemble the OpenAI-shaped response.
type OcrService interface {
	Process(ctx context.Context, requestID string, req *oai.ChatCompletionRequest) (*oai.ChatCompletionResponse, error)
}

type ocrService struct {
	translator *Translator
	executor   *Executor
	parser     grounding.MarkerParser
	storage    port.ObjectStorage
	auditRepo  port.InferenceLogRepository
	s3cfg      config.S3Config
	modelName  string
}

// NewOcrService wires the pipeline. storage may be nil, in which case
// annotated images are returned inline as base64.
func NewOcrService(
	translator *Translator,
	executor *Executor,
	parser grounding.MarkerParser,
	storage port.ObjectStorage,
	auditRepo port.InferenceLogRepository,
	s3cfg config.S3Config,
	modelName string,
) OcrService {
	return &ocrService{
		translator: translator,
		executor:   executor,
		parser:     parser,
		storage:    storage,
		auditRepo:  auditRepo,
		s3cfg:      s3cfg,
		modelName:  modelName,
	}
}

func (s *ocrService) Process(ctx context.Context, requestID string, req *oai.ChatCompletionRequest) (*oai.ChatCompletionResponse, error) {
	job, img, err := s.translator.Translate(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.executor.Run(ctx, job)
	if err != nil {
		s.audit(requestID, job, nil, 0, err)
		return nil, err
	}

	clean, dets := s.parser.Parse(result.RawText)
	pixel := grounding.Scale(dets, job.Width, job.Height)

	ocr := &domain.OcrResult{
		Text:             clean,
		Detections:       pixel,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		Elapsed:          result.Elapsed,
	}
	if ocr.PromptTokens == 0 && ocr.CompletionTokens == 0 {
		// The runner did not report usage; fall back to a local
		// approximation and say so in the response.
		ocr.PromptTokens = oai.EstimateTokens(job.Prompt)
		ocr.CompletionTokens = oai.EstimateTokens(clean)
		ocr.TokensEstimated = true
	}

	if len(pixel) > 0 {
		s.attachAnnotation(ctx, requestID, img, pixel, ocr)
	}

	s.audit(requestID, job, result, len(pixel), nil)

	model := req.Model
	if model == "" {
		model = s.modelName
	}
	return oai.AssembleChatCompletion(model, ocr), nil
}

// attachAnnotation draws the detections on a copy of the source image
// and publishes it: uploaded to the artifact store with a presigned URL
// when one is configured, inline base64 otherwise. Publication failures
// degrade to the inline path rather than failing the request.
func (s *ocrService) attachAnnotation(ctx context.Context, requestID string, img *media.Image, dets []domain.PixelDetection, ocr *domain.OcrResult) {
	annotated := grounding.Annotate(img.Decoded, dets)
	png, err := media.EncodePNG(annotated)
	if err != nil {
		log.Printf("ocrService.attachAnnotation: [%s] encoding annotated image: %v", requestID, err)
		return
	}
	ocr.AnnotatedPNG = png

	if s.storage == nil || !s.s3cfg.Enabled() {
		return
	}

	key := fmt.Sprintf("%s/%s.png", s.s3cfg.KeyPrefix, uuid.New().String())
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(png),
		ContentType: "image/png",
	})
	if err != nil {
		log.Printf("ocrService.attachAnnotation: [%s] artifact upload failed, returning inline: %v", requestID, err)
		return
	}
	url, err := s.storage.GetPresignedURL(ctx, s.s3cfg.Bucket, key, s.s3cfg.PresignExpiry)
	if err != nil {
		log.Printf("ocrService.attachAnnotation: [%s] presign failed, returning inline: %v", requestID, err)
		// Without a URL the uploaded object is unreachable; best effort
		// to not leave it orphaned in the bucket.
		if derr := s.storage.Delete(ctx, s.s3cfg.Bucket, key); derr != nil {
			log.Printf("ocrService.attachAnnotation: [%s] orphaned artifact cleanup failed: %v", requestID, derr)
		}
		return
	}
	ocr.AnnotatedURL = url
	ocr.AnnotatedPNG = nil
}

// audit records the job outcome. Failures are logged but never block
// the request path.
func (s *ocrService) audit(requestID string, job *domain.OcrJob, result *domain.InferenceResult, detections int, jobErr error) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.InferenceLogEntry{
		ID:          uuid.New().String(),
		RequestID:   requestID,
		Preset:      job.Preset.Name,
		Task:        string(job.Task.TaskType),
		ImageWidth:  job.Width,
		ImageHeight: job.Height,
		Status:      "ok",
		Detections:  detections,
		CreatedAt:   time.Now().UTC(),
	}
	if result != nil {
		entry.PromptTokens = result.PromptTokens
		entry.CompletionTokens = result.CompletionTokens
		entry.DurationMs = result.Elapsed.Milliseconds()
	}
	if jobErr != nil {
		entry.Status = "error"
		entry.Error = jobErr.Error()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.auditRepo.Insert(ctx, entry); err != nil {
			log.Printf("ocrService.audit: [%s] failed to write audit entry: %v", requestID, err)
		}
	}()
}
