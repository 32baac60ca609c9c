package service_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ocrgate/internal/config"
	"ocrgate/internal/domain"
	"ocrgate/internal/grounding"
	"ocrgate/internal/oai"
	"ocrgate/internal/port"
	"ocrgate/internal/service"
	"ocrgate/mocks"
)

// auditRecorder captures audit entries through the async write path.
type auditRecorder struct {
	entries chan *domain.InferenceLogEntry
}

func newAuditRecorder() *auditRecorder {
	return &auditRecorder{entries: make(chan *domain.InferenceLogEntry, 8)}
}

func (a *auditRecorder) Insert(_ context.Context, entry *domain.InferenceLogEntry) error {
	a.entries <- entry
	return nil
}

func (a *auditRecorder) wait(t *testing.T) *domain.InferenceLogEntry {
	t.Helper()
	select {
	case e := <-a.entries:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit entry")
		return nil
	}
}

func newPipeline(engine port.InferenceEngine, storage port.ObjectStorage, audit port.InferenceLogRepository, s3cfg config.S3Config) (service.OcrService, *service.ModelManager) {
	mgr := service.NewModelManager(engine, service.ModelManagerConfig{MaxBacklog: 8})
	svc := service.NewOcrService(
		service.NewTranslator(testPipelineConfig()),
		service.NewExecutor(mgr),
		grounding.NewRegexParser(),
		storage,
		audit,
		s3cfg,
		"deepseek-ocr",
	)
	return svc, mgr
}

func TestOcrService_FreeOCR_NoDetections(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	engine.On("Load", mock.Anything).Return(nil)
	engine.On("Infer", mock.Anything, mock.Anything).
		Return(&port.InferOutput{RawText: "SOLID COLOR, NO TEXT", PromptTokens: 10, CompletionTokens: 4}, nil)

	audit := newAuditRecorder()
	svc, _ := newPipeline(engine, nil, audit, config.S3Config{})

	resp, err := svc.Process(context.Background(), "req-1", chatRequest(t, &oai.ExtraBody{ModelSize: "Tiny"}))

	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.NotEmpty(t, resp.Choices[0].Message.Content.Text)
	assert.Empty(t, resp.Detections)
	assert.Empty(t, resp.AnnotatedImage)
	assert.Equal(t, 14, resp.Usage.TotalTokens)
	assert.False(t, resp.UsageEstimated)

	entry := audit.wait(t)
	assert.Equal(t, "ok", entry.Status)
	assert.Equal(t, "Tiny", entry.Preset)
}

func TestOcrService_LocateWithoutReference_NeverTouchesModel(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	svc, mgr := newPipeline(engine, nil, nil, config.S3Config{})

	_, err := svc.Process(context.Background(), "req-2", chatRequest(t, &oai.ExtraBody{TaskType: "locate"}))

	assert.ErrorIs(t, err, domain.ErrMissingReference)
	assert.EqualValues(t, 0, mgr.Invocations())
	engine.AssertNotCalled(t, "Load", mock.Anything)
	engine.AssertNotCalled(t, "Infer", mock.Anything, mock.Anything)
}

func TestOcrService_Detections_InlineAnnotation(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	engine.On("Load", mock.Anything).Return(nil)
	engine.On("Infer", mock.Anything, mock.Anything).
		Return(&port.InferOutput{
			RawText:          "Total: $99<|ref|>total<|/ref|><|det|>0.1,0.2,0.5,0.6<|/det|>",
			PromptTokens:     10,
			CompletionTokens: 8,
		}, nil)

	svc, _ := newPipeline(engine, nil, nil, config.S3Config{})

	resp, err := svc.Process(context.Background(), "req-3", chatRequest(t, nil))

	require.NoError(t, err)
	assert.Equal(t, "Total: $99", resp.Choices[0].Message.Content.Text)
	require.Len(t, resp.Detections, 1)
	assert.Equal(t, "total", resp.Detections[0].Label)
	// Scaled against the 100x80 test image.
	assert.Equal(t, [4]int{10, 16, 50, 48}, resp.Detections[0].Box)

	require.NotEmpty(t, resp.AnnotatedImage)
	_, err = base64.StdEncoding.DecodeString(resp.AnnotatedImage)
	assert.NoError(t, err, "annotated image is valid base64")
	assert.Empty(t, resp.AnnotatedImageURL)
}

func TestOcrService_Detections_UploadedWhenStorageConfigured(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	engine.On("Load", mock.Anything).Return(nil)
	engine.On("Infer", mock.Anything, mock.Anything).
		Return(&port.InferOutput{RawText: "<|det|>0.1,0.1,0.9,0.9<|/det|>ok", PromptTokens: 1, CompletionTokens: 1}, nil)

	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{Location: "https://bucket.s3/x.png", ETag: "etag"}, nil)
	storage.On("GetPresignedURL", mock.Anything, "artifacts", mock.AnythingOfType("string"), int64(3600)).
		Return("https://bucket.s3/signed", nil)

	s3cfg := config.S3Config{Bucket: "artifacts", KeyPrefix: "annotated", PresignExpiry: 3600}
	svc, _ := newPipeline(engine, storage, nil, s3cfg)

	resp, err := svc.Process(context.Background(), "req-4", chatRequest(t, nil))

	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3/signed", resp.AnnotatedImageURL)
	assert.Empty(t, resp.AnnotatedImage, "inline copy omitted when the artifact store took it")
	storage.AssertExpectations(t)
}

func TestOcrService_PresignFailure_CleansUpAndFallsBackToInline(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	engine.On("Load", mock.Anything).Return(nil)
	engine.On("Infer", mock.Anything, mock.Anything).
		Return(&port.InferOutput{RawText: "<|det|>0.1,0.1,0.9,0.9<|/det|>ok", PromptTokens: 1, CompletionTokens: 1}, nil)

	var uploadedKey string
	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Run(func(args mock.Arguments) {
			uploadedKey = args.Get(1).(port.UploadInput).Key
		}).
		Return(&port.UploadOutput{Location: "https://bucket.s3/x.png"}, nil)
	storage.On("GetPresignedURL", mock.Anything, "artifacts", mock.AnythingOfType("string"), int64(3600)).
		Return("", assert.AnError)
	storage.On("Delete", mock.Anything, "artifacts", mock.AnythingOfType("string")).
		Return(nil)

	s3cfg := config.S3Config{Bucket: "artifacts", KeyPrefix: "annotated", PresignExpiry: 3600}
	svc, _ := newPipeline(engine, storage, nil, s3cfg)

	resp, err := svc.Process(context.Background(), "req-8", chatRequest(t, nil))

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AnnotatedImage)
	assert.Empty(t, resp.AnnotatedImageURL)
	// The unreachable object is removed rather than left orphaned.
	storage.AssertCalled(t, "Delete", mock.Anything, "artifacts", uploadedKey)
}

func TestOcrService_UploadFailure_FallsBackToInline(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	engine.On("Load", mock.Anything).Return(nil)
	engine.On("Infer", mock.Anything, mock.Anything).
		Return(&port.InferOutput{RawText: "<|det|>0.1,0.1,0.9,0.9<|/det|>ok", PromptTokens: 1, CompletionTokens: 1}, nil)

	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	s3cfg := config.S3Config{Bucket: "artifacts", KeyPrefix: "annotated", PresignExpiry: 3600}
	svc, _ := newPipeline(engine, storage, nil, s3cfg)

	resp, err := svc.Process(context.Background(), "req-5", chatRequest(t, nil))

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AnnotatedImage)
	assert.Empty(t, resp.AnnotatedImageURL)
}

func TestOcrService_EstimatedUsageWhenRunnerSilent(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	engine.On("Load", mock.Anything).Return(nil)
	engine.On("Infer", mock.Anything, mock.Anything).
		Return(&port.InferOutput{RawText: "three short words"}, nil)

	svc, _ := newPipeline(engine, nil, nil, config.S3Config{})

	resp, err := svc.Process(context.Background(), "req-6", chatRequest(t, nil))

	require.NoError(t, err)
	assert.True(t, resp.UsageEstimated)
	assert.Equal(t, 3, resp.Usage.CompletionTokens)
	assert.Positive(t, resp.Usage.PromptTokens)
}

func TestOcrService_FailureAudited(t *testing.T) {
	engine := new(mocks.MockInferenceEngine)
	engine.On("Load", mock.Anything).Return(nil)
	engine.On("Infer", mock.Anything, mock.Anything).
		Return(nil, port.ErrEngineOutOfMemory)

	audit := newAuditRecorder()
	svc, _ := newPipeline(engine, nil, audit, config.S3Config{})

	_, err := svc.Process(context.Background(), "req-7", chatRequest(t, nil))

	assert.ErrorIs(t, err, domain.ErrResourceExhausted)
	entry := audit.wait(t)
	assert.Equal(t, "error", entry.Status)
	assert.Contains(t, entry.Error, "memory")
}
