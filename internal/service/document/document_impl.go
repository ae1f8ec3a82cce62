package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/agent/llm"
	"github.com/grahama1970/extractor-sub000/internal/agent/recognize"
	"github.com/grahama1970/extractor-sub000/internal/agent/textlines"
	"github.com/grahama1970/extractor-sub000/internal/camelot"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/internal/render"
	"github.com/grahama1970/extractor-sub000/internal/tables"
	"github.com/grahama1970/extractor-sub000/internal/utils/validator"
	"github.com/grahama1970/extractor-sub000/pkg/converters"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
	"github.com/grahama1970/extractor-sub000/pkg/queue"
	"github.com/grahama1970/extractor-sub000/pkg/storage"
)

// renderDPI is the raster resolution shared by text extraction,
// recognition input, and the fallback engine, so every stage works in
// the same pixel space.
const renderDPI = 150

type DocumentService struct {
	pipeline  *tables.Pipeline
	pdfText   *textlines.PDFProvider
	ocr       textlines.Provider
	converter converters.DocumentConverter
	validator *validator.DocumentValidator
	queue     queue.Queue
	storage   storage.Storage
	logger    logger.Logger
	config    *ServiceConfig
}

type ServiceConfig struct {
	MaxFileSize     int64
	QueuePriority   int
	MaxConcurrent   int
	ProcessTimeout  time.Duration
	RetentionPeriod time.Duration
}

func NewService(
	pipeline *tables.Pipeline,
	pdfText *textlines.PDFProvider,
	ocr textlines.Provider,
	queue queue.Queue,
	storage storage.Storage,
	logger logger.Logger,
	cfg *ServiceConfig,
) DocumentProcessor {
	if cfg == nil {
		cfg = &ServiceConfig{
			MaxFileSize:     50 * 1024 * 1024, // 50MB
			MaxConcurrent:   5,
			ProcessTimeout:  30 * time.Minute,
			RetentionPeriod: 24 * time.Hour,
		}
	}

	return &DocumentService{
		pipeline:  pipeline,
		pdfText:   pdfText,
		ocr:       ocr,
		converter: converters.NewJSONConverter(),
		validator: validator.NewDocumentValidator(logger, nil),
		queue:     queue,
		storage:   storage,
		logger:    logger,
		config:    cfg,
	}
}

// GetService wires the full conversion stack: S3 storage, the asynq
// queue, the recognition source with its Redis cache, the fallback
// engine, and the optional merge advisor.
func GetService(log logger.Logger) (DocumentProcessor, error) {
	store, err := storage.NewStorage(storage.StorageTypeS3, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	pipelineCfg, err := config.LoadPipelineConfig(pipelineConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	renderer := render.NewPdftoppmRenderer()

	redisCfg := config.GetRedisConfig()
	cache := tables.NewRedisCache(
		redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}),
		time.Duration(redisCfg.CacheTTL)*time.Second,
		log,
	)

	recognizer, err := recognize.New(context.Background(), config.GetTextractConfig(), renderer, cache, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recognizer: %w", err)
	}

	var advisor tables.MergeAdvisor
	if ollamaCfg := config.GetOllamaConfig(); ollamaCfg.Endpoint != "" {
		advisor = llm.NewOllamaAdvisor(&llm.Config{
			Endpoint:    ollamaCfg.Endpoint,
			Model:       ollamaCfg.Model,
			Temperature: ollamaCfg.Temperature,
		}, log)
	}

	pipeline, err := tables.NewPipeline(pipelineCfg, recognizer, camelot.NewEngine(renderer, log), advisor, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize table pipeline: %w", err)
	}

	return NewService(
		pipeline,
		textlines.NewPDFProvider(renderDPI, log),
		textlines.NewOCRProvider(renderer, renderDPI, log),
		q,
		store,
		log,
		nil,
	), nil
}

func pipelineConfigPath() string {
	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		return path
	}
	return "config/pipeline.yaml"
}

// ProcessFile validates and stores an uploaded PDF and enqueues its
// conversion.
func (s *DocumentService) ProcessFile(
	ctx context.Context,
	file multipart.File,
	header *multipart.FileHeader,
) (*models.ProcessingTask, error) {
	s.logger.Info("Starting file processing",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	result, err := s.validator.ValidateFile(header)
	if err != nil {
		return nil, fmt.Errorf("failed to validate file: %w", err)
	}
	if !result.IsValid {
		s.logger.Error("File validation failed",
			logger.String("filename", header.Filename),
			logger.Any("errors", result.Errors),
		)
		return nil, fmt.Errorf("invalid file %s: %s", header.Filename, result.Errors[0].Message)
	}

	taskID := uuid.New().String()

	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeDocumentConvert,
		Priority:  s.config.QueuePriority,
		Progress:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Metadata: map[string]string{
			"filename": header.Filename,
			"size":     fmt.Sprintf("%d", header.Size),
			"type":     strings.ToLower(filepath.Ext(header.Filename)),
			"hash":     result.FileInfo.Hash,
		},
	}

	fileID, err := s.storage.Store(ctx, file, header.Filename)
	if err != nil {
		s.logger.Error("Failed to store file",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	queueTask := &queue.Task{
		ID:       taskID,
		Type:     task.Type,
		Priority: task.Priority,
		Payload: map[string]interface{}{
			"fileId":   fileID,
			"filename": header.Filename,
			"size":     header.Size,
		},
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
	}

	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	initialStatus := &queue.TaskStatus{
		TaskID:    taskID,
		Status:    "pending",
		Progress:  0,
		StartedAt: time.Now(),
	}

	if err := s.queue.SaveFinalStatus(ctx, initialStatus); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	s.logger.Info("Conversion task created",
		logger.String("taskId", taskID),
		logger.String("filename", header.Filename),
	)

	return task, nil
}

// ProcessBatch submits several files concurrently.
func (s *DocumentService) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error) {
	tasks := make([]*models.ProcessingTask, 0, len(files))
	var mu sync.Mutex

	limit := s.config.MaxConcurrent
	if limit <= 0 {
		limit = 5
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.ProcessFile(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to process file %s: %w", header.Filename, err)
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tasks, err
	}

	return tasks, nil
}

// HandleDocument runs one conversion end to end: fetch the PDF, build
// the page tree from its text layer (OCR for scanned pages), run the
// table pipeline over it, and store the JSON result.
func (s *DocumentService) HandleDocument(ctx context.Context, task *queue.Task) error {
	if task == nil || task.Payload == nil || task.Metadata == nil {
		return fmt.Errorf("invalid task: missing required data")
	}

	start := time.Now()
	s.logger.Info("Converting document",
		logger.String("taskId", task.ID),
		logger.String("filename", task.Metadata["filename"]),
	)

	fileID, ok := task.Payload["fileId"].(string)
	if !ok || fileID == "" {
		return fmt.Errorf("invalid task: missing file id")
	}

	reader, err := s.storage.Get(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	defer reader.Close()

	pdfPath, err := spoolToTemp(reader)
	if err != nil {
		return err
	}
	defer os.Remove(pdfPath)

	pages, err := s.pdfText.BuildPages(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to read document pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("document has no pages")
	}

	doc := &models.Document{
		ID:    task.ID,
		Name:  task.Metadata["filename"],
		Pages: pages,
	}

	s.fillScannedPages(ctx, doc, pdfPath)

	stats, err := s.pipeline.Process(ctx, doc, pdfPath)
	if err != nil {
		return fmt.Errorf("table extraction failed: %w", err)
	}

	result, err := s.converter.Convert(doc, stats)
	if err != nil {
		return fmt.Errorf("failed to convert document: %w", err)
	}

	result.TaskID = task.ID
	result.Metadata.FileType = task.Metadata["type"]
	result.Metadata.ProcessingMs = time.Since(start).Milliseconds()
	if size, err := strconv.ParseInt(task.Metadata["size"], 10, 64); err == nil {
		result.Metadata.FileSize = size
	}

	resultData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if _, err := s.storage.Store(ctx, bytes.NewReader(resultData), fmt.Sprintf("result:%s", task.ID)); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	s.logger.Info("Document conversion completed",
		logger.String("taskId", task.ID),
		logger.Int("pages", len(doc.Pages)),
		logger.Int("tables", doc.TableCount()),
		logger.Duration("elapsed", time.Since(start)),
	)

	finalStatus := &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     "completed",
		Progress:   1.0,
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	}

	if err := s.queue.SaveFinalStatus(ctx, finalStatus); err != nil {
		s.logger.Error("Failed to save final status",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
	}

	return nil
}

// fillScannedPages runs OCR for pages without a text layer. OCR failure
// on a page is not fatal; its tables just get no text assigned.
func (s *DocumentService) fillScannedPages(ctx context.Context, doc *models.Document, pdfPath string) {
	if s.ocr == nil {
		return
	}
	for _, page := range doc.Pages {
		if len(page.TextLines) > 0 {
			continue
		}
		lines, err := s.ocr.Lines(ctx, pdfPath, page)
		if err != nil {
			s.logger.Warn("OCR failed for page, continuing without text",
				logger.Int("page", page.Index),
				logger.Error(err),
			)
			continue
		}
		page.TextLines = lines
	}
}

// GetProcessingStatus reports the queue-side state of a task.
func (s *DocumentService) GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	var taskStatus models.ProcessingStatus
	switch status.Status {
	case "pending":
		taskStatus = models.StatusPending
	case "running":
		taskStatus = models.StatusRunning
	case "completed":
		taskStatus = models.StatusCompleted
	case "failed":
		taskStatus = models.StatusFailed
	default:
		taskStatus = models.StatusPending
	}

	return &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    taskStatus,
		Type:      queue.TaskTypeDocumentConvert,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

// GetProcessedDocument returns the stored conversion result.
func (s *DocumentService) GetProcessedDocument(ctx context.Context, taskID string) (*converters.ProcessedDocument, error) {
	status, err := s.GetProcessingStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("task is not completed: %s", status.Status)
	}

	reader, err := s.storage.Get(ctx, fmt.Sprintf("result:%s", taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer reader.Close()

	var result converters.ProcessedDocument
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}

	return &result, nil
}

// CancelTask cancels a queued task.
func (s *DocumentService) CancelTask(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.logger.Info("Task cancelled",
		logger.String("taskId", taskID),
	)

	return nil
}

// CleanupTasks removes stored files older than the retention period.
func (s *DocumentService) CleanupTasks(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed tasks cleanup",
		logger.Time("threshold", threshold),
	)

	return nil
}

// spoolToTemp writes the stored object to a temp file; both the text
// reader and the renderer need a seekable path.
func spoolToTemp(reader io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "convert-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to spool document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmp.Name(), nil
}
