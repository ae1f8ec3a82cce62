// Package validator checks uploaded documents before they are accepted
// for conversion.
package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

var pdfMagic = []byte("%PDF-")

// DocumentValidator validates uploads against size, type, and format
// constraints.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	// MaxFileSize in bytes.
	MaxFileSize int64
	// AllowedTypes maps extensions to their accepted MIME types.
	AllowedTypes map[string][]string
	// MaxPageCount rejects pathologically large PDFs.
	MaxPageCount int
}

// ValidationResult collects everything found wrong with one file.
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// FileInfo describes the validated file.
type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
	PageCount int    `json:"pageCount,omitempty"`
}

func NewDocumentValidator(logger logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = &ValidatorConfig{
			MaxFileSize: 50 * 1024 * 1024, // 50MB
			AllowedTypes: map[string][]string{
				".pdf": {"application/pdf"},
			},
			MaxPageCount: 1000,
		}
	}

	return &DocumentValidator{
		logger: logger,
		config: config,
	}
}

// ValidateFile checks one uploaded file.
func (v *DocumentValidator) ValidateFile(file *multipart.FileHeader) (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid: true,
		Errors:  make([]ValidationError, 0),
		FileInfo: FileInfo{
			Filename:  file.Filename,
			Size:      file.Size,
			Extension: strings.ToLower(filepath.Ext(file.Filename)),
		},
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	hash, err := v.calculateHash(f)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}
	result.FileInfo.Hash = hash

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	if errs := v.performBasicValidation(result.FileInfo); len(errs) > 0 {
		result.IsValid = false
		result.Errors = append(result.Errors, errs...)
	}

	mimeType, err := v.detectMimeType(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	result.FileInfo.MimeType = mimeType

	if errs := v.validateMimeType(result.FileInfo); len(errs) > 0 {
		result.IsValid = false
		result.Errors = append(result.Errors, errs...)
	}

	if result.FileInfo.Extension == ".pdf" {
		if errs := v.validatePDF(f, file.Size, &result.FileInfo); len(errs) > 0 {
			result.IsValid = false
			result.Errors = append(result.Errors, errs...)
		}
	}

	return result, nil
}

func (v *DocumentValidator) performBasicValidation(fileInfo FileInfo) []ValidationError {
	var errors []ValidationError

	if fileInfo.Size > v.config.MaxFileSize {
		errors = append(errors, ValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}

	if _, ok := v.config.AllowedTypes[fileInfo.Extension]; !ok {
		errors = append(errors, ValidationError{
			Code:    "INVALID_FILE_TYPE",
			Message: fmt.Sprintf("File type %s is not allowed", fileInfo.Extension),
			Field:   "extension",
		})
	}

	return errors
}

func (v *DocumentValidator) validateMimeType(fileInfo FileInfo) []ValidationError {
	allowedMimes, ok := v.config.AllowedTypes[fileInfo.Extension]
	if !ok {
		return nil // extension already rejected
	}

	for _, mime := range allowedMimes {
		if mime == fileInfo.MimeType {
			return nil
		}
	}

	return []ValidationError{{
		Code:    "INVALID_MIME_TYPE",
		Message: fmt.Sprintf("Invalid MIME type %s for extension %s", fileInfo.MimeType, fileInfo.Extension),
		Field:   "mimeType",
	}}
}

// validatePDF checks the file header and makes sure the document parses
// and stays within the page budget.
func (v *DocumentValidator) validatePDF(file multipart.File, size int64, info *FileInfo) []ValidationError {
	var errors []ValidationError

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return []ValidationError{{Code: "UNREADABLE", Message: err.Error()}}
	}

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(file, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return []ValidationError{{
			Code:    "INVALID_PDF",
			Message: "File does not start with a PDF header",
			Field:   "content",
		}}
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return []ValidationError{{Code: "UNREADABLE", Message: err.Error()}}
	}

	reader, err := pdf.NewReader(file, size)
	if err != nil {
		return []ValidationError{{
			Code:    "INVALID_PDF",
			Message: fmt.Sprintf("Failed to parse PDF: %v", err),
			Field:   "content",
		}}
	}

	info.PageCount = reader.NumPage()
	if info.PageCount == 0 {
		errors = append(errors, ValidationError{
			Code:    "EMPTY_PDF",
			Message: "PDF has no pages",
			Field:   "content",
		})
	}
	if v.config.MaxPageCount > 0 && info.PageCount > v.config.MaxPageCount {
		errors = append(errors, ValidationError{
			Code:    "TOO_MANY_PAGES",
			Message: fmt.Sprintf("PDF has %d pages, maximum is %d", info.PageCount, v.config.MaxPageCount),
			Field:   "content",
		})
	}

	return errors
}

func (v *DocumentValidator) detectMimeType(file multipart.File) (string, error) {
	buffer := make([]byte, 512)
	_, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buffer), nil
}

func (v *DocumentValidator) calculateHash(file multipart.File) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
