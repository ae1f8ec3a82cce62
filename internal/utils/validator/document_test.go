package validator

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

// uploadHeader builds a multipart.FileHeader around the given content.
func uploadHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func newTestValidator(cfg *ValidatorConfig) *DocumentValidator {
	return NewDocumentValidator(logger.NewTestLogger(), cfg)
}

func TestValidateFileRejectsUnknownExtension(t *testing.T) {
	v := newTestValidator(nil)

	result, err := v.ValidateFile(uploadHeader(t, "notes.txt", []byte("plain text")))

	require.NoError(t, err)
	assert.False(t, result.IsValid)

	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, "INVALID_FILE_TYPE")
}

func TestValidateFileRejectsOversize(t *testing.T) {
	v := newTestValidator(&ValidatorConfig{
		MaxFileSize:  4,
		AllowedTypes: map[string][]string{".pdf": {"application/pdf"}},
	})

	result, err := v.ValidateFile(uploadHeader(t, "big.pdf", []byte("%PDF-1.4 more than four bytes")))

	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, "FILE_TOO_LARGE", result.Errors[0].Code)
}

func TestValidateFileRejectsFakePDF(t *testing.T) {
	v := newTestValidator(nil)

	result, err := v.ValidateFile(uploadHeader(t, "fake.pdf", []byte("this is not a pdf at all")))

	require.NoError(t, err)
	assert.False(t, result.IsValid)

	var sawInvalidPDF bool
	for _, e := range result.Errors {
		if e.Code == "INVALID_PDF" {
			sawInvalidPDF = true
		}
	}
	assert.True(t, sawInvalidPDF)
}

func TestValidateFileComputesHash(t *testing.T) {
	v := newTestValidator(nil)

	result, err := v.ValidateFile(uploadHeader(t, "fake.pdf", []byte("content")))

	require.NoError(t, err)
	assert.Len(t, result.FileInfo.Hash, 64)
	assert.Equal(t, ".pdf", result.FileInfo.Extension)
}
