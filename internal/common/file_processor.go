package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"atscheck/internal/errors"
	"atscheck/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a new file processor instance. Files larger than
// maxSize bytes are rejected; zero disables the limit.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadDocument validates and reads one input document.
func (fp *FileProcessor) ReadDocument(filename string) ([]byte, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	if !utils.IsDocumentFile(filename) && fp.logger != nil {
		fp.logger.Warn("File may not be a PDF or DOCX document", "filename", filename)
	}

	if err := utils.CheckFileSize(filename, fp.maxSize); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File too large: %s", filename), err).
			WithContext("limit_bytes", fp.maxSize)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
