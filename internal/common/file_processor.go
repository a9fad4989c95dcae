package common

import (
	"fmt"
	"os"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/utils"
)

// FileProcessor reads résumé and job files and writes command output.
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a file processor. maxSize bounds input files; zero means no limit.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadFile returns the decoded text of filename.
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	raw, err := os.ReadFile(filename)
	switch {
	case os.IsNotExist(err):
		return "", errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("File not found: %s", filename), err)
	case err != nil:
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}

	text, err := utils.DecodeText(raw)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s is not a plain text file", filename), err)
	}
	fp.logger.Debug("Input file read", "filename", filename, "size", utils.FormatFileSize(int64(len(raw))))
	return text, nil
}

// WriteFile writes content to filename, creating its directory if needed.
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	if err := utils.EnsureParentDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED", err.Error(), err)
	}
	if err := os.WriteFile(filename, content, 0o600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ValidateAndReadFiles checks every file before reading any of them, so a
// bad job file is reported before the résumé is touched.
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	for _, filename := range filenames {
		if err := utils.ValidateInputFile(filename, fp.maxSize); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}
		if !utils.IsTextFile(filename) {
			fp.logger.Warn("Input may not be a text file", "filename", filename)
		}
	}

	contents := make([]string, len(filenames))
	for i, filename := range filenames {
		text, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		contents[i] = text
	}
	return contents, nil
}
