package common

import (
	"fmt"
	"io"
	"path/filepath"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/formatters"
	"resumecvpro/internal/viewmodel"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates an output handler writing to stdout when no output file is set
func NewOutputHandler(logger *errors.Logger, stdout io.Writer) *OutputHandler {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		stdout:        stdout,
	}
}

// HandleOutput formats data and writes it to the configured destination
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		_, err = io.WriteString(oh.stdout, output)
		return err
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, []byte(output)); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully",
		"file", config.OutputFile, "format", config.OutputFormat)
	return nil
}

// WriteArtifact saves a downloaded résumé. An empty dir means the current directory.
func (oh *OutputHandler) WriteArtifact(dir string, artifact viewmodel.Artifact) (string, error) {
	path := filepath.Join(dir, artifact.Filename)
	if err := oh.fileProcessor.WriteFile(path, artifact.Body); err != nil {
		return "", err
	}
	oh.logger.Info("Optimized résumé saved", "file", path, "bytes", len(artifact.Body))
	return path, nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
