package common

import (
	"context"
	"io"

	"resumecvpro/internal/errors"
)

// OperationFunc produces the command result from the contents of its input files.
type OperationFunc[Output any] func(ctx context.Context, contents []string) (Output, error)

// RunFileCommand reads every input file, runs op and writes its result.
func RunFileCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	stdout io.Writer,
	maxFileSize int64,
	cmdConfig CommandConfig,
	files []string,
	op OperationFunc[Output],
) error {
	fileProcessor := NewFileProcessor(logger, maxFileSize)
	outputHandler := NewOutputHandler(logger, stdout)

	if err := ValidateOutputFormat(cmdConfig.OutputFormat, outputHandler.GetSupportedFormats()); err != nil {
		return err
	}

	contents, err := fileProcessor.ValidateAndReadFiles(files...)
	if err != nil {
		return err
	}

	result, err := op(ctx, contents)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternalError("COMMAND_FAILED", "command failed", err)
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
