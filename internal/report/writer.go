package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/temirov/cloudchores/internal/utils"
	"github.com/temirov/cloudchores/internal/utils/flags"
)

// Format selects the document encoding.
type Format string

// Supported report formats.
const (
	FormatJSON Format = Format("json")
	FormatYAML Format = Format("yaml")
)

const (
	formatSubjectConstant             = "report format"
	jsonIndentConstant                = "  "
	yamlIndentConstant                = 2
	yamlDocumentSeparatorConstant     = "---\n"
	encodeErrorTemplateConstant       = "unable to encode %s report: %w"
	missingOutputErrorConstant        = "report output is not configured"
	unsupportedFormatTemplateConstant = "unsupported report format %q"
)

// FormatChoices lists the accepted format names in display order.
func FormatChoices() []string {
	return []string{string(FormatJSON), string(FormatYAML)}
}

// ParseFormat resolves a user-supplied format name; empty selects JSON.
func ParseFormat(rawFormat string) (Format, error) {
	resolved, resolveError := flags.ResolveChoice(formatSubjectConstant, rawFormat, string(FormatJSON), FormatChoices())
	if resolveError != nil {
		return "", resolveError
	}
	return Format(resolved), nil
}

// Writer emits one document per call. YAML documents after the first are separated by a document marker
// so a multi-step run stays parseable as a stream.
type Writer struct {
	mutex            sync.Mutex
	output           io.Writer
	format           Format
	documentsWritten int
}

// NewWriter wraps the output with a flushing writer so each document is visible immediately.
func NewWriter(output io.Writer, format Format) *Writer {
	if len(format) == 0 {
		format = FormatJSON
	}
	return &Writer{output: utils.NewFlushingWriter(output), format: format}
}

// Format reports the configured encoding.
func (writer *Writer) Format() Format {
	return writer.format
}

// Write encodes the document.
func (writer *Writer) Write(document any) error {
	if writer == nil || writer.output == nil {
		return fmt.Errorf(encodeErrorTemplateConstant, "", errors.New(missingOutputErrorConstant))
	}

	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	var encodeError error
	switch writer.format {
	case FormatJSON:
		encoder := json.NewEncoder(writer.output)
		encoder.SetIndent("", jsonIndentConstant)
		encoder.SetEscapeHTML(false)
		encodeError = encoder.Encode(document)
	case FormatYAML:
		if writer.documentsWritten > 0 {
			if _, separatorError := io.WriteString(writer.output, yamlDocumentSeparatorConstant); separatorError != nil {
				return fmt.Errorf(encodeErrorTemplateConstant, writer.format, separatorError)
			}
		}
		encoder := yaml.NewEncoder(writer.output)
		encoder.SetIndent(yamlIndentConstant)
		encodeError = encoder.Encode(document)
		if encodeError == nil {
			encodeError = encoder.Close()
		}
	default:
		encodeError = fmt.Errorf(unsupportedFormatTemplateConstant, writer.format)
	}
	if encodeError != nil {
		return fmt.Errorf(encodeErrorTemplateConstant, writer.format, encodeError)
	}

	writer.documentsWritten++
	return nil
}
