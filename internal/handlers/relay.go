package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"

	"pdfrelay/internal/config"
	"pdfrelay/internal/domain"
	"pdfrelay/internal/infra/logging"
	"pdfrelay/internal/infra/metrics"
)

const (
	msgSaveMissing     = "Missing data: pdfBlob and fileName are required"
	msgSaved           = "PDF saved to Dropbox successfully!"
	msgSaveFailed      = "Failed to save PDF to Dropbox"
	msgGenerateMissing = "htmlContent is required"
	msgGenerated       = "PDF generated successfully!"
	msgGenerateFailed  = "Failed to generate PDF"
	msgBothMissing     = "htmlContent and fileName are required"
	msgGeneratedSaved  = "PDF generated and saved successfully!"
	msgBothFailed      = "Failed to generate and save PDF"
)

// SavePDFRequest is the body of POST /api/save-pdf.
type SavePDFRequest struct {
	PDFBlob  string `json:"pdfBlob" form:"pdfBlob" validate:"required"`
	FileName string `json:"fileName" form:"fileName" validate:"required"`
}

// GeneratePDFRequest is the body of POST /api/generate-pdf.
type GeneratePDFRequest struct {
	HTMLContent string `json:"htmlContent" form:"htmlContent" validate:"required"`
}

// GenerateAndSavePDFRequest is the body of POST /api/generate-and-save-pdf.
type GenerateAndSavePDFRequest struct {
	HTMLContent string `json:"htmlContent" form:"htmlContent" validate:"required"`
	FileName    string `json:"fileName" form:"fileName" validate:"required"`
}

// Response is the envelope every failure is reported with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SaveResponse is the success body of POST /api/save-pdf.
type SaveResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GenerateResponse is the success body of POST /api/generate-pdf.
// PDFBlob is always present, even for an empty document.
type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PDFBlob string `json:"pdfBlob"`
}

// GenerateAndSaveResponse is the success body of POST /api/generate-and-save-pdf.
type GenerateAndSaveResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	PDFBlob     string          `json:"pdfBlob"`
	DropboxData json.RawMessage `json:"dropboxData"`
}

// APIError carries the status and client-facing message for a failed request.
// Err is reported in the envelope's error field for 5xx responses only.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// RelayService bundles configuration and the two upstream collaborators.
type RelayService struct {
	Config    *config.Config
	Converter domain.Converter
	Store     domain.Store
	Metrics   *metrics.Recorder

	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

// NewRelayService creates a RelayService. m may be nil.
func NewRelayService(cfg config.Config, conv domain.Converter, store domain.Store, m *metrics.Recorder) *RelayService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	svc := &RelayService{
		Config:    &cfg,
		Converter: conv,
		Store:     store,
		Metrics:   m,
		validate:  v,
	}
	if cfg.Converter.SanitizeHTML {
		svc.sanitizer = bluemonday.UGCPolicy()
	}
	return svc
}

// HandleSave uploads a client-rendered PDF.
func (svc *RelayService) HandleSave(c *fiber.Ctx) error {
	var req SavePDFRequest
	if err := svc.bind(c, &req, msgSaveMissing); err != nil {
		return err
	}

	pdf := domain.DecodePDF(req.PDFBlob)
	svc.observeSize("client", len(pdf))

	data, err := svc.upload(c, req.FileName, pdf)
	if err != nil {
		return svc.upstreamFailure(c, msgSaveFailed, err)
	}

	return c.JSON(SaveResponse{
		Success: true,
		Message: msgSaved,
		Data:    data,
	})
}

// HandleGenerate converts markup and returns the PDF as base64.
func (svc *RelayService) HandleGenerate(c *fiber.Ctx) error {
	var req GeneratePDFRequest
	if err := svc.bind(c, &req, msgGenerateMissing); err != nil {
		return err
	}

	pdf, err := svc.convert(c, req.HTMLContent)
	if err != nil {
		return svc.upstreamFailure(c, msgGenerateFailed, err)
	}

	return c.JSON(GenerateResponse{
		Success: true,
		Message: msgGenerated,
		PDFBlob: pdf.Base64(),
	})
}

// HandleGenerateAndSave converts markup, uploads the converter output as-is
// and returns both. A failed conversion never reaches the store; a failed
// upload discards the generated PDF.
func (svc *RelayService) HandleGenerateAndSave(c *fiber.Ctx) error {
	var req GenerateAndSavePDFRequest
	if err := svc.bind(c, &req, msgBothMissing); err != nil {
		return err
	}

	pdf, err := svc.convert(c, req.HTMLContent)
	if err != nil {
		return svc.upstreamFailure(c, msgBothFailed, err)
	}

	data, err := svc.upload(c, req.FileName, pdf)
	if err != nil {
		return svc.upstreamFailure(c, msgBothFailed, err)
	}

	return c.JSON(GenerateAndSaveResponse{
		Success:     true,
		Message:     msgGeneratedSaved,
		PDFBlob:     pdf.Base64(),
		DropboxData: data,
	})
}

// bind parses a JSON or form body into out and checks required fields.
// Any failure is reported with missingMsg so clients see one message per endpoint.
func (svc *RelayService) bind(c *fiber.Ctx, out any, missingMsg string) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return &APIError{Status: fiber.StatusBadRequest, Message: missingMsg, Err: err}
		}
	}

	if err := svc.validate.Struct(out); err != nil {
		verr := &domain.ValidationError{Message: missingMsg}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.Fields = append(verr.Fields, fe.Field())
			}
		}
		return &APIError{Status: fiber.StatusBadRequest, Message: missingMsg, Err: verr}
	}
	return nil
}

func (svc *RelayService) convert(c *fiber.Ctx, markup string) (domain.PDF, error) {
	if svc.sanitizer != nil {
		markup = svc.sanitizer.Sanitize(markup)
	}

	pdf, err := svc.Converter.Convert(c.UserContext(), markup)
	if err != nil {
		return nil, err
	}
	svc.observeSize("converter", len(pdf))
	logging.Info("PDF generated", "bytes", len(pdf), "request_id", requestID(c))
	return domain.PDF(pdf), nil
}

func (svc *RelayService) upload(c *fiber.Ctx, fileName string, pdf domain.PDF) (json.RawMessage, error) {
	path := svc.Config.UploadPath(fileName)

	data, err := svc.Store.Upload(c.UserContext(), path, pdf)
	if err != nil {
		return nil, err
	}
	logging.Info("PDF uploaded", "path", path, "bytes", len(pdf), "request_id", requestID(c))
	return data, nil
}

// upstreamFailure logs and counts a converter or store failure.
func (svc *RelayService) upstreamFailure(c *fiber.Ctx, msg string, err error) error {
	service := "unknown"
	var uerr *domain.UpstreamError
	if errors.As(err, &uerr) && uerr.Service != "" {
		service = uerr.Service
	}
	if svc.Metrics != nil {
		svc.Metrics.IncreaseUpstreamError(service)
	}
	logging.Error(msg, "service", service, "error", err, "path", c.Path(), "request_id", requestID(c))

	return &APIError{Status: fiber.StatusInternalServerError, Message: msg, Err: err}
}

func (svc *RelayService) observeSize(source string, size int) {
	if svc.Metrics != nil {
		svc.Metrics.ObservePDFSize(source, size)
	}
}

func requestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
