package imaging

// Error is an image processing failure with a machine-readable code
type Error struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Image processing error codes
const (
	CodeInvalidImage      = "INVALID_IMAGE"
	CodeImageTooLarge     = "IMAGE_TOO_LARGE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeProcessingError   = "PROCESSING_ERROR"
)

// allowedContentTypes maps sniffed MIME types to acceptance.
// JPEG, PNG, BMP and WebP are supported; everything else is rejected.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/bmp":  true,
	"image/webp": true,
}
