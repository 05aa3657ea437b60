package domain

import "errors"

var (
	// ErrEmptyDocument is returned when both title and content are blank.
	ErrEmptyDocument = errors.New("please add a title or content to generate PDF")
	// ErrInvalidDataURI signals a logo or image that is not a base64 image data URI.
	ErrInvalidDataURI = errors.New("invalid image data uri")
	// ErrUnsupportedImage signals an image format the active engine cannot embed.
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrUnsupportedText signals title or content the active engine cannot print.
	ErrUnsupportedText = errors.New("unsupported characters")
	// ErrAssetEncode signals a local file that could not be read or encoded.
	ErrAssetEncode = errors.New("asset encoding failed")
	// ErrGenerationInProgress rejects a submission while another one is in flight.
	ErrGenerationInProgress = errors.New("generation already in progress")
	// ErrGenerationFailed is the generic failure surfaced to users.
	ErrGenerationFailed = errors.New("failed to generate PDF")
	// ErrInvalidPDF signals an empty or non-PDF renderer output.
	ErrInvalidPDF = errors.New("invalid PDF output")
	// ErrTooManyImages rejects a request above the configured image count.
	ErrTooManyImages = errors.New("too many images")
	// ErrPDFTooLarge rejects renderer output above the configured size.
	ErrPDFTooLarge = errors.New("PDF exceeds allowed size")
	// ErrDocumentNotFound signals a revoked or expired viewer handle.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that the token store has not been loaded yet.
	// This can happen during startup when the DB isn't ready.
	ErrTokenStoreNotReady = errors.New("token store not ready")
)
