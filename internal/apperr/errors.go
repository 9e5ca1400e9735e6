package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNoProviders        = errors.New("no OCR providers available")
	ErrAllProvidersFailed = errors.New("all OCR providers failed")
	ErrUnsupportedImage   = errors.New("unsupported image format")
)
