package files

import (
	"errors"

	"lite-drive/internal/quota"
)

var (
	ErrQuotaExceeded           = quota.ErrQuotaExceeded
	ErrStorageWriteFailed      = errors.New("storage write failed")
	ErrStorageReadFailed       = errors.New("storage read failed")
	ErrRecordPersistFailed     = errors.New("file record could not be saved")
	ErrNotFound                = errors.New("file not found")
	ErrPreviewGenerationFailed = errors.New("preview generation failed")
	ErrInvalidFilename         = errors.New("invalid filename")
	ErrAccountDisabled         = errors.New("account is disabled")
)
