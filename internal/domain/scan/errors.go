package scan

import "errors"

var (
	ErrFileTooLarge      = errors.New("scan file exceeds the maximum allowed size")
	ErrUnsupportedFormat = errors.New("scan file format is not allow-listed")
	ErrPayloadIntegrity  = errors.New("decoded payload length does not match the declared file size")
	ErrTransferTimeout   = errors.New("scan transfer timed out")
	ErrStorageWrite      = errors.New("scan storage write failed")
	ErrInvalidTransition = errors.New("invalid upload state transition")
)
