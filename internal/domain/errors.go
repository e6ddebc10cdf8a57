package domain

import "errors"

// Input errors are caller-correctable; extraction errors mean the external
// capability ran but produced nothing usable. Neither ever results in a
// partially persisted transaction.
var (
	ErrUnsupportedAudioFormat = errors.New("unsupported audio format")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrTranscriptionFailed    = errors.New("transcription failed")
	ErrNoTransactionFound     = errors.New("no transaction found in input")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrNoAccount              = errors.New("user has no account to book the transaction against")
	ErrNotFound               = errors.New("record not found")
)
