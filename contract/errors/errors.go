package errors

// Error codes for message building and sending. Keep stable; used across adapters and messaging.
const (
	ErrCodeInvalidInput        = "stomp.invalid_input"
	ErrCodeSendFailed          = "stomp.send_failed"
	ErrCodeSerializationFailed = "stomp.serialization_failed"
	ErrCodeSenderNotConfigured = "stomp.sender_not_configured"
	ErrCodeDestinationMissing  = "stomp.destination_missing"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrInvalidInput        = Code(ErrCodeInvalidInput)
	ErrSendFailed          = Code(ErrCodeSendFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrSenderNotConfigured = Code(ErrCodeSenderNotConfigured)
	ErrDestinationMissing  = Code(ErrCodeDestinationMissing)
)
