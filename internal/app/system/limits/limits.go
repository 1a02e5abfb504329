// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps any JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxMessageText caps the length of one message after sanitizing.
	MaxMessageText = 4000

	// MaxAttachments caps the attachment references on one message.
	MaxAttachments = 10
)
