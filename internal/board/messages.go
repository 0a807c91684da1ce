package board

import "github.com/erazemk/najdeno/internal/model"

const genericMsg = "Something went wrong. Please try again."

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := model.Message(err); msg != "" {
		return msg
	}
	switch model.KindOf(err) {
	case model.KindInvalidInput:
		return "Please check the form and try again."
	case model.KindCompressionFailed:
		return "Failed to compress image. Please try a different image."
	case model.KindUnavailable:
		return "The board is temporarily unavailable. Please try again."
	case model.KindPermissionDenied:
		return "Permission denied. Please make sure you're signed in as an admin."
	case model.KindNotFound:
		return "This item no longer exists."
	default:
		return genericMsg
	}
}
