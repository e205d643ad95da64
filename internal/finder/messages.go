package finder

import "nfxcode/internal/mailbox"

// FriendlyMessage maps a pipeline error to a sentence suitable for end
// users. Operator detail stays in the logs.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	if err == ErrNotFound {
		return "No recent Netflix verification email was found for that address."
	}
	kind, ok := mailbox.KindOf(err)
	if !ok {
		return "Something went wrong while checking the mailbox. Please try again."
	}
	switch kind {
	case mailbox.KindConfiguration:
		return "The mailbox connection is not configured. Check the settings and try again."
	case mailbox.KindAuthentication:
		return "Mailbox sign-in failed. The credentials may be incorrect or expired."
	case mailbox.KindQuota:
		return "The mailbox provider is rate limiting requests. Please try again in a minute."
	default:
		return "Could not reach the mailbox provider. Please try again."
	}
}
