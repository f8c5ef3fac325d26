package bot

import "fmt"

// DeliveryError is a failure while handing a downloaded file to Telegram.
// Archive marks failures on the dump-channel copy, which never fail the
// user-facing delivery.
type DeliveryError struct {
	Archive bool
	Cause   error
}

func (e *DeliveryError) Error() string {
	if e.Archive {
		return fmt.Sprintf("archive delivery failed: %v", e.Cause)
	}
	return fmt.Sprintf("delivery failed: %v", e.Cause)
}

func (e *DeliveryError) Unwrap() error { return e.Cause }
