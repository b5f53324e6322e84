package reach

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsumerMessage(t *testing.T) {
	require.Equal(t,
		"The card you provided has expired, please provide alternative card details.",
		ConsumerMessage("CardExpired"))

	// unmapped messages pass through unchanged
	require.Equal(t, "SomethingNew", ConsumerMessage("SomethingNew"))
}

func TestConsumerMessageStashWarnings(t *testing.T) {
	require.Equal(t,
		"Oops! Is that the correct number on your card? Please try entering the number again.",
		ConsumerMessage(stashErrorPrefix+"CardNumberInvalid"))

	// stash warnings without a shopper message pass through unchanged
	require.Equal(t,
		stashErrorPrefix+"CardHolderInvalid",
		ConsumerMessage(stashErrorPrefix+"CardHolderInvalid"))
}

func TestNoteForOrderState(t *testing.T) {
	require.Equal(t, "Payment has completed successfully.", NoteForOrderState("Processed", ""))
	require.Equal(t, "Notification: The order has been cancelled.", NoteForOrderState("Cancelled", "Notification: "))
	require.Equal(t, "Invalid OrderState", NoteForOrderState("Bogus", ""))
}
