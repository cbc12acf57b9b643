package ledger

import (
	"strconv"
	"strings"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// Separator joins key components. Identifiers may not contain any colon, so
// "alice:" can never produce a key under the "alice::" scan prefix.
const Separator = "::"

const (
	versionKey         = "version"
	profilePrefix      = "profile::"
	contactPrefix      = "contact::"
	conversationPrefix = "conversation::"
	memberPrefix       = "member::"
	counterPrefix      = "counter::"
	messagePrefix      = "message::"
)

func profileKey(address string) string {
	return profilePrefix + address
}

func contactScanPrefix(owner string) string {
	return contactPrefix + owner + Separator
}

func contactKey(owner, peer string) string {
	return contactScanPrefix(owner) + peer
}

func conversationKey(id string) string {
	return conversationPrefix + id
}

func memberScanPrefix(identity string) string {
	return memberPrefix + identity + Separator
}

func memberKey(identity, conversationID string) string {
	return memberScanPrefix(identity) + conversationID
}

func counterKey(conversationID string) string {
	return counterPrefix + conversationID
}

func messageKey(conversationID string, id uint64) string {
	return messagePrefix + conversationID + Separator + strconv.FormatUint(id, 10)
}

// checkIdentifier rejects empty identifiers and ones that would break key
// namespacing.
func checkIdentifier(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(field, field+" is required", value)
	}
	if strings.Contains(value, ":") {
		return apperrors.NewValidationError(field, field+" must not contain ':'", value)
	}
	return nil
}
