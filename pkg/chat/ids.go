package chat

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
)

// directNamespace scopes the UUIDv5 ids of direct conversations.
var directNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wavechat:direct-conversation"))

// DirectConversationID derives a stable id for the conversation between
// exactly these members, independent of their order or letter case.
func DirectConversationID(members ...string) string {
	seen := make(map[string]struct{}, len(members))
	norm := make([]string, 0, len(members))
	for _, m := range members {
		m = keystore.NormalizeIdentity(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		norm = append(norm, m)
	}
	sort.Strings(norm)
	return uuid.NewSHA1(directNamespace, []byte(strings.Join(norm, "\n"))).String()
}

// NewConversationID returns a random id for a group conversation.
func NewConversationID() string {
	return uuid.NewString()
}
