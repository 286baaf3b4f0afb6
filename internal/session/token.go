package session

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// canonicalTokenLen is the length of canonical 8-4-4-4-12 UUID text.
const canonicalTokenLen = 36

var errNotToken = errors.New("reply is not a session token")

// ParseToken validates a login reply as a session credential. The server
// sends either canonical UUID text or an arbitrary error string; surrounding
// whitespace is ignored.
func ParseToken(reply string) (string, error) {
	reply = strings.TrimSpace(reply)
	if len(reply) != canonicalTokenLen {
		return "", errNotToken
	}
	if _, err := uuid.Parse(reply); err != nil {
		return "", errNotToken
	}
	return reply, nil
}
