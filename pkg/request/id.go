package request

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns prefix_xxxxxxxxxxxx with a random suffix.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return raw[:16]
	}
	return prefix + "_" + raw[:16]
}
