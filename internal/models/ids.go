package models

import (
	"strings"

	"github.com/google/uuid"
)

var blockNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/julianstephens/rhythm/blocks"))

// BlockID derives a stable block id from its parts, so that generating the
// same day twice yields the same ids.
func BlockID(parts ...string) string {
	return uuid.NewSHA1(blockNamespace, []byte(strings.Join(parts, "/"))).String()
}
