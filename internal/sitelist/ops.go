package sitelist

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// ApplyInputOperation transforms an identifier before templating it into a
// catalogue URL. Unknown operations pass the value through untouched, so new
// catalogue vocabularies degrade instead of failing.
func ApplyInputOperation(value, operation string) string {
	op := strings.ToLower(strings.TrimSpace(operation))

	switch op {
	case "", "identity", "none", "noop":
		return value
	case "lower":
		return strings.ToLower(value)
	case "strip":
		return strings.TrimSpace(value)
	case "urlencode", "url-encode", "url_encode":
		return url.QueryEscape(value)
	case "hash-md5", "md5":
		return fmt.Sprintf("%x", md5.Sum([]byte(value)))
	case "hash-sha1", "sha1":
		return fmt.Sprintf("%x", sha1.Sum([]byte(value)))
	case "hash-sha256", "sha256":
		return fmt.Sprintf("%x", sha256.Sum256([]byte(value)))
	default:
		return value
	}
}
