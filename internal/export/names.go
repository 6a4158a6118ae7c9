package export

import (
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/osinthound/osinthound/internal/pipeline"
)

// ArtifactStem returns the default artifact path stem for a target:
// <dir>/<target>-<ulid>, no extension. Callers append ".json" or ".pdf"
// so both artifacts of one hunt share the stem and sort together.
func ArtifactStem(dir, target string) string {
	if dir == "" {
		dir = "reports"
	}
	id := strings.ToLower(ulid.Make().String())
	return filepath.Join(dir, pipeline.SanitizeTarget(target)+"-"+id)
}
