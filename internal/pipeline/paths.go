package pipeline

import (
	"path"
	"path/filepath"
	"strconv"

	"seqwork/internal/worktype"
)

// Staging layout per instance: <staging_root>/<id>/input holds the
// downloaded dataset, <staging_root>/<id>/output collects analysis results.

func stagingDir(stagingRoot string, id int64) string {
	return filepath.Join(stagingRoot, strconv.FormatInt(id, 10))
}

func stagingInputDir(stagingRoot string, id int64) string {
	return filepath.Join(stagingDir(stagingRoot, id), "input")
}

func stagingOutputDir(stagingRoot string, id int64) string {
	return filepath.Join(stagingDir(stagingRoot, id), "output")
}

// archivePath disambiguates results by work type and instance id so repeated
// runs over one dataset never collide.
func archivePath(archiveRoot string, workType worktype.Type, id int64) string {
	return path.Join(archiveRoot, string(workType), strconv.FormatInt(id, 10))
}
