package googleDriveApi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackupName(t *testing.T) {
	ts := time.Date(2024, 3, 4, 15, 30, 5, 0, time.FixedZone("CST", 8*3600))

	name := BackupName(ts)

	assert.Equal(t, "portfolio-backup-20240304-073005.json", name)
	assert.True(t, strings.HasPrefix(name, backupPrefix))
}
