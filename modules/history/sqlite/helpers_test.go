package sqlite_test

import (
	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
)

func configSnapshot(hash string) configsync.Snapshot {
	return configsync.Snapshot{
		Document: confdoc.Document{"gateway": map[string]any{"bind": "loopback"}},
		Hash:     hash,
	}
}
