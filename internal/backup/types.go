package backup

import (
	"context"
	"time"
)

// Config controls periodic snapshots of the trace database.
type Config struct {
	Enabled   bool
	Interval  time.Duration // time between snapshots
	LocalDir  string        // where snapshot files accumulate
	KeepLast  int           // local snapshots retained after pruning
	BucketURL string        // s3://bucket[/prefix]; empty disables upload

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3UseSSL       bool
}

// Snapshotter is what the Manager needs from the trace store: the path of
// the database file and a way to write a consistent copy of it.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}

// Uploader ships one snapshot file off-host.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
