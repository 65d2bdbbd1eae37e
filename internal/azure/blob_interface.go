package azure

import (
	"context"
)

// ExportArchive stores generated record exports so a user can fetch them again
type ExportArchive interface {
	UploadExport(ctx context.Context, userID, filename, contentType string, data []byte) (string, error)
	DownloadExport(ctx context.Context, blobName string) ([]byte, error)
}

var _ ExportArchive = (*BlobStorageClient)(nil)
var _ ExportArchive = (*MockBlobStorageClient)(nil)
