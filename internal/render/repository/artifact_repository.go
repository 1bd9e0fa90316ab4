package repository

import (
	"context"
	"fmt"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/database"
	errprocess "github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/err"
)

// ArtifactRepo push finished videos to durable storage
type ArtifactRepo interface {
	Upload(ctx context.Context, localPath, objectKey, contentType string) (string, error)
}

type artifactRepo struct {
	minio database.MinIOClientRepo
}

// NewArtifactRepo create ArtifactRepo
func NewArtifactRepo(minio database.MinIOClientRepo) ArtifactRepo {
	return &artifactRepo{minio: minio}
}

// Upload put the local file at objectKey (overwriting any prior object, so
// a retried upload of the same bytes is safe) and resolve its public URL
func (r *artifactRepo) Upload(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	if err := r.minio.UploadFile(ctx, objectKey, localPath, contentType); err != nil {
		return "", errprocess.Set(fmt.Sprintf("objectKey[%s] upload artifact failed : %v", objectKey, err))
	}
	return r.minio.PublicURL(objectKey), nil
}
