package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	backupPrefix   = "portfolio-backup-"
	backupMimeType = "application/json"
)

type GoogleDriveApi struct {
	srv *drive.Service
	ttl time.Duration
	now func() time.Time
}

func New(ctx context.Context, cfg *config.Config) (*GoogleDriveApi, error) {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("drive.NewService: %w", err)
	}
	return &GoogleDriveApi{srv: srv, ttl: cfg.GoogleDrive.FileTTL, now: time.Now}, nil
}

// BackupName is the drive file name used for a backup taken at t.
func BackupName(t time.Time) string {
	return backupPrefix + t.UTC().Format("20060102-150405") + ".json"
}

// UploadBackup stores an exported portfolio document and returns the drive file id.
// Uploaded files stay private to the service account.
func (a *GoogleDriveApi) UploadBackup(ctx context.Context, reader io.Reader) (fileID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadBackup"
	filename := BackupName(a.now())

	slog.Debug("UploadBackup start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	uploaded, err := a.srv.Files.
		Create(&drive.File{Name: filename, MimeType: backupMimeType}).
		Media(reader).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading backup to google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadBackup completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploaded.Id))

	return uploaded.Id, nil
}

// PruneBackups deletes backups older than the configured ttl. Files not created by
// UploadBackup are left alone.
func (a *GoogleDriveApi) PruneBackups(ctx context.Context) (deleted int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.PruneBackups"

	slog.Debug("PruneBackups start", slog.String("rqID", rqID), slog.String("op", op))

	list, err := a.srv.Files.List().
		Q(fmt.Sprintf("name contains '%s' and trashed = false", backupPrefix)).
		Fields("files(id, name, createdTime)").
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on listing backups", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	cutoff := a.now().Add(-a.ttl)
	for _, f := range list.Files {
		if !strings.HasPrefix(f.Name, backupPrefix) {
			continue
		}
		createdTime, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			slog.Warn("failed parse time", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", f.Id), slog.String("createdTime", f.CreatedTime))
			continue
		}
		if !createdTime.Before(cutoff) {
			continue
		}
		if err = a.srv.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			slog.Error("failed delete backup", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", f.Id), slog.String("err", err.Error()))
			continue
		}
		deleted++
	}

	slog.Info("prune backups done", slog.String("rqID", rqID), slog.Int("deleted", deleted), slog.Int("remaining", len(list.Files)-deleted))

	return deleted, nil
}
