package export

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

// DriveUploader copies the audio artifact into a Google Drive folder.
type DriveUploader struct {
	svc        *drive.Service
	folderID   string
	httpClient *http.Client
	log        *logger.Logger
}

func NewDriveUploader(ctx context.Context, credentialsFile, folderID string, log *logger.Logger) (*DriveUploader, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &DriveUploader{
		svc:        svc,
		folderID:   folderID,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log.With("exporter", "google_drive"),
	}, nil
}

// Send fetches the stored audio and uploads it as a Drive file. The email
// argument is unused for this target.
func (d *DriveUploader) Send(ctx context.Context, audioURL, _ string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fetch artifact: status %d", resp.StatusCode)
	}

	file := &drive.File{
		Name:     path.Base(req.URL.Path),
		MimeType: "audio/mpeg",
	}
	if d.folderID != "" {
		file.Parents = []string{d.folderID}
	}

	created, err := d.svc.Files.Create(file).Media(resp.Body).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drive upload: %w", err)
	}

	d.log.Info("audio uploaded to drive", "file_id", created.Id, "name", created.Name)
	return nil
}
