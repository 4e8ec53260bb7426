package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Client uploads run artifacts into a fixed Drive folder.
type Client struct {
	service  *drive.Service
	folderID string
}

func NewClient(ctx context.Context, credentialsFile, folderID string) (*Client, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{
		service:  service,
		folderID: folderID,
	}, nil
}

// UploadPNG uploads the PNG at path into the client's folder, makes it
// readable by anyone with the link and returns the shareable view link.
func (c *Client) UploadPNG(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	meta := &drive.File{
		Name:     filepath.Base(path),
		Parents:  []string{c.folderID},
		MimeType: "image/png",
	}
	created, err := c.service.Files.Create(meta).
		Media(f).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}

	permission := &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}
	if _, err := c.service.Permissions.Create(created.Id, permission).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to share uploaded file: %w", err)
	}

	return created.WebViewLink, nil
}
