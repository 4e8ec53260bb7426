package drive_test

import (
	"context"
	"os"
	"testing"

	"nest_sales_sync/internal/drive"
)

func TestNewClient(t *testing.T) {
	path := os.Getenv("CREDENTIALS_FILE")
	if path == "" {
		path = "../testdata/credentials.json"
	}
	if _, err := os.Stat(path); err != nil {
		t.Skipf("credentials file %s not available; skipping live test", path)
	}
	folderID := os.Getenv("DRIVE_FOLDER_ID")
	if folderID == "" {
		t.Skip("DRIVE_FOLDER_ID not set; skipping live test")
	}

	client, err := drive.NewClient(context.Background(), path, folderID)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client == nil {
		t.Fatal("Client is nil")
	}
}
