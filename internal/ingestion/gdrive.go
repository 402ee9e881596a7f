package ingestion

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// LoadDriveFiles downloads every supported document from a Google Drive
// folder into a temp directory and returns the local paths. The caller
// supplies an OAuth2 access token with Drive read scope.
func LoadDriveFiles(ctx context.Context, folderID, accessToken string) ([]string, error) {
	config := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveReadonlyScope},
	}
	token := &oauth2.Token{AccessToken: accessToken}
	client := config.Client(ctx, token)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	list, err := srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		Fields("files(id, name, mimeType)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list Drive folder: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "constitution_drive")
	if err != nil {
		return nil, err
	}

	var out []string
	for _, f := range list.Files {
		if !supported(f.Name) {
			continue
		}
		local := filepath.Join(tmpDir, f.Name)
		if err := downloadDriveFile(srv, f.Id, local); err != nil {
			return nil, fmt.Errorf("download %s: %w", f.Name, err)
		}
		out = append(out, local)
	}
	return out, nil
}

func downloadDriveFile(srv *drive.Service, fileID, dest string) error {
	resp, err := srv.Files.Get(fileID).Download()
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}
