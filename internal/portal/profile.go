package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// UploadProfilePicture sends the image at path as the user's profile
// picture and returns the stored picture URL.
func (c *Client) UploadProfilePicture(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("profile_picture", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	body, _, err := c.do(
		ctx, http.MethodPost, "/api/update-profile-picture",
		w.FormDataContentType(), buf.Bytes(),
	)
	if err != nil {
		return "", fmt.Errorf("uploading profile picture: %w", err)
	}

	var resp struct {
		ProfilePicture string `json:"profile_picture"`
		URL            string `json:"url"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decoding upload response: %w", err)
		}
	}
	if resp.ProfilePicture != "" {
		return resp.ProfilePicture, nil
	}
	return resp.URL, nil
}
