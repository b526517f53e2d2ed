package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultHubBaseURL = "https://huggingface.co"

// snapshotFiles are the artifacts the embedder needs from the model repo,
// repo-relative. The layout is preserved under the local cache directory.
var snapshotFiles = []string{
	"onnx/model.onnx",
	"vocab.txt",
}

// HubDownloader fetches model artifacts from the Hugging Face hub into a
// local directory. Downloads are written to a temp file and renamed so a
// crashed download never leaves a truncated artifact behind.
type HubDownloader struct {
	baseURL    string
	httpClient *http.Client
}

func NewHubDownloader() *HubDownloader {
	return &HubDownloader{
		baseURL:    defaultHubBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Snapshot downloads every required artifact of repoID into dir.
func (d *HubDownloader) Snapshot(ctx context.Context, repoID, dir string) error {
	for _, file := range snapshotFiles {
		if err := d.fetchFile(ctx, repoID, file, dir); err != nil {
			return fmt.Errorf("download %s from %s failed: %w", file, repoID, err)
		}
	}
	return nil
}

func (d *HubDownloader) fetchFile(ctx context.Context, repoID, file, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create artifact dir failed: %w", err)
	}

	url := strings.TrimRight(d.baseURL, "/") + "/" + repoID + "/resolve/main/" + file
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build hub request failed: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub response status %d for %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".download-*")
	if err != nil {
		return fmt.Errorf("create temp artifact failed: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact failed: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize artifact failed: %w", err)
	}
	return nil
}
