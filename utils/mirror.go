package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DownloadImage fetches one image URL and returns its bytes and content type.
func DownloadImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("bad status: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// MirrorImagesToS3 downloads images from URLs and uploads them to S3.
// Returns a map of Original URL -> S3 Object Key. Individual failures are
// logged and skipped so one dead link doesn't sink the batch.
func MirrorImagesToS3(ctx context.Context, urls []string, folderPrefix string) (map[string]string, error) {
	urlToKey := make(map[string]string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Limit concurrency
	semaphore := make(chan struct{}, 5)

	for i, url := range urls {
		if url == "" {
			continue
		}
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			filename := filepath.Base(url)
			if strings.Contains(filename, "?") {
				filename = strings.Split(filename, "?")[0]
			}
			if filename == "" || len(filename) > 255 {
				filename = fmt.Sprintf("image_%d.jpg", i)
			}
			// ensure unique names
			filename = fmt.Sprintf("%d_%s", time.Now().UnixNano(), filename)
			objectKey := fmt.Sprintf("%s/%s", folderPrefix, filename)

			data, contentType, err := DownloadImage(ctx, url)
			if err != nil {
				fmt.Printf("Failed to download %s: %v\n", url, err)
				return
			}
			if _, err := UploadFileToS3(ctx, bytes.NewReader(data), objectKey, contentType); err != nil {
				fmt.Printf("Failed to upload %s: %v\n", url, err)
				return
			}

			mu.Lock()
			urlToKey[url] = objectKey
			mu.Unlock()
		}(i, url)
	}

	wg.Wait()
	return urlToKey, nil
}
