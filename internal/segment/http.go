package segment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// maxReplyBytes bounds the size of an oracle reply.
const maxReplyBytes = 512 << 20

// HTTPRemover calls a rembg server (started with `rembg s`).
//
// The image is sent as the multipart form field "file" to <BaseURL>/api/remove
// and the PNG reply body is returned as-is.
type HTTPRemover struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRemover creates a remover for the server at baseURL. A zero timeout
// means requests are only bounded by the caller's context.
func NewHTTPRemover(baseURL string, timeout time.Duration) *HTTPRemover {
	return &HTTPRemover{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Remove implements Remover.
func (h *HTTPRemover) Remove(ctx context.Context, png []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/api/remove", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rembg server unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read rembg reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("rembg server returned %s: %s", resp.Status, msg)
	}
	return data, nil
}
