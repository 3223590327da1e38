package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"mediaforge/internal/config"
	"mediaforge/internal/queue"
)

const userAgent = "Mediaforge-Go/0.1.0"

// ErrNotConfigured is returned when no upload endpoint is configured.
var ErrNotConfigured = errors.New("upload endpoint not configured")

// Request carries everything the remote endpoint needs for one attempt.
type Request struct {
	File           string
	MimeType       string
	BlurHash       string
	DominantColor  string
	AdditionalJSON string
	Thumbnails     map[string]string // size name -> local path
	// AttachmentID targets an existing attachment; zero means create new.
	AttachmentID int64
}

// Client defines the remote attachment surface used by the upload stage.
type Client interface {
	// UploadToServer creates a new attachment from the request's file.
	UploadToServer(ctx context.Context, req Request) (queue.Attachment, error)
	// SideloadToServer replaces the payload of an existing attachment,
	// used by the optimize, mute, and subtitle pipelines.
	SideloadToServer(ctx context.Context, req Request) (queue.Attachment, error)
}

// NewClient builds an HTTP client for the configured endpoint. With no
// endpoint configured every call fails with ErrNotConfigured, which keeps
// offline runs (validate and transcode only) usable.
func NewClient(cfg *config.Config) Client {
	endpoint := strings.TrimSpace(cfg.Upload.Endpoint)
	if endpoint == "" {
		return unconfiguredClient{}
	}
	timeout := time.Duration(cfg.Upload.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &httpClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    strings.TrimSpace(cfg.Upload.AuthToken),
		client:   &http.Client{Timeout: timeout},
	}
}

type httpClient struct {
	endpoint string
	token    string
	client   *http.Client
}

func (c *httpClient) UploadToServer(ctx context.Context, req Request) (queue.Attachment, error) {
	return c.send(ctx, c.endpoint+"/attachments", req)
}

func (c *httpClient) SideloadToServer(ctx context.Context, req Request) (queue.Attachment, error) {
	if req.AttachmentID == 0 {
		return queue.Attachment{}, errors.New("sideload requires an attachment id")
	}
	return c.send(ctx, fmt.Sprintf("%s/attachments/%d/sideload", c.endpoint, req.AttachmentID), req)
}

func (c *httpClient) send(ctx context.Context, url string, req Request) (queue.Attachment, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return queue.Attachment{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return queue.Attachment{}, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Content-Type", contentType)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return queue.Attachment{}, fmt.Errorf("send upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return queue.Attachment{}, fmt.Errorf("upload endpoint returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var attachment queue.Attachment
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&attachment); err != nil {
		return queue.Attachment{}, fmt.Errorf("decode upload response: %w", err)
	}
	return attachment, nil
}

// encodeMultipart builds the multipart body in memory. Working files have
// already passed the size limit check, so buffering is bounded.
func encodeMultipart(req Request) (io.Reader, string, error) {
	if strings.TrimSpace(req.File) == "" {
		return nil, "", errors.New("upload requires a file")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writeFilePart(writer, "file", req.File); err != nil {
		return nil, "", err
	}
	if req.MimeType != "" {
		if err := writer.WriteField("mimeType", req.MimeType); err != nil {
			return nil, "", err
		}
	}
	if req.BlurHash != "" {
		if err := writer.WriteField("blurHash", req.BlurHash); err != nil {
			return nil, "", err
		}
	}
	if req.DominantColor != "" {
		if err := writer.WriteField("dominantColor", req.DominantColor); err != nil {
			return nil, "", err
		}
	}
	if strings.TrimSpace(req.AdditionalJSON) != "" {
		if err := writer.WriteField("additionalData", req.AdditionalJSON); err != nil {
			return nil, "", err
		}
	}
	if req.AttachmentID != 0 {
		if err := writer.WriteField("attachmentId", strconv.FormatInt(req.AttachmentID, 10)); err != nil {
			return nil, "", err
		}
	}

	// Deterministic part order keeps request logs diffable.
	names := make([]string, 0, len(req.Thumbnails))
	for name := range req.Thumbnails {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeFilePart(writer, "thumbnail:"+name, req.Thumbnails[name]); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy %s: %w", field, err)
	}
	return nil
}

type unconfiguredClient struct{}

func (unconfiguredClient) UploadToServer(context.Context, Request) (queue.Attachment, error) {
	return queue.Attachment{}, ErrNotConfigured
}

func (unconfiguredClient) SideloadToServer(context.Context, Request) (queue.Attachment, error) {
	return queue.Attachment{}, ErrNotConfigured
}

var (
	_ Client = (*httpClient)(nil)
	_ Client = unconfiguredClient{}
)
