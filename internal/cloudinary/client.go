// Package cloudinary stores note photos in Cloudinary through its signed
// upload API.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MaxImageBytes bounds a single photo.
const MaxImageBytes = 8 << 20

var (
	ErrNotImage = errors.New("only image uploads are allowed")
	ErrTooLarge = errors.New("image is too large")
)

// Config holds account credentials and upload defaults.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Tags      []string
}

// Client uploads images for one Cloudinary account.
type Client struct {
	cfg     Config
	BaseURL string
	HTTP    *http.Client
	now     func() time.Time
}

// New creates a client. Photos are tagged participant-note unless cfg sets
// its own tags.
func New(cfg Config) *Client {
	if len(cfg.Tags) == 0 {
		cfg.Tags = []string{"fsy", "participant-note"}
	}
	return &Client{
		cfg:     cfg,
		BaseURL: "https://api.cloudinary.com",
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

// UploadResult is the part of Cloudinary's response the portal uses.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// UploadDataURL uploads a "data:image/<type>;base64,..." URL as sent by the
// browser.
func (c *Client) UploadDataURL(ctx context.Context, data string) (*UploadResult, error) {
	if !strings.HasPrefix(data, "data:image/") {
		return nil, ErrNotImage
	}
	// base64 is 4/3 of the payload.
	if len(data)/4*3 > MaxImageBytes {
		return nil, ErrTooLarge
	}
	return c.upload(ctx, func(w *multipart.Writer) error {
		return w.WriteField("file", data)
	})
}

// UploadBytes uploads a raw image file. The content type is sniffed, not
// taken from the filename.
func (c *Client) UploadBytes(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, ErrNotImage
	}
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	return c.upload(ctx, func(w *multipart.Writer) error {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			return err
		}
		_, err = part.Write(data)
		return err
	})
}

func (c *Client) params() map[string]string {
	p := map[string]string{
		"api_key":   c.cfg.APIKey,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"tags":      strings.Join(c.cfg.Tags, ","),
	}
	if c.cfg.Folder != "" {
		p["folder"] = c.cfg.Folder
	}
	p["signature"] = c.sign(p)
	return p
}

func (c *Client) upload(ctx context.Context, writeFile func(*multipart.Writer) error) (*UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	params := c.params()
	for _, k := range slices.Sorted(maps.Keys(params)) {
		if err := w.WriteField(k, params[k]); err != nil {
			return nil, fmt.Errorf("cloudinary: %w", err)
		}
	}
	if err := writeFile(w); err != nil {
		return nil, fmt.Errorf("cloudinary: write file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.BaseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("cloudinary: decode response: %w", err)
	}
	return &result, nil
}

// sign is the hex SHA-1 of the sorted "k=v" pairs joined by "&" followed by
// the API secret. api_key, file and resource_type are not signed.
func (c *Client) sign(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		switch k {
		case "api_key", "file", "resource_type", "signature":
			continue
		}
		if v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	slices.Sort(pairs)
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.cfg.APISecret))
	return hex.EncodeToString(sum[:])
}
