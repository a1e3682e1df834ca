// Package cloudinary is a minimal client for the Cloudinary upload API,
// covering the two operations the catalog needs: upload a local file into
// the configured upload directory and destroy a stored object by public id.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/swasher/productus/internal/domain"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// Config holds the account credentials and the logical upload directory all
// catalog media lives under.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	UploadDir string
}

// Client implements domain.MediaStore against the Cloudinary HTTP API.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Cloudinary media store client.
func NewClient(config Config) *Client {
	return &Client{
		config:  config,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload pushes the file at localPath into the upload directory and returns
// the stored object's secure URL.
func (c *Client) Upload(ctx context.Context, localPath string) (domain.UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"folder":    c.config.UploadDir,
		"timestamp": timestamp,
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return domain.UploadResult{}, fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if err := writer.WriteField("api_key", c.config.APIKey); err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.WriteField("signature", c.sign(params)); err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to write form field: %w", err)
	}

	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	if err := writer.Close(); err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to finalize form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.config.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.UploadResult{}, fmt.Errorf("failed to decode upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.UploadResult{}, fmt.Errorf("upload rejected (%d): %s", resp.StatusCode, result.Error.Message)
	}
	if result.SecureURL == "" {
		return domain.UploadResult{}, fmt.Errorf("upload response missing secure_url")
	}

	return domain.UploadResult{SecureURL: result.SecureURL}, nil
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Destroy removes the stored object addressed by publicID. Any result other
// than "ok" counts as failure, matching how the catalog treats deletions.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}

	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}
	form.Set("api_key", c.config.APIKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.baseURL, c.config.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("destroy request failed: %w", err)
	}
	defer resp.Body.Close()

	var result destroyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode destroy response: %w", err)
	}

	if result.Result != "ok" {
		return fmt.Errorf("%w: %s (%s)", domain.ErrMediaDeleteFailed, publicID, result.Result)
	}

	return nil
}

// sign produces the request signature: parameters sorted by name, joined as
// a query string, with the API secret appended, hashed with SHA-1.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.config.APISecret))
	return hex.EncodeToString(sum[:])
}
