package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/prompthub/internal/media"
	"github.com/starford/prompthub/internal/models"
)

const maxMediaSize = 100 << 20 // 100 MB

type attachResult struct {
	Media    []models.PromptMedia `json:"media"`
	Failures []string             `json:"failures,omitempty"`
}

func (s *Server) attachMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawID, err := req.RequireString("promptId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	promptID, err := uuid.Parse(rawID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid promptId: %s", rawID)), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	var ext string
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = decodeDataURI(rawURL)
	} else {
		data, ext, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ext == "" {
		ext = extFromURL(rawURL)
	}
	if ext == "" {
		ext = media.DetectFormat(data)
	}

	kind, ok := media.Formats[ext]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported media format: %q", ext)), nil
	}
	if t := optString(req, "type"); t != "" {
		kind = models.MediaType(t)
	}
	head := data
	if len(head) > media.SniffLen {
		head = head[:media.SniffLen]
	}
	if err := media.CheckContent(head, ext, kind); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tmp, err := os.CreateTemp("", "prompthub-mcp-*"+ext)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := tmp.Close(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	batch, err := s.svc.ImportMedia(ctx, promptID, kind, []string{tmp.Name()})
	if err != nil {
		return toolError(err), nil
	}
	res := attachResult{Media: batch.Media}
	for _, f := range batch.Failures {
		res.Failures = append(res.Failures, f.Reason)
	}
	if len(res.Media) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %s", strings.Join(res.Failures, "; "))), nil
	}
	out, _ := json.Marshal(res)
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxMediaSize {
		return nil, "", fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxMediaSize)
	}

	mime := strings.TrimSuffix(meta, ";base64")
	ext := media.ExtForMIME(mime)
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 2 * time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxMediaSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxMediaSize)
	}

	ct := resp.Header.Get("Content-Type")
	return data, media.ExtForMIME(ct), nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// extFromURL returns the lowercased extension of the URL path, if any.
func extFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(parsed.Path))
}
