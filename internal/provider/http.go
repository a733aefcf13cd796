package provider

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptEncoding はプロバイダーに提示する圧縮方式。
// 明示的に指定するとnet/httpの自動展開が無効になるため、decodeBodyで展開する。
const acceptEncoding = "gzip, br"

// checkStatus はHTTPステータスコードを分類し、2xx以外をErrStatusとして返す。
func checkStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %d (rate limited by provider)", ErrStatus, statusCode)
	case statusCode >= 500:
		return fmt.Errorf("%w: %d (provider unavailable)", ErrStatus, statusCode)
	default:
		return fmt.Errorf("%w: %d", ErrStatus, statusCode)
	}
}

// do はリクエストを送信し、展開済みのレスポンスボディを返す。
// 読み取りサイズはopts.MaxBodySizeで制限する。
func do(req *http.Request, name string, opts Options) ([]byte, error) {
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	opts.Metrics.RecordHTTPStatus(name, resp.StatusCode)
	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"), opts.MaxBodySize)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// decodeBody はContent-Encodingに応じてボディを展開する。
// 上限は展開後のサイズに対して適用する。
func decodeBody(r io.Reader, contentEncoding string, maxBodySize int64) ([]byte, error) {
	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		reader = r
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrPayload, err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(r)
	default:
		return nil, fmt.Errorf("%w: unsupported content encoding %q", ErrPayload, contentEncoding)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	return body, nil
}

// decodeJSON はJSONボディをvにデコードする。
func decodeJSON(body []byte, v any) error {
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrPayload, err)
	}
	return nil
}
