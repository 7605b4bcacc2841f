// Package builtin provides a small set of ready-made tools built on
// tools.FromFunc, useful for wiring a Router together without hand-writing
// schemas for common operations.
package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kestrelhq/conduct/tools"
)

// CalculatorArgs is the FromFunc argument struct for Calculator.
type CalculatorArgs struct {
	Expression string `json:"expression" desc:"an arithmetic expression, e.g. (2 + 3) * 4"`
}

// Calculator evaluates a restricted arithmetic expression over +, -, *, /
// and parentheses.
func Calculator() tools.Tool {
	return tools.FromFunc("calculator", "Evaluates an arithmetic expression.", func(ctx context.Context, args CalculatorArgs) (string, error) {
		result, err := evalExpr(args.Expression)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%g", result), nil
	})
}

// ReadFileArgs is the FromFunc argument struct for ReadFile.
type ReadFileArgs struct {
	Path string `json:"path" desc:"filesystem path to read"`
}

// ReadFile returns the contents of a file on disk.
func ReadFile() tools.Tool {
	return tools.FromFunc("read_file", "Reads the contents of a file.", func(ctx context.Context, args ReadFileArgs) (string, error) {
		data, err := os.ReadFile(args.Path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
}

// WriteFileArgs is the FromFunc argument struct for WriteFile.
type WriteFileArgs struct {
	Path    string `json:"path" desc:"filesystem path to write"`
	Content string `json:"content" desc:"content to write"`
}

// WriteFile writes content to a file on disk, creating or truncating it.
func WriteFile() tools.Tool {
	return tools.FromFunc("write_file", "Writes content to a file.", func(ctx context.Context, args WriteFileArgs) (string, error) {
		if err := os.WriteFile(args.Path, []byte(args.Content), 0644); err != nil {
			return "", err
		}
		return fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path), nil
	})
}

// HTTPGetArgs is the FromFunc argument struct for HTTPGet.
type HTTPGetArgs struct {
	URL string `json:"url" desc:"URL to fetch"`
}

// HTTPGet performs an HTTP GET and returns the response body, truncated to
// 8KB to keep tool results bounded inside a conversation turn.
func HTTPGet() tools.Tool {
	client := &http.Client{Timeout: 15 * time.Second}
	return tools.FromFunc("http_get", "Fetches a URL over HTTP GET.", func(ctx context.Context, args HTTPGetArgs) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, body), nil
	})
}
