// Package restyutil writes the http exchanges of a resty client to disk, so that a page
// that parsed badly can be looked at later.
package restyutil

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives one rendered exchange per response.
type Output interface {
	Write(name string, contents string)
}

// DirOutput writes every exchange into its own file inside a directory.
type DirOutput struct {
	directory string
}

func NewDirOutput(dir string) (DirOutput, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return DirOutput{}, fmt.Errorf("create dump directory: %w", err)
	}
	return DirOutput{directory: dir}, nil
}

func (o DirOutput) Write(name string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0644)
	if err != nil {
		slog.Warn("failed to write http dump", "name", name, "err", err)
	}
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

// 1: request method
// 2: request url
// 3: request headers
// 4: response status
// 5: response headers
// 6: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

---- RESPONSE ----

%d

%s

%s`

// FormatExchange renders the request and the response of `res` as plain text.
func FormatExchange(res *resty.Response) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}
	return fmt.Sprintf(
		exchangeTemplate,
		res.Request.Method, res.Request.URL,
		requestHeaders,
		res.StatusCode(),
		formatHeaders(res.Header()),
		res.String(),
	)
}

var unsafeNameRegex = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileName(id uint64, rawUrl string) string {
	base := path.Base(strings.SplitN(rawUrl, "?", 2)[0])
	base = unsafeNameRegex.ReplaceAllString(base, "_")
	return fmt.Sprintf("%04d-%s.txt", id, base)
}

// Dump writes every response received by `client` to `output`. Files are numbered in the
// order the responses arrive and named after the last segment of the request url.
func Dump(client *resty.Client, output Output) {
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&counter, 1)
		output.Write(fileName(id, res.Request.URL), FormatExchange(res))
		return nil
	})
}
