package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dumper writes failed HTTP exchanges to a debug directory so broken site
// markup or blocking responses can be inspected after the fact. The
// directory is only created when the first dump is written.
type Dumper struct {
	dir string
	log *slog.Logger
}

// NewDumper creates a dumper writing into dir.
func NewDumper(dir string, log *slog.Logger) *Dumper {
	if log == nil {
		log = slog.Default()
	}
	return &Dumper{dir: dir, log: log}
}

// DumpFailure records one failed exchange. Safe on a nil receiver and
// safe for concurrent use: every dump gets a unique filename.
func (d *Dumper) DumpFailure(req *http.Request, resp *http.Response, body []byte, cause error) {
	if d == nil {
		return
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		d.log.Error("cannot create debug dump directory", "dir", d.dir, "error", err)
		return
	}

	name := fmt.Sprintf("debug_%s_%s.txt", time.Now().Format("20060102_150405"), uuid.NewString())
	path := filepath.Join(d.dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "cause: %v\n", cause)
	if req != nil {
		fmt.Fprintf(&b, "request: %s %s\n", req.Method, req.URL)
		for k, vals := range req.Header {
			fmt.Fprintf(&b, "  %s: %s\n", k, strings.Join(vals, ", "))
		}
	}
	if resp != nil {
		fmt.Fprintf(&b, "status: %s\n", resp.Status)
		for k, vals := range resp.Header {
			fmt.Fprintf(&b, "  %s: %s\n", k, strings.Join(vals, ", "))
		}
	}
	b.WriteString(strings.Repeat("-", 80) + "\n")
	if body != nil {
		b.Write(body)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		d.log.Error("cannot write debug dump", "path", path, "error", err)
		return
	}
	d.log.Debug("debug dump written", "path", path)
}
