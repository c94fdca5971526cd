// Command importer reads a schedule or service spreadsheet and submits its
// rows to the bulk endpoints of a running API.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fieldops/internal/batch"
	"github.com/ukydev/fieldops/internal/export"
	"github.com/ukydev/fieldops/internal/handlers"
)

type target struct {
	method  string
	path    string
	field   string
	columns []batch.Column
}

var targets = map[string]target{
	"schedules":        {http.MethodPost, "/schedules/bulk", "schedules", batch.ScheduleColumns},
	"schedules-update": {http.MethodPut, "/schedules/bulk", "schedules", batch.ScheduleColumns},
	"services":         {http.MethodPost, "/services/bulk-import", "services", batch.ServiceColumns},
}

type client struct {
	apiURL string
	token  string
	http   *http.Client
}

// submit sends rows in one request and returns the decoded summary. lines
// holds the sheet row of each entry so the API reports errors against the
// workbook. A 400 carries the validation messages in the returned error.
func (c *client) submit(t target, rows []batch.Row, lines []int) (handlers.BulkResponse, error) {
	var out handlers.BulkResponse

	body := map[string]any{t.field: rows}
	if len(lines) > 0 {
		body["lines"] = lines
	}
	data, err := json.Marshal(body)
	if err != nil {
		return out, fmt.Errorf("failed to marshal rows: %w", err)
	}
	req, err := http.NewRequest(t.method, strings.TrimSuffix(c.apiURL, "/")+t.path, bytes.NewReader(data))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMultiStatus:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return out, fmt.Errorf("failed to decode response: %w", err)
		}
		return out, nil
	default:
		var e handlers.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return out, fmt.Errorf("import failed with status: %d", resp.StatusCode)
		}
		if len(e.Details) > 0 {
			return out, fmt.Errorf("%s: %s", e.Error, strings.Join(e.Details, "; "))
		}
		return out, errors.New(e.Error)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	file := fs.String("file", "", "xlsx workbook to import")
	kind := fs.String("kind", "schedules", "schedules, schedules-update or services")
	apiURL := fs.String("api", envOr("API_BASE_URL", "http://localhost:8080/api"), "API base URL")
	token := fs.String("token", os.Getenv("FIELDOPS_TOKEN"), "bearer token")
	timeout := fs.Duration("timeout", time.Minute, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, ok := targets[*kind]
	if !ok {
		return fmt.Errorf("unknown kind %q", *kind)
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, lines, err := export.ReadRows(f, t.columns)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"file": *file, "kind": *kind, "rows": len(rows)}).Info("Workbook read")

	c := &client{apiURL: *apiURL, token: *token, http: &http.Client{Timeout: *timeout}}
	res, err := c.submit(t, rows, lines)
	if err != nil {
		return err
	}

	log.WithField("count", res.Count).Info(res.Message)
	for _, msg := range res.Errors {
		log.Warn(msg)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.WithError(err).Fatal("Import failed")
	}
}
