package supplyparser

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

type sourceServer struct {
	*httptest.Server
	page     string
	workbook []byte
	status   int
}

func newSourceServer(t *testing.T, page string, workbook []byte) *sourceServer {
	t.Helper()

	s := &sourceServer{page: page, workbook: workbook, status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(s.page))
	})
	mux.HandleFunc("/content/iyakuhin/list_2024.xlsx", func(w http.ResponseWriter, r *http.Request) {
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			return
		}
		_, _ = w.Write(s.workbook)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func testProfile(server *sourceServer) config.SourceProfile {
	profile := config.DefaultSourceProfile()
	profile.PageURL = server.URL + "/page.html"
	profile.BaseURL = server.URL
	profile.PageTimeout = 2 * time.Second
	profile.WorkbookTimeout = 2 * time.Second
	return profile
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

func TestPipelineRun(t *testing.T) {
	server := newSourceServer(t, indexPage, sampleWorkbook(t))
	output := filepath.Join(t.TempDir(), "out", "data.json")

	var progress bytes.Buffer
	p := NewPipeline(testProfile(server), output).
		WithProgressWriter(&progress).
		WithClock(fixedClock)

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	written, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Output not written: %v", err)
	}
	if !bytes.Equal(written, result.Encoded) {
		t.Error("File content differs from the encoded result")
	}
	if !bytes.HasPrefix(written, []byte(`{"fetchDate":"2024-03-01","source":"list_2024.xlsx","rows":[["1",`)) {
		t.Errorf("Unexpected output: %s", written)
	}

	if result.WorkbookURL != server.URL+"/content/iyakuhin/list_2024.xlsx" {
		t.Errorf("Unexpected workbook URL %s", result.WorkbookURL)
	}
	if len(result.Envelope.Rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(result.Envelope.Rows))
	}
	if result.Report == nil || result.Report.TotalRows != 3 {
		t.Errorf("Expected a report over 3 rows, got %+v", result.Report)
	}

	out := progress.String()
	for _, want := range []string{"Fetching page:", "Workbook URL found:", "Download complete:", "Data rows: 3", "Saved: " + output} {
		if !strings.Contains(out, want) {
			t.Errorf("Progress output missing %q:\n%s", want, out)
		}
	}
}

func TestPipelineNoDataRegionWritesEmptyRows(t *testing.T) {
	content := buildWorkbook(t, [][]any{
		{"医療用医薬品供給状況"},
		dataRow("成分名", "品名", "出荷対応の状況"),
	})
	server := newSourceServer(t, indexPage, content)
	output := filepath.Join(t.TempDir(), "data.json")

	_, err := NewPipeline(testProfile(server), output).
		WithProgressWriter(nil).
		WithClock(fixedClock).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Expected success with no rows, got %v", err)
	}

	written, _ := os.ReadFile(output)
	want := `{"fetchDate":"2024-03-01","source":"list_2024.xlsx","rows":[]}`
	if string(written) != want {
		t.Errorf("Expected %s, got %s", want, written)
	}
}

func TestPipelineNoMatchingLink(t *testing.T) {
	page := `<a href="/other.pdf">pdf</a><a href="/content/other/list.xlsx">xlsx</a>`
	server := newSourceServer(t, page, sampleWorkbook(t))
	dir := t.TempDir()

	t.Run("no output created", func(t *testing.T) {
		output := filepath.Join(dir, "fresh.json")
		_, err := NewPipeline(testProfile(server), output).WithProgressWriter(nil).Run(context.Background())

		var rerr *ResolutionError
		if !errors.As(err, &rerr) {
			t.Fatalf("Expected ResolutionError, got %v", err)
		}
		if _, err := os.Stat(output); !os.IsNotExist(err) {
			t.Errorf("Output file must not be created, stat: %v", err)
		}
	})

	t.Run("existing output untouched", func(t *testing.T) {
		output := filepath.Join(dir, "existing.json")
		if err := os.WriteFile(output, []byte("previous"), 0644); err != nil {
			t.Fatalf("Failed to seed output: %v", err)
		}
		before, _ := os.Stat(output)

		_, err := NewPipeline(testProfile(server), output).WithProgressWriter(nil).Run(context.Background())
		if err == nil {
			t.Fatal("Expected error")
		}

		after, _ := os.Stat(output)
		data, _ := os.ReadFile(output)
		if string(data) != "previous" || !after.ModTime().Equal(before.ModTime()) {
			t.Errorf("Existing output was modified: %q", data)
		}
	})
}

func TestPipelineWorkbookTransportError(t *testing.T) {
	server := newSourceServer(t, indexPage, nil)
	server.status = http.StatusNotFound
	output := filepath.Join(t.TempDir(), "data.json")

	_, err := NewPipeline(testProfile(server), output).WithProgressWriter(nil).Run(context.Background())

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", terr.StatusCode)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("Output file must not be created")
	}
}

func TestPipelineCorruptWorkbook(t *testing.T) {
	server := newSourceServer(t, indexPage, []byte("PK\x03\x04 truncated"))
	output := filepath.Join(t.TempDir(), "data.json")

	_, err := NewPipeline(testProfile(server), output).WithProgressWriter(nil).Run(context.Background())

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("Output file must not be created")
	}
}

func TestPipelineCustomMatcher(t *testing.T) {
	server := newSourceServer(t, indexPage, sampleWorkbook(t))
	output := filepath.Join(t.TempDir(), "data.json")

	byText := func(link entities.AnchorLink) bool {
		return strings.Contains(link.Text, "供給状況一覧")
	}

	result, err := NewPipeline(testProfile(server), output).
		WithLinkMatcher(byText).
		WithProgressWriter(nil).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Envelope.Source != "list_2024.xlsx" {
		t.Errorf("Unexpected source %s", result.Envelope.Source)
	}
}
