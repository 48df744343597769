package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Source profile validation errors.
var (
	ErrMissingPageURL     = errors.New("page_url is required")
	ErrMissingKeyword     = errors.New("keyword is required")
	ErrMissingExtension   = errors.New("extension is required")
	ErrMissingMarkers     = errors.New("markers must contain at least one glyph")
	ErrInvalidTimeout     = errors.New("timeouts must be positive")
	ErrInvalidColumnWidth = errors.New("columns.width must be at least 1")
)

// Default MHLW source, the page listing the current supply-status workbook
const (
	DefaultPageURL   = "https://www.mhlw.go.jp/stf/seisakunitsuite/bunya/kenkou_iryou/iryou/kouhatu-iyaku/04_00003.html"
	DefaultBaseURL   = "https://www.mhlw.go.jp"
	DefaultKeyword   = "iyakuhin"
	DefaultUserAgent = "Mozilla/5.0 (compatible; DataFetcher/1.0)"
	// Shipping-status categories ①..⑤ in the status column
	DefaultMarkers = "①②③④⑤"
)

// ColumnLayout holds the zero-based positions of the sheet columns the
// parser cares about, and the width of each extracted row.
type ColumnLayout struct {
	Generic int `yaml:"generic"`
	Brand   int `yaml:"brand"`
	Status  int `yaml:"status"`
	Width   int `yaml:"width"`
}

// SourceProfile describes where the workbook is published and how its sheet
// is laid out. Everything the pipeline knows about the source lives here.
type SourceProfile struct {
	PageURL         string        `yaml:"page_url"`
	BaseURL         string        `yaml:"base_url"`
	Keyword         string        `yaml:"keyword"`
	Extension       string        `yaml:"extension"`
	UserAgent       string        `yaml:"user_agent"`
	PageTimeout     time.Duration `yaml:"page_timeout"`
	WorkbookTimeout time.Duration `yaml:"workbook_timeout"`
	Columns         ColumnLayout  `yaml:"columns"`
	Markers         string        `yaml:"markers"`
}

// DefaultSourceProfile returns the profile for the MHLW supply-status workbook
func DefaultSourceProfile() SourceProfile {
	return SourceProfile{
		PageURL:         DefaultPageURL,
		BaseURL:         DefaultBaseURL,
		Keyword:         DefaultKeyword,
		Extension:       ".xlsx",
		UserAgent:       DefaultUserAgent,
		PageTimeout:     30 * time.Second,
		WorkbookTimeout: 60 * time.Second,
		Columns: ColumnLayout{
			Generic: 2,  // ③成分名
			Brand:   5,  // ⑥品名
			Status:  11, // ⑫出荷対応の状況
			Width:   16,
		},
		Markers: DefaultMarkers,
	}
}

// LoadSourceProfile reads a YAML profile over the defaults. An empty path
// returns the defaults unchanged.
func LoadSourceProfile(path string) (SourceProfile, error) {
	profile := DefaultSourceProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read source profile %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse source profile %s: %w", path, err)
	}

	return profile, nil
}

// Validate checks the profile is usable by the pipeline
func (p SourceProfile) Validate() error {
	if strings.TrimSpace(p.PageURL) == "" {
		return ErrMissingPageURL
	}
	if strings.TrimSpace(p.Keyword) == "" {
		return ErrMissingKeyword
	}
	if strings.TrimSpace(p.Extension) == "" {
		return ErrMissingExtension
	}
	if utf8.RuneCountInString(p.Markers) == 0 {
		return ErrMissingMarkers
	}
	if p.PageTimeout <= 0 || p.WorkbookTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return p.Columns.Validate()
}

// Validate checks every column index falls inside the row window
func (c ColumnLayout) Validate() error {
	if c.Width < 1 {
		return ErrInvalidColumnWidth
	}

	columns := map[string]int{"generic": c.Generic, "brand": c.Brand, "status": c.Status}
	for name, idx := range columns {
		if idx < 0 || idx >= c.Width {
			return fmt.Errorf("columns.%s must be between 0 and %d, got: %d", name, c.Width-1, idx)
		}
	}
	return nil
}
