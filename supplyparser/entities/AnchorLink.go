package entities

// AnchorLink is one <a href> element seen while scanning the index page.
type AnchorLink struct {
	Href string
	Text string
}

// WorkbookLink is the resolved location of the current workbook.
type WorkbookLink struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
