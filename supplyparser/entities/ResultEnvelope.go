package entities

// ResultEnvelope is the published output of a single run.
type ResultEnvelope struct {
	FetchDate string    `json:"fetchDate"`
	Source    string    `json:"source"`
	Rows      []DataRow `json:"rows"`
}
