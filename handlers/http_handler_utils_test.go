package handlers

import (
	"time"

	"github.com/giygas/iyakuhin-supply/interfaces"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

// MockDataStore is a fixed-content DataStore
type MockDataStore struct {
	envelope        *entities.ResultEnvelope
	encoded         []byte
	etag            string
	report          *interfaces.DataQualityReport
	lastUpdated     time.Time
	serverStartTime time.Time
	updating        bool
}

func (m *MockDataStore) GetEnvelope() *entities.ResultEnvelope               { return m.envelope }
func (m *MockDataStore) GetEncoded() []byte                                  { return m.encoded }
func (m *MockDataStore) GetETag() string                                     { return m.etag }
func (m *MockDataStore) GetDataQualityReport() *interfaces.DataQualityReport { return m.report }
func (m *MockDataStore) GetLastUpdated() time.Time                           { return m.lastUpdated }
func (m *MockDataStore) GetServerStartTime() time.Time                       { return m.serverStartTime }
func (m *MockDataStore) IsUpdating() bool                                    { return m.updating }
func (m *MockDataStore) GetUpdateStartedAt() time.Time                       { return time.Time{} }
func (m *MockDataStore) BeginUpdate() bool                                   { return true }
func (m *MockDataStore) EndUpdate()                                          {}

func (m *MockDataStore) UpdateData(envelope *entities.ResultEnvelope, encoded []byte, report *interfaces.DataQualityReport) {
	m.envelope = envelope
	m.encoded = encoded
	m.report = report
}

// MockDataStoreBuilder builds MockDataStores for handler tests
type MockDataStoreBuilder struct {
	mock *MockDataStore
}

func NewMockDataStoreBuilder() *MockDataStoreBuilder {
	return &MockDataStoreBuilder{
		mock: &MockDataStore{
			lastUpdated:     time.Now(),
			serverStartTime: time.Now().Add(-90 * time.Minute),
		},
	}
}

func (b *MockDataStoreBuilder) WithEnvelope(source string, rows int) *MockDataStoreBuilder {
	b.mock.envelope = &entities.ResultEnvelope{
		FetchDate: "2024-03-01",
		Source:    source,
		Rows:      make([]entities.DataRow, rows),
	}
	b.mock.encoded = []byte(`{"fetchDate":"2024-03-01","source":"` + source + `","rows":[]}`)
	b.mock.etag = `"abc123"`
	return b
}

func (b *MockDataStoreBuilder) WithReport(report *interfaces.DataQualityReport) *MockDataStoreBuilder {
	b.mock.report = report
	return b
}

func (b *MockDataStoreBuilder) Build() *MockDataStore {
	return b.mock
}

// MockHealthChecker returns a fixed health result
type MockHealthChecker struct {
	status     string
	data       map[string]any
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, m.data, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time {
	return time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)
}
