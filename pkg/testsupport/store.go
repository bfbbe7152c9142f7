package testsupport

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/jalsampada/go-frappeforms/pkg/frappe"
)

// Write records one Insert or Update call on a MemoryStore.
type Write struct {
	Doctype string
	Name    string
	Payload map[string]any
}

// MemoryStore is an in-memory stand-in for the Frappe REST client. It mimics
// the server's optimistic locking: an Update whose "modified" differs from the
// stored record fails with TimestampMismatchError.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]map[string]map[string]any
	options  map[string][]frappe.LinkOption
	revision int

	Inserts     []Write
	Updates     []Write
	Deletes     []string
	LastFilters [][]any
	// WriteErr, when set, is returned by Insert, Update and Delete.
	WriteErr error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]map[string]any),
		options: make(map[string][]frappe.LinkOption),
	}
}

// Put seeds a record. A missing "modified" gets a generated timestamp.
func (m *MemoryStore) Put(doctype string, record map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := copyRecord(record)
	if _, ok := copied["modified"]; !ok {
		copied["modified"] = m.nextModified()
	}
	if _, ok := copied["docstatus"]; !ok {
		copied["docstatus"] = 0
	}
	if m.records[doctype] == nil {
		m.records[doctype] = make(map[string]map[string]any)
	}
	m.records[doctype][fmt.Sprint(copied["name"])] = copied
}

// SetLinkOptions seeds the results SearchLink returns for a doctype.
func (m *MemoryStore) SetLinkOptions(doctype string, options ...frappe.LinkOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[doctype] = append([]frappe.LinkOption(nil), options...)
}

func (m *MemoryStore) Get(_ context.Context, doctype, name string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[doctype][name]
	if !ok {
		return nil, notFound(doctype, name)
	}
	return copyRecord(record), nil
}

func (m *MemoryStore) Insert(_ context.Context, doctype string, payload map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Inserts = append(m.Inserts, Write{Doctype: doctype, Payload: copyRecord(payload)})
	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	record := copyRecord(payload)
	name, _ := record["name"].(string)
	if name == "" {
		name = fmt.Sprintf("%s-%04d", strings.ToUpper(strings.ReplaceAll(doctype, " ", "-")), len(m.records[doctype])+1)
		record["name"] = name
	}
	record["modified"] = m.nextModified()
	record["docstatus"] = 0
	if m.records[doctype] == nil {
		m.records[doctype] = make(map[string]map[string]any)
	}
	m.records[doctype][name] = record
	return copyRecord(record), nil
}

func (m *MemoryStore) Update(_ context.Context, doctype, name string, payload map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Updates = append(m.Updates, Write{Doctype: doctype, Name: name, Payload: copyRecord(payload)})
	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	record, ok := m.records[doctype][name]
	if !ok {
		return nil, notFound(doctype, name)
	}
	if modified, ok := payload["modified"]; ok && fmt.Sprint(modified) != fmt.Sprint(record["modified"]) {
		return nil, &frappe.APIError{
			Method:         http.MethodPut,
			Status:         http.StatusExpectationFailed,
			ExcType:        "TimestampMismatchError",
			ServerMessages: []string{"Error: Document has been modified after you have opened it. Please refresh to get the latest document."},
		}
	}
	for key, value := range payload {
		if key == "modified" {
			continue
		}
		record[key] = value
	}
	record["modified"] = m.nextModified()
	return copyRecord(record), nil
}

func (m *MemoryStore) Delete(_ context.Context, doctype, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Deletes = append(m.Deletes, doctype+"/"+name)
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if _, ok := m.records[doctype][name]; !ok {
		return notFound(doctype, name)
	}
	delete(m.records[doctype], name)
	return nil
}

// SearchLink returns seeded options whose value contains text. Filters are
// recorded in LastFilters but not applied.
func (m *MemoryStore) SearchLink(_ context.Context, doctype, text string, filters [][]any, limit int) ([]frappe.LinkOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastFilters = filters
	var out []frappe.LinkOption
	needle := strings.ToLower(strings.TrimSpace(text))
	for _, option := range m.options[doctype] {
		if needle != "" && !strings.Contains(strings.ToLower(option.Value), needle) {
			continue
		}
		out = append(out, option)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Names lists stored record names for a doctype, sorted.
func (m *MemoryStore) Names(doctype string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.records[doctype]))
	for name := range m.records[doctype] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *MemoryStore) nextModified() string {
	m.revision++
	return fmt.Sprintf("2024-01-01 00:00:%02d.000000", m.revision%60)
}

func notFound(doctype, name string) error {
	return &frappe.APIError{
		Method:  http.MethodGet,
		Status:  http.StatusNotFound,
		ExcType: "DoesNotExistError",
		Message: fmt.Sprintf("%s %s not found", doctype, name),
	}
}

func copyRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		out[key] = value
	}
	return out
}
