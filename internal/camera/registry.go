// Package camera holds the startup-built mapping from camera id to frame URL.
package camera

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Registry maps camera ids to the URL serving their latest still frame.
// It is built once and never modified.
type Registry struct {
	urls map[string]string
}

// LoadRegistry reads a JSON camera list from path.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read camera config %s", path)
	}

	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse camera config %s", path)
	}
	return reg, nil
}

// ParseRegistry builds a Registry from a JSON array of {"id", "url"} objects.
// Records without a string id and a string url are skipped; a later record
// with the same id replaces an earlier one.
func ParseRegistry(data []byte) (*Registry, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "camera config must be a JSON array")
	}
	if records == nil {
		return nil, errors.New("camera config must be a JSON array, got null")
	}

	urls := make(map[string]string, len(records))
	for _, raw := range records {
		// Non-object elements are skipped, not fatal.
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			continue
		}

		id, ok := fields["id"].(string)
		if !ok || id == "" {
			continue
		}
		url, ok := fields["url"].(string)
		if !ok {
			continue
		}
		urls[id] = url
	}

	return &Registry{urls: urls}, nil
}

// NewRegistry copies the given id -> URL pairs into a Registry.
func NewRegistry(urls map[string]string) *Registry {
	copied := make(map[string]string, len(urls))
	for id, url := range urls {
		if id != "" {
			copied[id] = url
		}
	}
	return &Registry{urls: copied}
}

// Lookup returns the frame URL for a camera id.
func (r *Registry) Lookup(id string) (string, bool) {
	url, ok := r.urls[id]
	return url, ok
}

// Contains reports whether the camera id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.urls[id]
	return ok
}

// IDs returns the registered camera ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.urls))
	for id := range r.urls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered cameras.
func (r *Registry) Len() int {
	return len(r.urls)
}
