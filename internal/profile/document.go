package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RedisSettings locate the external trigger store.
type RedisSettings struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DB       int    `json:"db,omitempty"`
	Password string `json:"password,omitempty"`
}

// Addr returns host:port with the conventional defaults filled in.
func (r RedisSettings) Addr() string {
	host := r.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := r.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Document is the persisted shape of launch.conf. Top-level keys other than
// the ones modeled here are carried in Extra so a load/save cycle performed by
// this variant never destroys data another variant wrote.
type Document struct {
	Profiles   []Profile            `json:"profiles"`
	GroupModes map[string]GroupMode `json:"groupModes,omitempty"`
	Redis      RedisSettings        `json:"redis,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownDocumentKeys = map[string]struct{}{
	"profiles": {}, "groupModes": {}, "redis": {},
}

type documentAlias Document

func (d *Document) UnmarshalJSON(data []byte) error {
	var a documentAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownDocumentKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*d = Document(a)
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(documentAlias(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return b, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, known := knownDocumentKeys[k]; known {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ReadDocument loads and normalizes a launch.conf file. A missing file yields
// an empty document rather than an error so a fresh install starts clean.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(doc.Profiles))
	for i := range doc.Profiles {
		doc.Profiles[i].Normalize()
		name := doc.Profiles[i].Name
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("parse %s: duplicate profile name %q", path, name)
		}
		seen[name] = struct{}{}
	}
	return &doc, nil
}

// WriteDocument persists the document atomically: write to a sibling temp
// file, then rename over the target.
func WriteDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp, err := os.CreateTemp(filepath.Dir(path), ".launch-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
