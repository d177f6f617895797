package profile

import (
	"encoding/json"
	"sort"
	"strings"
)

// Group mode values. A group whose mode is ModeExternal is driven by the
// external trigger reconciler; ModeOn auto-starts the whole group at engine
// startup and ModeOff suppresses it regardless of per-profile flags.
const (
	ModeOn       = "on"
	ModeOff      = "off"
	ModeExternal = "external"
)

// Profile describes one launchable external program plus its gating and
// restart policy. Name is the unique identity used everywhere else in the
// engine.
type Profile struct {
	Name            string `json:"name"`
	Group           string `json:"group,omitempty"`
	Order           int    `json:"order,omitempty"`
	Path            string `json:"path"`
	Args            string `json:"args,omitempty"`
	AutoStart       bool   `json:"autoStart"`
	AutoRestart     bool   `json:"autoRestart"`
	WaitTarget      string `json:"waitTarget,omitempty"`
	WaitTimeout     int    `json:"waitTimeout,omitempty"`  // seconds; 0 = no gating
	WaitInterval    int    `json:"waitInterval,omitempty"` // seconds between probes
	PostLaunchDelay int    `json:"postLaunchDelay,omitempty"`

	// Optional post-launch placement hints consumed by hooks, not by the
	// supervision core.
	Monitor    int    `json:"monitor,omitempty"`
	MatchKind  string `json:"matchKind,omitempty"` // Process or Title
	MatchValue string `json:"matchValue,omitempty"`
	URL        string `json:"url,omitempty"`

	// Extra carries fields this engine variant does not recognize so a
	// load/save cycle never drops them.
	Extra map[string]json.RawMessage `json:"-"`
}

// GroupMode controls how a whole group is started.
type GroupMode struct {
	Mode        string `json:"mode"`
	ExternalKey string `json:"externalKey,omitempty"`
}

// clone returns a copy whose Extra map is independent of the original. The
// raw values themselves are treated as immutable.
func (p Profile) clone() Profile {
	if p.Extra != nil {
		extra := make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}

// ArgList splits Args on whitespace, dropping empty tokens.
func (p Profile) ArgList() []string {
	if strings.TrimSpace(p.Args) == "" {
		return nil
	}
	return strings.Fields(p.Args)
}

// Normalize fills defaults the persisted form may omit.
func (p *Profile) Normalize() {
	if p.Name == "" {
		p.Name = p.Path
	}
	if p.WaitInterval <= 0 {
		p.WaitInterval = 2
	}
	if p.WaitTimeout < 0 {
		p.WaitTimeout = 0
	}
	if p.PostLaunchDelay < 0 {
		p.PostLaunchDelay = 0
	}
}

// SortLaunchOrder orders profiles by (group, order, name) ascending. This is
// the single place launch sequencing is decided; the sort is stable so
// identical input always produces identical initiation order.
func SortLaunchOrder(ps []Profile) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Name < b.Name
	})
}

// knownProfileKeys are the JSON keys this variant owns; everything else is
// round-tripped through Extra.
var knownProfileKeys = map[string]struct{}{
	"name": {}, "group": {}, "order": {}, "path": {}, "args": {},
	"autoStart": {}, "autoRestart": {},
	"waitTarget": {}, "waitTimeout": {}, "waitInterval": {}, "postLaunchDelay": {},
	"monitor": {}, "matchKind": {}, "matchValue": {}, "url": {},
}

type profileAlias Profile

// UnmarshalJSON keeps unrecognized keys in Extra instead of dropping them.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var a profileAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownProfileKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*p = Profile(a)
	return nil
}

// MarshalJSON merges Extra back under the known fields. Known fields win on
// key collision.
func (p Profile) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(profileAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return b, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, known := knownProfileKeys[k]; known {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}
