package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortLaunchOrder(t *testing.T) {
	ps := []Profile{
		{Name: "z", Group: "b", Order: 1},
		{Name: "a", Group: "a", Order: 9},
		{Name: "m", Group: "a", Order: 1},
		{Name: "b", Group: "a", Order: 1},
		{Name: "solo"},
	}
	SortLaunchOrder(ps)
	var got []string
	for _, p := range ps {
		got = append(got, p.Name)
	}
	// Ungrouped ("" group) sorts first, then by order, then name.
	require.Equal(t, []string{"solo", "b", "m", "a", "z"}, got)
}

func TestArgList(t *testing.T) {
	require.Nil(t, Profile{Args: "   "}.ArgList())
	require.Equal(t, []string{"--port", "8080", "-v"}, Profile{Args: " --port  8080 -v "}.ArgList())
}

func TestNormalizeDefaults(t *testing.T) {
	p := Profile{Path: "/usr/bin/thing", WaitTimeout: -5}
	p.Normalize()
	require.Equal(t, "/usr/bin/thing", p.Name)
	require.Equal(t, 2, p.WaitInterval)
	require.Equal(t, 0, p.WaitTimeout)
}

func TestProfileRoundTripPreservesUnknownFields(t *testing.T) {
	in := []byte(`{"name":"svc","path":"/bin/svc","autoStart":true,"autoRestart":false,"iconIndex":7,"theme":{"color":"red"}}`)
	var p Profile
	require.NoError(t, json.Unmarshal(in, &p))
	require.Equal(t, "svc", p.Name)
	require.Contains(t, p.Extra, "iconIndex")
	require.Contains(t, p.Extra, "theme")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	require.JSONEq(t, `7`, string(m["iconIndex"]))
	require.JSONEq(t, `{"color":"red"}`, string(m["theme"]))
	require.JSONEq(t, `"svc"`, string(m["name"]))
}

func TestDocumentRoundTripPreservesUnknownFields(t *testing.T) {
	in := []byte(`{
		"profiles":[{"name":"a","path":"/bin/a","autoStart":false,"autoRestart":false}],
		"groupModes":{"g1":{"mode":"external","externalKey":"flags:run"}},
		"redis":{"host":"10.0.0.5","port":6390},
		"uiLayout":{"columns":3},
		"schemaVersion":2
	}`)
	var d Document
	require.NoError(t, json.Unmarshal(in, &d))
	require.Len(t, d.Profiles, 1)
	require.Equal(t, "flags:run", d.GroupModes["g1"].ExternalKey)
	require.Equal(t, "10.0.0.5:6390", d.Redis.Addr())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	require.JSONEq(t, `{"columns":3}`, string(m["uiLayout"]))
	require.JSONEq(t, `2`, string(m["schemaVersion"]))
}

func TestRedisSettingsDefaults(t *testing.T) {
	require.Equal(t, "127.0.0.1:6379", RedisSettings{}.Addr())
}
