package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/popstack/internal/model"
	"github.com/jmylchreest/popstack/internal/stack"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSnapshots() []Snapshot {
	height := 120.0
	return []Snapshot{
		{
			Stack:         "main",
			Priority:      stack.Priority{Top: 2, Centre: -2, Bottom: 3},
			InitialHeight: 30,
			Popups: []Popup{
				{
					ID:        "toast#01J0000000000000000000000A",
					Type:      "toast",
					Anchor:    "top",
					Payload:   "Download complete",
					CreatedAt: testNow.Add(-5 * time.Minute),
				},
				{
					ID:           "sheet#01J0000000000000000000000B",
					Type:         "sheet",
					Anchor:       "bottom",
					Height:       &height,
					DismissAfter: "5s",
					Payload:      "Share with\nfriends",
					CreatedAt:    testNow.Add(-2 * time.Hour),
				},
			},
		},
	}
}

func testOptions() FormatterOptions {
	opts := DefaultFormatterOptions()
	opts.Now = func() time.Time { return testNow }
	return opts
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewPlainFormatter(testOptions())
	require.NoError(t, formatter.Format(&buf, testSnapshots()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "== main: 2 popup(s), initial height 30, priority top=2 centre=-2 bottom=3", lines[0])
	assert.Equal(t, "[1] <top> toast#01J0000000000000000000000A (5 minutes ago)", lines[1])
	assert.Equal(t, "    Download complete", lines[2])
	assert.Equal(t, "[2] <bottom> sheet#01J0000000000000000000000B h=120 dismiss=5s (2 hours ago)", lines[3])
	assert.Equal(t, "    Share with friends", lines[4])
}

func TestPlainFormatter_NoIndexNoAge(t *testing.T) {
	var buf bytes.Buffer

	opts := testOptions()
	opts.ShowIndex = false
	opts.ShowAge = false
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testSnapshots()))

	output := buf.String()
	assert.NotContains(t, output, "[1]")
	assert.NotContains(t, output, "ago")
}

func TestPlainFormatter_CustomTemplate(t *testing.T) {
	var buf bytes.Buffer

	opts := testOptions()
	opts.Template = "{{.Index}} {{.Stack}}/{{.Popup.Type}} {{.Age}}\n"
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testSnapshots()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"1 main/toast 5 minutes ago", "2 main/sheet 2 hours ago"}, lines)
}

func TestDmenuFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewDmenuFormatter(testOptions()).Format(&buf, testSnapshots()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	// Newest first
	assert.Equal(t, "1 | main | bottom | sheet | 2 hours ago | Share with friends", lines[0])
	assert.Equal(t, "2 | main | top | toast | 5 minutes ago | Download complete", lines[1])
}

func TestDmenuFormatter_CustomTemplate(t *testing.T) {
	var buf bytes.Buffer

	opts := testOptions()
	opts.Template = `{{.Popup.ID}}: {{truncate (payload .Popup.Payload) 8}}`
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testSnapshots()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "sheet#01J0000000000000000000000B: Share...", lines[0])
}

func TestDmenuFormatter_TruncatePayload(t *testing.T) {
	var buf bytes.Buffer

	opts := testOptions()
	opts.PayloadMaxLen = 10
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testSnapshots()))

	output := buf.String()
	assert.Contains(t, output, "Downloa...")
	assert.NotContains(t, output, "complete")
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, testSnapshots()))

	var result []Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 1)
	assert.Equal(t, "main", result[0].Stack)
	assert.Equal(t, 3.0, result[0].Priority.Bottom)
	require.Len(t, result[0].Popups, 2)
	assert.Nil(t, result[0].Popups[0].Height)
	require.NotNil(t, result[0].Popups[1].Height)
	assert.Equal(t, 120.0, *result[0].Popups[1].Height)
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_FormatSingle(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewJSONFormatter(testOptions()).FormatSingle(&buf, testSnapshots()[0]))

	var result Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "main", result.Stack)
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewYAMLFormatter(testOptions()).Format(&buf, testSnapshots()))

	var result []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 1)
	assert.Equal(t, "main", result[0]["stack"])

	popups, ok := result[0]["popups"].([]any)
	require.True(t, ok)
	require.Len(t, popups, 2)

	first, ok := popups[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "toast", first["type"])
	assert.NotContains(t, first, "height")
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewIDsFormatter().Format(&buf, testSnapshots()))
	assert.Equal(t, "toast#01J0000000000000000000000A\nsheet#01J0000000000000000000000B\n", buf.String())
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()

	tests := []struct {
		format FormatType
		check  func(Formatter) bool
	}{
		{FormatPlain, func(f Formatter) bool { _, ok := f.(*PlainFormatter); return ok }},
		{"", func(f Formatter) bool { _, ok := f.(*PlainFormatter); return ok }},
		{FormatJSON, func(f Formatter) bool { _, ok := f.(*JSONFormatter); return ok }},
		{FormatYAML, func(f Formatter) bool { _, ok := f.(*YAMLFormatter); return ok }},
		{FormatIDs, func(f Formatter) bool { _, ok := f.(*IDsFormatter); return ok }},
		{FormatDmenu, func(f Formatter) bool { _, ok := f.(*DmenuFormatter); return ok }},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := NewFormatter(tt.format, opts)
			require.NoError(t, err)
			assert.True(t, tt.check(f))
		})
	}

	_, err := NewFormatter("xml", opts)
	assert.Error(t, err)
}

func TestNewSnapshot(t *testing.T) {
	s := stack.New("main", nil, nil)
	defer s.Close()

	toast := model.NewDescriptor("toast", model.AnchorTop, "hello")
	sheet := model.NewDescriptor("sheet", model.AnchorBottom, nil).
		WithConfig(model.BottomConfig{DismissAfter: time.Minute}).
		WithHeight(80)
	s.Insert(toast)
	s.Insert(sheet)

	snap := NewSnapshot(s)

	assert.Equal(t, "main", snap.Stack)
	assert.Equal(t, s.Priority(), snap.Priority)
	assert.Equal(t, 30.0, snap.InitialHeight)
	require.Len(t, snap.Popups, 2)

	assert.Equal(t, toast.ID().String(), snap.Popups[0].ID)
	assert.Equal(t, "toast", snap.Popups[0].Type)
	assert.Equal(t, "top", snap.Popups[0].Anchor)
	assert.Equal(t, "hello", snap.Popups[0].Payload)
	assert.Empty(t, snap.Popups[0].DismissAfter)

	assert.Equal(t, "bottom", snap.Popups[1].Anchor)
	assert.Equal(t, "1m0s", snap.Popups[1].DismissAfter)
	require.NotNil(t, snap.Popups[1].Height)
	assert.Equal(t, 80.0, *snap.Popups[1].Height)
}

func TestSnapshotRegistry(t *testing.T) {
	r := stack.NewRegistry(nil, nil)
	defer r.Clean()

	r.Register("sheet")
	r.Register("alerts").Insert(model.NewDescriptor("toast", model.AnchorTop, nil))

	snaps := SnapshotRegistry(r)
	require.Len(t, snaps, 2)
	assert.Equal(t, "alerts", snaps[0].Stack)
	assert.Len(t, snaps[0].Popups, 1)
	assert.Equal(t, "sheet", snaps[1].Stack)
	assert.Empty(t, snaps[1].Popups)
}

func TestSanitizePayload(t *testing.T) {
	tests := []struct {
		name     string
		payload  any
		maxLen   int
		expected string
	}{
		{"nil", nil, 0, ""},
		{"simple", "hello world", 0, "hello world"},
		{"with newlines", "hello\nworld", 0, "hello world"},
		{"truncate", "hello world", 8, "hello..."},
		{"multiple spaces", "hello   world", 0, "hello world"},
		{"non-string", 42, 0, "42"},
		{"multibyte", "héllo wörld", 8, "héllo..."},
		{"multibyte short limit", "日本語テキスト", 2, "日本"},
		{"multibyte fits", "日本語", 3, "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizePayload(tt.payload, tt.maxLen))
		})
	}
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	s := strings.Repeat("é", 20)
	for n := 1; n <= 25; n++ {
		out := truncate(s, n)
		assert.True(t, utf8.ValidString(out), "maxLen %d", n)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), n)
	}
}

func TestAge(t *testing.T) {
	tests := []struct {
		name     string
		created  time.Time
		expected string
	}{
		{"zero", time.Time{}, "unknown"},
		{"now", testNow, "now"},
		{"5 minutes", testNow.Add(-5 * time.Minute), "5 minutes ago"},
		{"2 hours", testNow.Add(-2 * time.Hour), "2 hours ago"},
		{"3 days", testNow.Add(-72 * time.Hour), "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, age(tt.created, testNow))
		})
	}
}
