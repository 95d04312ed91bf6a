package poller_test

import (
	"testing"

	"github.com/kiranshivaraju/a1gen/internal/a1"
	"github.com/kiranshivaraju/a1gen/internal/poller"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Kinds(t *testing.T) {
	tests := []struct {
		name string
		doc  a1.Document
		want poller.Kind
	}{
		{"object", a1.Document{"data": map[string]any{}}, poller.KindObject},
		{"list", a1.Document{"data": []any{}}, poller.KindList},
		{"string", a1.Document{"data": "https://x"}, poller.KindString},
		{"missing", a1.Document{}, poller.KindNone},
		{"null", a1.Document{"data": nil}, poller.KindNone},
		{"number", a1.Document{"data": 3.0}, poller.KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, poller.Classify(tt.doc).Kind)
		})
	}
}

func TestPayloadURLs(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{
			name: "images list of objects",
			data: map[string]any{"images": []any{
				map[string]any{"imageUrl": "https://a"},
				map[string]any{"url": "https://b"},
				"https://c",
			}},
			want: []string{"https://a", "https://b", "https://c"},
		},
		{
			name: "result list when images absent",
			data: map[string]any{"result": []any{map[string]any{"url": "https://r"}}},
			want: []string{"https://r"},
		},
		{
			name: "empty images falls through to result",
			data: map[string]any{"images": []any{}, "result": []any{"https://r"}},
			want: []string{"https://r"},
		},
		{
			name: "single imageUrl",
			data: map[string]any{"imageUrl": "https://single"},
			want: []string{"https://single"},
		},
		{
			name: "images wins over imageUrl",
			data: map[string]any{"images": []any{"https://list"}, "imageUrl": "https://single"},
			want: []string{"https://list"},
		},
		{
			name: "imageUrl preferred over url in element",
			data: []any{map[string]any{"imageUrl": "https://i", "url": "https://u"}},
			want: []string{"https://i"},
		},
		{
			name: "empty imageUrl falls back to url",
			data: []any{map[string]any{"imageUrl": "", "url": "https://u"}},
			want: []string{"https://u"},
		},
		{
			name: "empty strings discarded",
			data: []any{"", map[string]any{}, "https://kept", 7.0},
			want: []string{"https://kept"},
		},
		{
			name: "plain string",
			data: "https://text",
			want: []string{"https://text"},
		},
		{
			name: "empty string",
			data: "",
			want: nil,
		},
		{
			name: "object without urls",
			data: map[string]any{"status": "running"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := poller.Classify(a1.Document{"data": tt.data}).URLs()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayloadStatus(t *testing.T) {
	assert.Equal(t, "running", poller.Classify(a1.Document{"data": map[string]any{"status": "running"}}).Status())
	assert.Equal(t, "", poller.Classify(a1.Document{"data": map[string]any{"status": 1.0}}).Status())
	assert.Equal(t, "", poller.Classify(a1.Document{"data": "success"}).Status())
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{"success", "SUCCESS", "Finished", "done"} {
		assert.True(t, poller.IsTerminal(s), s)
	}
	for _, s := range []string{"", "running", "failed", "successful"} {
		assert.False(t, poller.IsTerminal(s), s)
	}
}
