package output

import (
	"bytes"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func renderItems(t *testing.T, mode Mode) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, mode)
	data := []item{{"orders", 2}, {"customers", 0}}
	require.NoError(t, r.Render(data, func(tw table.Writer) {
		tw.AppendHeader(table.Row{"NAME", "COUNT"})
		for _, d := range data {
			tw.AppendRow(table.Row{d.Name, d.Count})
		}
	}))
	r.Statusf("%d items", len(data))
	return out.String(), errOut.String()
}

func TestRender(t *testing.T) {
	out, status := renderItems(t, ModeJSON)
	assert.JSONEq(t, `[{"name":"orders","count":2},{"name":"customers","count":0}]`, out)
	assert.Empty(t, status)

	out, _ = renderItems(t, ModeYAML)
	assert.Equal(t, "- name: orders\n  count: 2\n- name: customers\n  count: 0\n", out)

	out, status = renderItems(t, ModeText)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "┌")
	assert.Equal(t, "2 items\n", status)
}

func TestNewRenderer_AutoOnBufferIsJSON(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeJSON, r.Mode())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"JSON", ModeJSON, false},
		{" yaml ", ModeYAML, false},
		{"text", ModeText, false},
		{"markdown", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
