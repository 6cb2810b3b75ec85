package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemData(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"int", 1, "1"},
		{"string", "18211", "18211"},
		{"seconds", 0.025, "0.025"},
		{"whole float", float64(3), "3"},
		{"int64", int64(1 << 40), "1099511627776"},
		{"json text", `{"data":[]}`, `{"data":[]}`},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Item{Key: "varnish.ping", Value: tt.value, Host: "h", Timestamp: 1700000000.9}
			data := item.Data()
			assert.Equal(t, tt.want, data.Value)
			assert.Equal(t, int64(1700000000), data.Clock)
			assert.Equal(t, "h", data.Host)
			assert.Equal(t, "varnish.ping", data.Key)
		})
	}
}

func TestDataJSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(Item{Key: "varnish.ping", Value: 1, Host: "h", Timestamp: 42}.Data())
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"h","clock":42,"key":"varnish.ping","value":"1"}`, string(raw))
}
