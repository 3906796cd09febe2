package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		message  string
		category string
		id       string
	}{
		{
			name:     "nested notification",
			raw:      `{"notification":{"message":"Report approved","type":"success"}}`,
			message:  "Report approved",
			category: model.CategorySuccess,
		},
		{
			name:     "nested data",
			raw:      `{"data":{"id":"abc","message":"Deadline moved","type":"warning"}}`,
			message:  "Deadline moved",
			category: model.CategoryWarning,
			id:       "abc",
		},
		{
			name:     "flat body",
			raw:      `{"message":"Flat","category":"danger"}`,
			message:  "Flat",
			category: model.CategoryError,
		},
		{
			name:     "defaults",
			raw:      `{"notification":{}}`,
			message:  DefaultMessage,
			category: model.CategoryInfo,
		},
		{
			name:     "unknown category",
			raw:      `{"notification":{"message":"x","type":"shiny"}}`,
			message:  "x",
			category: model.CategoryInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.message, ev.Message)
			assert.Equal(t, tt.category, ev.Category)
			assert.Equal(t, tt.id, ev.NotificationID)
			assert.False(t, ev.ReceivedAt.IsZero())
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}
