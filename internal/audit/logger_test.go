package audit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_WritesAuditLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.Record("registration.approved", map[string]string{
		"request_id": "r1",
		"admin_id":   "a1",
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, true, line["audit"])
	assert.Equal(t, "registration.approved", line["action"])
	assert.Equal(t, "r1", line["request_id"])
	assert.Equal(t, "a1", line["admin_id"])
	assert.Equal(t, "info", line["level"])
}

func TestOutboxMessageDead(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.OutboxMessageDead("m1", "mail.send", 10, "webhook 500")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "outbox_dead", line["action"])
	assert.EqualValues(t, 10, line["attempts"])
}
