package validate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/eventhub/internal/domain"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=5"`
	Category string `json:"category" validate:"omitempty,category"`
	Max      int    `json:"max_attendees" validate:"min=1"`
}

func TestDecodeJSON(t *testing.T) {
	var dst sample
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","name":"ann","max_attendees":3}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "a@b.co", dst.Email)
	assert.Equal(t, 3, dst.Max)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	err := DecodeJSON(req, &dst)
	assert.True(t, domain.Is(err, "invalid_json"))
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantCode  string
		wantField string
	}{
		{"ok", sample{Email: "a@b.co", Name: "ann", Category: "Sports", Max: 1}, "", ""},
		{"missing", sample{Name: "ann", Max: 1}, "missing_field", "email"},
		{"bad_email", sample{Email: "nope", Name: "ann", Max: 1}, "invalid_field", "email"},
		{"too_long", sample{Email: "a@b.co", Name: "annabel", Max: 1}, "invalid_field", "name"},
		{"category", sample{Email: "a@b.co", Name: "ann", Category: "Cooking", Max: 1}, "invalid_field", "category"},
		{"min", sample{Email: "a@b.co", Name: "ann"}, "invalid_field", "max_attendees"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.wantField, de.Meta["field"])
		})
	}
}
