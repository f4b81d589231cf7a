package gist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return logger
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"bd1f0ba5b0e8bd2fc5b0b9be8a2c6e0b", "bd1f0ba5b0e8bd2fc5b0b9be8a2c6e0b", false},
		{"https://gist.github.com/someone/bd1f0ba5b0e8bd2fc5b0b9be8a2c6e0b", "bd1f0ba5b0e8bd2fc5b0b9be8a2c6e0b", false},
		{"https://gist.github.com/bd1f0ba5b0e8bd2fc5b0b9be8a2c6e0b/", "bd1f0ba5b0e8bd2fc5b0b9be8a2c6e0b", false},
		{"https://example.com/bd1f0ba5b0e8bd2fc5b0b9be8a2c6e0b", "", true},
		{"not a gist", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetGistFileContentAsJSON(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gists/abc123":
			_ = json.NewEncoder(w).Encode(Gist{
				ID: "abc123",
				Files: map[string]File{
					"notes.md":    {Filename: "notes.md", Content: "ignore me"},
					"report.json": {Filename: "report.json", Content: `{"lighthouseVersion":"2.0.0"}`},
				},
			})
		case "/gists/def456":
			_ = json.NewEncoder(w).Encode(Gist{
				ID: "def456",
				Files: map[string]File{
					"big.json": {Filename: "big.json", Truncated: true, RawURL: srv.URL + "/raw/big.json"},
				},
			})
		case "/raw/big.json":
			_, _ = io.WriteString(w, `{"lighthouseVersion":"2.1.0"}`)
		case "/gists/fff000":
			_ = json.NewEncoder(w).Encode(Gist{ID: "fff000", Files: map[string]File{"a.txt": {}}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(testLogger(), srv.URL, "", 0)
	ctx := context.Background()

	content, err := c.GetGistFileContentAsJSON(ctx, "abc123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lighthouseVersion":"2.0.0"}`, string(content))

	content, err = c.GetGistFileContentAsJSON(ctx, "def456")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lighthouseVersion":"2.1.0"}`, string(content))

	_, err = c.GetGistFileContentAsJSON(ctx, "fff000")
	assert.ErrorIs(t, err, ErrNoJSONFile)

	_, err = c.GetGistFileContentAsJSON(ctx, "aaaaaa")
	assert.Error(t, err)

	_, err = c.GetGistFileContentAsJSON(ctx, "../etc")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCreateGist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Public bool                         `json:"public"`
			Files  map[string]map[string]string `json:"files"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Public)
		require.Len(t, body.Files, 1)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Gist{ID: "abc123", HTMLURL: "https://gist.github.com/abc123"})
	}))
	defer srv.Close()

	c := NewClient(testLogger(), srv.URL, "secret", 0)

	g, err := c.CreateGist(context.Background(), []byte(`{"lighthouseVersion":"2.0.0"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc123", g.ID)

	_, err = NewClient(testLogger(), srv.URL, "", 0).CreateGist(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrTokenRequired)
}
