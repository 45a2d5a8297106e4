package ipfs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestAdd(t *testing.T) {
	t.Parallel()

	var gotName string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/add", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotName = fh.Filename
		gotBody, _ = io.ReadAll(f)

		_ = json.NewEncoder(w).Encode(map[string]string{
			"Name": fh.Filename,
			"Hash": "QmTestCID",
			"Size": "11",
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIEndpoint: srv.URL, Gateway: "https://ipfs.io/"}, srv.Client(), zerolog.Nop())
	require.NoError(t, err)

	cid, gatewayURL, err := c.Add(context.Background(), "lease.pdf", strings.NewReader("lease bytes"))
	require.NoError(t, err)
	require.Equal(t, "QmTestCID", cid)
	require.Equal(t, "https://ipfs.io/ipfs/QmTestCID", gatewayURL)
	require.Equal(t, "lease.pdf", gotName)
	require.Equal(t, []byte("lease bytes"), gotBody)
}

func TestAddNodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIEndpoint: srv.URL, Gateway: "https://ipfs.io"}, srv.Client(), zerolog.Nop())
	require.NoError(t, err)

	_, _, err = c.Add(context.Background(), "x", strings.NewReader("y"))
	require.ErrorContains(t, err, "node overloaded")
}

func TestAddMissingCID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"Name": "x"})
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIEndpoint: srv.URL, Gateway: "https://ipfs.io"}, srv.Client(), zerolog.Nop())
	require.NoError(t, err)

	_, _, err = c.Add(context.Background(), "x", strings.NewReader("y"))
	require.ErrorContains(t, err, "missing CID")
}
