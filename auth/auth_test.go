package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientSetsBearer(t *testing.T) {
	var calls int32
	tok := tokenServer(t, &calls)
	var got []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
	}))
	defer api.Close()

	c := NewClient(context.Background(), Conf{ClientID: "id", ClientSecret: "s", TokenURL: tok.URL}, nil)
	for i := 0; i < 2; i++ {
		resp, err := c.Get(api.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, []string{"Bearer abc", "Bearer abc"}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "token is reused")
}

func TestNewClientDisabled(t *testing.T) {
	base := &http.Client{}
	assert.Same(t, base, NewClient(context.Background(), Conf{}, base))
}

func TestConfValidate(t *testing.T) {
	assert.NoError(t, Conf{}.Validate())
	assert.Error(t, Conf{ClientID: "id"}.Validate())
	assert.NoError(t, Conf{ClientID: "id", TokenURL: "http://x"}.Validate())
}
