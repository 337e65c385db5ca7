package chrome

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/pagekit/internal/testutil"
)

const integrationPort = 19620

func TestIntegration_NavigateReportsStatus(t *testing.T) {
	testutil.StartChrome(t, integrationPort)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<title>Home</title><h1>Home</h1>")
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := Connect(ctx, "localhost", integrationPort)
	require.NoError(t, err)
	defer client.Close()

	target, err := client.NewTab(ctx, "")
	require.NoError(t, err)
	defer client.CloseTab(ctx, target)

	res, err := client.NavigateAndWait(ctx, target, srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status, "redirects report the final document")

	title, err := client.GetTitle(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, "Home", title)

	res, err = client.NavigateAndWait(ctx, target, srv.URL+"/missing")
	require.NoError(t, err)
	assert.Equal(t, 404, res.Status)

	png, err := client.Screenshot(ctx, target, ScreenshotOptions{})
	require.NoError(t, err)
	require.Greater(t, len(png), 4)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}
