package topics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

const listing = `{"kind":"Listing","data":{"after":null,"before":null,"children":[
 {"kind":"t3","data":{"id":"a1","name":"t3_a1","title":"Mod announcement","score":9000,"stickied":true,"created_utc":1700000000}},
 {"kind":"t3","data":{"id":"a2","name":"t3_a2","title":"Saturn's rings are younger than dinosaurs","score":500,"created_utc":1700000000}},
 {"kind":"t3","data":{"id":"a3","name":"t3_a3","title":"A black hole was caught eating a star","score":300,"created_utc":1700000000}}
]}}`

func newTestReddit(t *testing.T) *Reddit {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listing))
	}))
	t.Cleanup(srv.Close)

	r, err := NewReddit([]string{"space"}, logrus.NewEntry(logrus.New()), reddit.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return r
}

func TestRedditPickPrefersHintThenScore(t *testing.T) {
	r := newTestReddit(t)

	title, err := r.Pick(context.Background(), "black hole")
	require.NoError(t, err)
	assert.Equal(t, "A black hole was caught eating a star", title)

	title, err = r.Pick(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Saturn's rings are younger than dinosaurs", title)

	_, err = r.Pick(context.Background(), "")
	assert.Error(t, err)
}

func TestNewRedditNeedsSubreddits(t *testing.T) {
	_, err := NewReddit(nil, logrus.NewEntry(logrus.New()))
	assert.Error(t, err)
}
