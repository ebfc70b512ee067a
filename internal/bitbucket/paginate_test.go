package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectPagesHandler serves two pages of projects keyed off the start
// parameter, with a page size of 2.
func projectPagesHandler(calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("start") {
		case "0":
			fmt.Fprint(w, `{
				"values": [
					{"key":"OPS","id":1,"name":"Operations","public":false},
					{"key":"DEV","id":2,"name":"Development","public":true}
				],
				"size": 2, "limit": 2, "isLastPage": false, "start": 0, "nextPageStart": 2
			}`)
		case "2":
			fmt.Fprint(w, `{
				"values": [{"key":"QA","id":3,"name":"Quality","public":false}],
				"size": 1, "limit": 2, "isLastPage": true, "start": 2
			}`)
		default:
			http.Error(w, "unexpected start", http.StatusBadRequest)
		}
	}
}

func TestPaginateTraversesAllPages(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, -1, projectPagesHandler(&calls))

	projects, err := Collect(client.ListProjects(context.Background()))
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "OPS", projects[0].Key)
	assert.Equal(t, "QA", projects[2].Key)
	assert.Equal(t, int32(2), calls.Load(), "one request per page")
}

func TestPaginateIsLazy(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, -1, projectPagesHandler(&calls))

	for project, err := range client.ListProjects(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, "OPS", project.Key)
		break
	}
	assert.Equal(t, int32(1), calls.Load(), "second page must not be fetched")
}

func TestPaginateRestartsFromFirstPage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, -1, projectPagesHandler(&calls))
	seq := client.ListProjects(context.Background())

	for range 2 {
		projects, err := Collect(seq)
		require.NoError(t, err)
		assert.Len(t, projects, 3)
	}
	assert.Equal(t, int32(4), calls.Load(), "each traversal starts over")
}

func TestPaginateSurfacesMidTraversalError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, -1, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, `{
				"values": [{"key":"OPS","id":1,"name":"Operations","public":false}],
				"size": 1, "limit": 2, "isLastPage": false, "start": 0, "nextPageStart": 2
			}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	var seen []Project
	var lastErr error
	for project, err := range client.ListProjects(context.Background()) {
		if err != nil {
			lastErr = err
			break
		}
		seen = append(seen, project)
	}
	assert.Len(t, seen, 1, "values before the failure are still yielded")
	var serverErr *ServerError
	require.ErrorAs(t, lastErr, &serverErr)
}

func TestPaginateCancelledContext(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, -1, projectPagesHandler(&calls))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(client.ListProjects(ctx))
	var cancelledErr *CancelledError
	require.ErrorAs(t, err, &cancelledErr)
	assert.Equal(t, int32(0), calls.Load())
}

func TestPaginateCancelMidTraversal(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, -1, projectPagesHandler(&calls))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int
	var lastErr error
	for _, err := range client.ListProjects(ctx) {
		if err != nil {
			lastErr = err
			break
		}
		seen++
		if seen == 2 {
			// First page drained; cancel before the second fetch.
			cancel()
		}
	}
	var cancelledErr *CancelledError
	require.ErrorAs(t, lastErr, &cancelledErr)
	assert.Equal(t, 2, seen)
	assert.Equal(t, int32(1), calls.Load(), "no request after cancellation")
}

func TestBrowseTraversesChildrenPages(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, -1, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/rest/api/1.0/projects/OPS/repos/deploy-scripts/browse", r.URL.Path)
		switch r.URL.Query().Get("start") {
		case "0":
			fmt.Fprint(w, `{
				"path": {"toString": ""},
				"revision": "refs/heads/main",
				"children": {
					"values": [
						{"path": {"name": "README.md", "toString": "README.md"}, "type": "FILE"},
						{"path": {"name": "scripts", "toString": "scripts"}, "type": "DIRECTORY"}
					],
					"size": 2, "limit": 2, "isLastPage": false, "start": 0, "nextPageStart": 2
				}
			}`)
		default:
			fmt.Fprint(w, `{
				"path": {"toString": ""},
				"children": {
					"values": [{"path": {"name": "Makefile", "toString": "Makefile"}, "type": "FILE"}],
					"size": 1, "limit": 2, "isLastPage": true, "start": 2
				}
			}`)
		}
	})

	entries, err := Collect(client.Browse(context.Background(), "OPS", "deploy-scripts", "", ""))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "DIRECTORY", entries[1].Type)
	assert.Equal(t, int32(2), calls.Load())
}
