package device

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud/cloudtest"
)

const (
	blobCreatePath   = "/apiv1/dsns/" + testDSN + "/properties/snapshot/datapoints.json"
	blobLocationPath = "/apiv1/dsns/" + testDSN + "/properties/snapshot/datapoints/dp9.json"
)

func blobServer(t *testing.T) *cloudtest.Server {
	t.Helper()
	srv := cloudtest.New(t)
	srv.HandleFunc(http.MethodPost, blobCreatePath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"datapoint":{"id":"dp9","value":"`+srv.URL+blobLocationPath+`","file":"`+srv.URL+`/files/dp9"}}`) //nolint:errcheck // test server
	})
	srv.Handle(http.MethodPut, "/files/dp9", http.StatusOK, "")
	srv.Handle(http.MethodPut, blobLocationPath, http.StatusOK, `{}`)
	srv.HandleFunc(http.MethodGet, blobLocationPath, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"datapoint":{"file":"`+srv.URL+`/files/dp9"}}`) //nolint:errcheck // test server
	})
	srv.HandleFunc(http.MethodGet, "/files/dp9", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		io.WriteString(w, "blob-contents") //nolint:errcheck // test server
	})
	return srv
}

func TestManager_UploadBlob(t *testing.T) {
	srv := blobServer(t)
	src := filepath.Join(t.TempDir(), "snap.jpg")
	if err := os.WriteFile(src, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	var last int64
	dp, err := NewManager(srv.Client).UploadBlob(context.Background(), testDSN, "snapshot", src,
		func(done, total int64) bool {
			last = done
			return true
		})
	if err != nil {
		t.Fatalf("UploadBlob() error = %v", err)
	}
	if !dp.Closed || dp.ID != "dp9" {
		t.Errorf("datapoint = %+v", dp)
	}
	if last != int64(len("jpeg-bytes")) {
		t.Errorf("progress ended at %d", last)
	}

	reqs := srv.Requests()
	if len(reqs) != 3 {
		t.Fatalf("got %d requests, want create, upload, close", len(reqs))
	}
	if string(reqs[1].Body) != "jpeg-bytes" || reqs[1].Auth != "" {
		t.Errorf("upload request = %+v", reqs[1])
	}
	closed := reqs[2].JSON(t)["datapoint"].(map[string]any)
	if reqs[2].Path != blobLocationPath || closed["closed"] != true {
		t.Errorf("close request = %s %v", reqs[2].Path, closed)
	}
}

func TestManager_UploadBlob_CanceledBetweenSteps(t *testing.T) {
	srv := cloudtest.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.HandleFunc(http.MethodPost, blobCreatePath, func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"datapoint":{"id":"dp9","value":"`+srv.URL+blobLocationPath+`","file":"`+srv.URL+`/files/dp9"}}`) //nolint:errcheck // test server
	})

	src := filepath.Join(t.TempDir(), "snap.jpg")
	if err := os.WriteFile(src, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewManager(srv.Client).UploadBlob(ctx, testDSN, "snapshot", src, nil)
	if !errors.Is(err, cloud.ErrCanceled) {
		t.Fatalf("UploadBlob() error = %v, want Canceled", err)
	}
	if n := srv.Count(http.MethodPut, "/files/dp9"); n != 0 {
		t.Errorf("upload ran %d times after cancel", n)
	}
}

func TestManager_DownloadBlob(t *testing.T) {
	tests := []struct {
		name        string
		markFetched bool
		wantPuts    int
	}{
		{"without fetched mark", false, 0},
		{"with fetched mark", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := blobServer(t)
			dst := filepath.Join(t.TempDir(), "out", "snap.jpg")
			dp := &Datapoint{ID: "dp9", Value: srv.URL + blobLocationPath}

			if err := NewManager(srv.Client).DownloadBlob(context.Background(), dp, dst, nil, tt.markFetched); err != nil {
				t.Fatalf("DownloadBlob() error = %v", err)
			}
			got, err := os.ReadFile(dst)
			if err != nil || string(got) != "blob-contents" {
				t.Errorf("downloaded %q, %v", got, err)
			}
			if n := srv.Count(http.MethodPut, blobLocationPath); n != tt.wantPuts {
				t.Errorf("fetched marks = %d, want %d", n, tt.wantPuts)
			}
			if tt.markFetched {
				body := srv.Last().JSON(t)["datapoint"].(map[string]any)
				if body["fetched"] != "true" {
					t.Errorf("fetched body = %v", body)
				}
			}
		})
	}
}

func TestManager_DownloadBlob_ProgressAbort(t *testing.T) {
	srv := blobServer(t)
	dst := filepath.Join(t.TempDir(), "snap.jpg")
	dp := &Datapoint{ID: "dp9", Value: srv.URL + blobLocationPath}

	err := NewManager(srv.Client).DownloadBlob(context.Background(), dp, dst, func(int64, int64) bool { return false }, true)
	if !errors.Is(err, cloud.ErrCanceled) {
		t.Fatalf("DownloadBlob() error = %v, want Canceled", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("aborted download left a file: %v", err)
	}
	if n := srv.Count(http.MethodPut, blobLocationPath); n != 0 {
		t.Error("aborted download must not be marked fetched")
	}
}

func TestManager_DownloadBlob_NoLocation(t *testing.T) {
	srv := cloudtest.New(t)
	err := NewManager(srv.Client).DownloadBlob(context.Background(), &Datapoint{Value: 5}, "x", nil, false)
	if !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("DownloadBlob() error = %v, want InvalidArgument", err)
	}
}
