package device

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud/cloudtest"
)

const testDSN = "AC000W000000001"

func TestManager_FetchDevices(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/apiv1/devices.json", http.StatusOK, `[
		{"device":{"key":11,"dsn":"AC000W000000001","product_name":"Lamp","connection_status":"Online","lan_enabled":true}},
		{"device":{"key":12,"dsn":"AC000W000000002","product_name":"Plug","grant":{"user_id":3,"operation":"read"}}}
	]`)

	devices, err := NewManager(srv.Client).FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	want := []Device{
		{Key: 11, DSN: "AC000W000000001", ProductName: "Lamp", ConnectionStatus: StatusOnline, LANEnabled: true},
		{Key: 12, DSN: "AC000W000000002", ProductName: "Plug", Grant: &Grant{UserID: 3, Operation: "read"}},
	}
	if diff := cmp.Diff(want, devices); diff != "" {
		t.Errorf("FetchDevices() mismatch (-want +got):\n%s", diff)
	}
	if got := srv.Last().Auth; got != "auth_token "+cloudtest.Token {
		t.Errorf("Authorization = %q", got)
	}
}

func TestManager_FetchDevice(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/apiv1/dsns/"+testDSN+".json", http.StatusOK,
		`{"device":{"key":11,"dsn":"AC000W000000001","sw_version":"1.2"}}`)
	mgr := NewManager(srv.Client)

	d, err := mgr.FetchDevice(context.Background(), testDSN)
	if err != nil {
		t.Fatalf("FetchDevice() error = %v", err)
	}
	if d.SWVersion != "1.2" {
		t.Errorf("SWVersion = %q", d.SWVersion)
	}

	if _, err := mgr.FetchDevice(context.Background(), ""); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("FetchDevice(\"\") error = %v, want InvalidArgument", err)
	}
	_, err = mgr.FetchDevice(context.Background(), "AC000W999")
	if !errors.Is(err, cloud.ErrServer) || cloud.StatusCode(err) != http.StatusNotFound {
		t.Errorf("FetchDevice(unknown) error = %v, want 404 server error", err)
	}
}

func TestManager_FetchProperties(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/apiv1/dsns/"+testDSN+"/properties.json", http.StatusOK, `[
		{"property":{"name":"Blue_LED","base_type":"boolean","direction":"input","value":1,"ack_enabled":true}},
		{"property":{"name":"Blue_button","base_type":"boolean","direction":"output","read_only":true,"value":0}}
	]`)

	props, err := NewManager(srv.Client).FetchProperties(context.Background(), testDSN, "Blue_LED", "Blue_button")
	if err != nil {
		t.Fatalf("FetchProperties() error = %v", err)
	}
	want := []Property{
		{Name: "Blue_LED", BaseType: BaseTypeBoolean, Direction: DirectionInput, Value: float64(1), AckEnabled: true},
		{Name: "Blue_button", BaseType: BaseTypeBoolean, Direction: DirectionOutput, ReadOnly: true, Value: float64(0)},
	}
	if diff := cmp.Diff(want, props); diff != "" {
		t.Errorf("FetchProperties() mismatch (-want +got):\n%s", diff)
	}

	q, _ := url.ParseQuery(srv.Last().RawQuery)
	if diff := cmp.Diff([]string{"Blue_LED", "Blue_button"}, q["names[]"]); diff != "" {
		t.Errorf("names[] mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_FetchDatapoints(t *testing.T) {
	srv := cloudtest.New(t)
	path := "/apiv1/dsns/" + testDSN + "/properties/Blue_LED/datapoints.json"
	srv.Handle(http.MethodGet, path, http.StatusOK,
		`[{"datapoint":{"id":"d2","value":1,"created_at":"2026-03-01T10:00:01Z"}},{"datapoint":{"id":"d1","value":0}}]`)
	mgr := NewManager(srv.Client)
	ctx := context.Background()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	points, err := mgr.FetchDatapoints(ctx, testDSN, "Blue_LED", 500, from, to)
	if err != nil {
		t.Fatalf("FetchDatapoints() error = %v", err)
	}
	if len(points) != 2 || points[0].ID != "d2" {
		t.Errorf("FetchDatapoints() = %+v", points)
	}

	q, _ := url.ParseQuery(srv.Last().RawQuery)
	wantQuery := url.Values{
		"limit":                        {"100"},
		"filter[created_at_since_date]": {"2026-03-01T00:00:00Z"},
		"filter[created_at_end_date]":   {"2026-03-02T00:00:00Z"},
	}
	if diff := cmp.Diff(wantQuery, q); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}

	if _, err := mgr.FetchDatapoints(ctx, testDSN, "Blue_LED", 5, to, from); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("reversed window error = %v, want InvalidArgument", err)
	}
	if _, err := mgr.FetchDatapoints(ctx, testDSN, "", 5, time.Time{}, time.Time{}); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("missing property error = %v, want InvalidArgument", err)
	}
}

func TestManager_CreateDatapoint(t *testing.T) {
	srv := cloudtest.New(t)
	path := "/apiv1/dsns/" + testDSN + "/properties/Blue_LED/datapoints.json"
	var source atomic.Value
	srv.HandleFunc(http.MethodPost, path, func(w http.ResponseWriter, r *http.Request) {
		source.Store(r.Header.Get("x-ayla-source"))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"datapoint":{"id":"dp1","value":1,"metadata":{"by":"test"}}}`) //nolint:errcheck // test server
	})
	mgr := NewManager(srv.Client)
	ctx := context.Background()
	prop := &Property{Name: "Blue_LED", BaseType: BaseTypeBoolean, Direction: DirectionInput}

	dp, err := mgr.CreateDatapoint(ctx, testDSN, prop, true, map[string]any{"by": "test"})
	if err != nil {
		t.Fatalf("CreateDatapoint() error = %v", err)
	}
	if dp.ID != "dp1" {
		t.Errorf("datapoint id = %q", dp.ID)
	}
	if got := source.Load(); got != "Mobile" {
		t.Errorf("x-ayla-source = %v, want Mobile", got)
	}
	body := srv.Last().JSON(t)
	want := map[string]any{"datapoint": map[string]any{"value": float64(1), "metadata": map[string]any{"by": "test"}}}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}

	t.Run("rejects output property", func(t *testing.T) {
		out := &Property{Name: "Blue_button", BaseType: BaseTypeBoolean, Direction: DirectionOutput}
		if _, err := mgr.CreateDatapoint(ctx, testDSN, out, 1, nil); !errors.Is(err, cloud.ErrInvalidArgument) {
			t.Errorf("error = %v, want InvalidArgument", err)
		}
	})

	t.Run("rejects bad value", func(t *testing.T) {
		n := len(srv.Requests())
		if _, err := mgr.CreateDatapoint(ctx, testDSN, prop, "maybe", nil); !errors.Is(err, cloud.ErrInvalidArgument) {
			t.Errorf("error = %v, want InvalidArgument", err)
		}
		if len(srv.Requests()) != n {
			t.Error("invalid value must not reach the cloud")
		}
	})
}

func TestManager_CreateDatapoint_Ack(t *testing.T) {
	const base = "/apiv1/dsns/" + testDSN + "/properties/Blue_LED/datapoints"
	prop := &Property{Name: "Blue_LED", BaseType: BaseTypeBoolean, Direction: DirectionInput, AckEnabled: true}

	tests := []struct {
		name      string
		ackOnPoll int32
		wantErr   error
		wantPolls int
	}{
		{"acked on second poll", 2, nil, 2},
		{"never acked", 0, ErrAckTimeout, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := cloudtest.New(t)
			srv.Handle(http.MethodPost, base+".json", http.StatusCreated, `{"datapoint":{"id":"dp1","value":1}}`)
			var polls atomic.Int32
			srv.HandleFunc(http.MethodGet, base+"/dp1.json", func(w http.ResponseWriter, _ *http.Request) {
				n := polls.Add(1)
				if tt.ackOnPoll != 0 && n >= tt.ackOnPoll {
					io.WriteString(w, `{"datapoint":{"id":"dp1","value":1,"acked_at":"2026-03-01T10:00:00Z","ack_status":0}}`) //nolint:errcheck // test server
					return
				}
				io.WriteString(w, `{"datapoint":{"id":"dp1","value":1}}`) //nolint:errcheck // test server
			})

			mgr := NewManager(srv.Client)
			mgr.SetAckPolling(3, time.Millisecond)
			dp, err := mgr.CreateDatapoint(context.Background(), testDSN, prop, 1, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateDatapoint() error = %v, want %v", err, tt.wantErr)
			}
			if dp == nil || dp.ID != "dp1" {
				t.Fatalf("CreateDatapoint() datapoint = %+v", dp)
			}
			if tt.wantErr == nil && !dp.Acked() {
				t.Error("datapoint should be acked")
			}
			if got := srv.Count(http.MethodGet, base+"/dp1.json"); got != tt.wantPolls {
				t.Errorf("polls = %d, want %d", got, tt.wantPolls)
			}
		})
	}
}

func TestManager_CreateDatapoint_AckCanceled(t *testing.T) {
	const base = "/apiv1/dsns/" + testDSN + "/properties/Blue_LED/datapoints"
	srv := cloudtest.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	srv.HandleFunc(http.MethodPost, base+".json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"datapoint":{"id":"dp1","value":1}}`) //nolint:errcheck // test server
	})

	mgr := NewManager(srv.Client)
	mgr.SetAckPolling(5, time.Hour)
	prop := &Property{Name: "Blue_LED", BaseType: BaseTypeBoolean, AckEnabled: true}

	done := make(chan error, 1)
	go func() {
		_, err := mgr.CreateDatapoint(ctx, testDSN, prop, 1, nil)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, cloud.ErrCanceled) {
			t.Errorf("error = %v, want Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("CreateDatapoint did not return after cancel")
	}
}

func TestManager_CreateBatchDatapoints(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodPost, "/apiv1/batch_datapoints.json", http.StatusCreated, `[
		{"dsn":"AC000W000000001","name":"Blue_LED","status":201,"datapoint":{"value":1}},
		{"dsn":"AC000W000000002","name":"Green_LED","status":404}
	]`)
	mgr := NewManager(srv.Client)
	ctx := context.Background()

	if _, err := mgr.CreateBatchDatapoints(ctx, nil); !errors.Is(err, cloud.ErrPrecondition) {
		t.Errorf("empty batch error = %v, want Precondition", err)
	}

	results, err := mgr.CreateBatchDatapoints(ctx, []BatchDatapoint{
		{DSN: "AC000W000000001", Property: "Blue_LED", Value: 1},
		{DSN: "AC000W000000002", Property: "Green_LED", Value: 0},
	})
	if err != nil {
		t.Fatalf("CreateBatchDatapoints() error = %v", err)
	}
	if len(results) != 2 || !results[0].OK() || results[1].OK() {
		t.Errorf("results = %+v", results)
	}

	body := srv.Last().JSON(t)
	want := map[string]any{"batch_datapoints": []any{
		map[string]any{"datapoint": map[string]any{"value": float64(1)}, "dsn": "AC000W000000001", "name": "Blue_LED"},
		map[string]any{"datapoint": map[string]any{"value": float64(0)}, "dsn": "AC000W000000002", "name": "Green_LED"},
	}}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("batch body mismatch (-want +got):\n%s", diff)
	}

	if _, err := mgr.CreateBatchDatapoints(ctx, []BatchDatapoint{{DSN: "x"}}); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("incomplete entry error = %v, want InvalidArgument", err)
	}
}

func TestManager_DeviceData(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodPost, "/apiv1/dsns/"+testDSN+"/data.json", http.StatusCreated,
		`{"datum":{"key":"room","value":"hall"}}`)

	d, err := NewManager(srv.Client).Data(testDSN).Create(context.Background(), "room", "hall")
	if err != nil {
		t.Fatalf("Data().Create() error = %v", err)
	}
	if d.Value != "hall" {
		t.Errorf("datum = %+v", d)
	}
}
