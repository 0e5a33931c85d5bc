package message

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud/cloudtest"
)

const basePath = "/messageservice/v1/destinations"

func TestNewSMS_Provider(t *testing.T) {
	tests := []struct {
		countryCode string
		want        string
	}{
		{"1", ProviderTwilio},
		{"44", ProviderTwilio},
		{"86", ProviderYunpian},
		{"+86", ProviderYunpian},
	}
	for _, tt := range tests {
		t.Run(tt.countryCode, func(t *testing.T) {
			if got := NewSMS("5550100", tt.countryCode, "t", "b").Provider; got != tt.want {
				t.Errorf("provider = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDestination_Validate(t *testing.T) {
	tests := []struct {
		name    string
		dest    *Destination
		wantErr bool
	}{
		{"sms", NewSMS("5550100", "1", "t", "b"), false},
		{"email", NewEmail("a@example.com", "t", "b", "", ""), false},
		{"push", NewPush(ProviderFCM, "app", "tok", "t", "b", "", ""), false},
		{"push bad provider", NewPush("pager", "app", "tok", "t", "b", "", ""), true},
		{"sms no country", NewSMS("5550100", "", "t", "b"), true},
		{"no target", &Destination{Type: TypeEmail}, true},
		{"unknown type", &Destination{Type: "fax", DeliverTo: "x"}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dest.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_CRUD(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodPost, basePath, http.StatusCreated,
		`{"destination":{"uuid":"d-1","type":"email","provider":"smtp","deliver_to":"a@example.com","title":"t"}}`)
	srv.Handle(http.MethodGet, basePath+"/d-1", http.StatusOK,
		`{"destination":{"uuid":"d-1","type":"email","provider":"smtp","deliver_to":"a@example.com","title":"t"}}`)
	srv.Handle(http.MethodPut, basePath+"/d-1", http.StatusOK,
		`{"destination":{"uuid":"d-1","type":"email","provider":"smtp","deliver_to":"a@example.com","title":"t2"}}`)
	srv.Handle(http.MethodDelete, basePath+"/d-1", http.StatusOK, ``)
	svc := New(srv.Client)
	ctx := context.Background()

	created, err := svc.Create(ctx, NewEmail("a@example.com", "t", "", "", ""))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	body := srv.Last().JSON(t)["destination"].(map[string]any)
	if body["provider"] != ProviderSMTP || body["deliver_to"] != "a@example.com" {
		t.Errorf("create body = %v", body)
	}

	fetched, err := svc.Fetch(ctx, "d-1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if diff := cmp.Diff(created, fetched); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}

	fetched.Title = "t2"
	updated, err := svc.Update(ctx, fetched)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "t2" {
		t.Errorf("Title = %q, want t2", updated.Title)
	}
	if err := svc.Delete(ctx, "d-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.Update(ctx, NewEmail("a@example.com", "t", "", "", "")); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("Update(no uuid) error = %v, want InvalidArgument", err)
	}
	if err := svc.Delete(ctx, ""); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("Delete(\"\") error = %v, want InvalidArgument", err)
	}
}

func TestService_FetchByTypes(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, basePath, http.StatusOK, `{"destinations":[
		{"uuid":"d-1","type":"sms","deliver_to":"5550100","country_code":"1"},
		{"uuid":"d-2","type":"push","deliver_to":"tok","provider":"fcm","app_id":"app"}
	]}`)

	got, err := New(srv.Client).FetchByTypes(context.Background(), TypeSMS, TypePush)
	if err != nil {
		t.Fatalf("FetchByTypes() error = %v", err)
	}
	if len(got) != 2 || got[1].AppID != "app" {
		t.Errorf("FetchByTypes() = %+v", got)
	}
	q, _ := url.ParseQuery(srv.Last().RawQuery)
	if diff := cmp.Diff([]string{"sms", "push"}, q["type"]); diff != "" {
		t.Errorf("type query mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Batch(t *testing.T) {
	t.Run("create stops at first failure", func(t *testing.T) {
		srv := cloudtest.New(t)
		var calls atomic.Int32
		srv.HandleFunc(http.MethodPost, basePath, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 2 {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			w.Write([]byte(`{"destination":{"uuid":"d-1","type":"sms","deliver_to":"1","country_code":"1"}}`)) //nolint:errcheck // test server
		})
		dests := []*Destination{
			NewSMS("1", "1", "", ""),
			NewSMS("2", "1", "", ""),
			NewSMS("3", "1", "", ""),
		}
		got, err := New(srv.Client).CreateAll(context.Background(), dests)
		if !errors.Is(err, cloud.ErrServer) {
			t.Fatalf("CreateAll() error = %v, want server error", err)
		}
		if len(got) != 1 || calls.Load() != 2 {
			t.Errorf("created %d, calls %d; want 1 and 2", len(got), calls.Load())
		}
	})

	t.Run("fetch all", func(t *testing.T) {
		srv := cloudtest.New(t)
		for _, id := range []string{"a", "b"} {
			srv.Handle(http.MethodGet, basePath+"/"+id, http.StatusOK,
				`{"destination":{"uuid":"`+id+`","type":"email","deliver_to":"x"}}`)
		}
		got, err := New(srv.Client).FetchAll(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		if len(got) != 2 || got[1].UUID != "b" {
			t.Errorf("FetchAll() = %+v", got)
		}
	})

	t.Run("delete canceled", func(t *testing.T) {
		srv := cloudtest.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		srv.HandleFunc(http.MethodDelete, basePath+"/a", func(w http.ResponseWriter, _ *http.Request) {
			cancel()
		})
		got, err := New(srv.Client).DeleteAll(ctx, []string{"a", "b"})
		if !errors.Is(err, cloud.ErrCanceled) {
			t.Fatalf("DeleteAll() error = %v, want Canceled", err)
		}
		if srv.Count(http.MethodDelete, basePath+"/b") != 0 {
			t.Error("second delete sent after cancel")
		}
		if len(got) > 1 {
			t.Errorf("deleted = %v", got)
		}
	})
}
