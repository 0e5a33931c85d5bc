package user

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud/cloudtest"
)

func TestContacts(t *testing.T) {
	ctx := context.Background()
	srv := cloudtest.New(t)
	srv.Handle(http.MethodPost, "/api/v1/users/contacts.json", http.StatusCreated,
		`{"contact":{"id":12,"display_name":"Mum","email":"mum@example.com","email_accept":true}}`)
	srv.Handle(http.MethodGet, "/api/v1/users/contacts.json", http.StatusOK,
		`[{"contact":{"id":12,"display_name":"Mum"}},{"contact":{"id":13,"display_name":"Dad"}}]`)
	srv.Handle(http.MethodGet, "/api/v1/users/contacts/12.json", http.StatusOK,
		`{"contact":{"id":12,"display_name":"Mum"}}`)
	srv.Handle(http.MethodPut, "/api/v1/users/contacts/12.json", http.StatusOK,
		`{"contact":{"id":12,"display_name":"Mother"}}`)
	srv.Handle(http.MethodDelete, "/api/v1/users/contacts/12.json", http.StatusOK, ``)
	svc := New(srv.Client)

	c, err := svc.CreateContact(ctx, &Contact{DisplayName: "Mum", Email: "mum@example.com", EmailAccept: true})
	if err != nil {
		t.Fatalf("CreateContact() error = %v", err)
	}
	if c.ID != 12 {
		t.Errorf("CreateContact() id = %d", c.ID)
	}
	body := srv.Last().JSON(t)["contact"].(map[string]any)
	if body["display_name"] != "Mum" || body["email_accept"] != true {
		t.Errorf("create body = %v", body)
	}

	all, err := svc.FetchContacts(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("FetchContacts() = %d contacts, %v", len(all), err)
	}
	if _, err := svc.FetchContact(ctx, 12); err != nil {
		t.Fatalf("FetchContact() error = %v", err)
	}

	c.DisplayName = "Mother"
	updated, err := svc.UpdateContact(ctx, c)
	if err != nil {
		t.Fatalf("UpdateContact() error = %v", err)
	}
	if updated.DisplayName != "Mother" {
		t.Errorf("UpdateContact() = %+v", updated)
	}
	if err := svc.DeleteContact(ctx, 12); err != nil {
		t.Fatalf("DeleteContact() error = %v", err)
	}

	if _, err := svc.UpdateContact(ctx, &Contact{DisplayName: "x"}); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("UpdateContact() without id error = %v", err)
	}
	if _, err := svc.CreateContact(ctx, &Contact{DisplayName: "x"}); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("CreateContact() without email or phone error = %v", err)
	}
}
