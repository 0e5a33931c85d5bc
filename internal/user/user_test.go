package user

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud/cloudtest"
)

func TestFetchUpdateProfile(t *testing.T) {
	ctx := context.Background()
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/users/get_user_profile.json", http.StatusOK,
		`{"id":7,"email":"a@example.com","firstname":"Ada","lastname":"L","country":"UK"}`)
	srv.Handle(http.MethodPut, "/users.json", http.StatusOK, `{}`)

	svc := New(srv.Client)
	p, err := svc.FetchProfile(ctx)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	want := &Profile{ID: 7, Email: "a@example.com", Firstname: "Ada", Lastname: "L", Country: "UK"}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("FetchProfile() mismatch (-want +got):\n%s", diff)
	}

	p.City = "London"
	if err := svc.UpdateProfile(ctx, p); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	fields := srv.Last().JSON(t)["user"].(map[string]any)
	if fields["city"] != "London" || fields["firstname"] != "Ada" {
		t.Errorf("update fields = %v", fields)
	}
	if _, ok := fields["email"]; ok {
		t.Error("profile update must not send the email")
	}
}

func TestSignUp(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodPost, "/users.json", http.StatusCreated, `{}`)

	svc := New(srv.Client)
	p := &Profile{Email: "new@example.com", Firstname: "N", Lastname: "U", Country: "US"}
	tmpl := &EmailTemplate{ID: "tmpl-1", Subject: "Welcome"}
	if err := svc.SignUp(context.Background(), p, "pw", tmpl); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	want := map[string]any{
		"user": map[string]any{
			"email":     "new@example.com",
			"password":  "pw",
			"firstname": "N",
			"lastname":  "U",
			"country":   "US",
			"application": map[string]any{
				"app_id":     "app-id",
				"app_secret": "app-secret",
			},
		},
		"email_template_id": "tmpl-1",
		"email_subject":     "Welcome",
	}
	if diff := cmp.Diff(want, srv.Last().JSON(t)); diff != "" {
		t.Errorf("sign up body mismatch (-want +got):\n%s", diff)
	}
}

func TestMailFlows(t *testing.T) {
	ctx := context.Background()
	srv := cloudtest.New(t)
	srv.Handle(http.MethodPost, "/users/confirmation.json", http.StatusOK, `{}`)
	srv.Handle(http.MethodPut, "/users/confirmation.json", http.StatusOK, `{}`)
	srv.Handle(http.MethodPost, "/users/password.json", http.StatusOK, `{}`)
	srv.Handle(http.MethodPut, "/users/password.json", http.StatusOK, `{}`)
	svc := New(srv.Client)

	if err := svc.ResendConfirmation(ctx, "a@example.com", nil); err != nil {
		t.Fatalf("ResendConfirmation() error = %v", err)
	}
	user := srv.Last().JSON(t)["user"].(map[string]any)
	if user["email"] != "a@example.com" || user["application"] == nil {
		t.Errorf("confirmation body = %v", user)
	}

	if err := svc.ConfirmSignUp(ctx, "tok"); err != nil {
		t.Fatalf("ConfirmSignUp() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"confirmation_token": "tok"}, srv.Last().JSON(t)); diff != "" {
		t.Errorf("confirm body mismatch (-want +got):\n%s", diff)
	}

	if err := svc.RequestPasswordReset(ctx, "a@example.com", &EmailTemplate{ID: "t"}); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	if srv.Last().JSON(t)["email_template_id"] != "t" {
		t.Error("reset request should carry the template id")
	}

	if err := svc.ResetPassword(ctx, "rt", "new", "new"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	want := map[string]any{"user": map[string]any{
		"reset_password_token":  "rt",
		"password":              "new",
		"password_confirmation": "new",
	}}
	if diff := cmp.Diff(want, srv.Last().JSON(t)); diff != "" {
		t.Errorf("reset body mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationErrors(t *testing.T) {
	ctx := context.Background()
	srv := cloudtest.New(t)
	svc := New(srv.Client)

	tests := []struct {
		name string
		call func() error
	}{
		{"change password empty", func() error { return svc.ChangePassword(ctx, "", "x") }},
		{"change password same", func() error { return svc.ChangePassword(ctx, "x", "x") }},
		{"update email", func() error { return svc.UpdateEmail(ctx, "not-an-email") }},
		{"reset mismatch", func() error { return svc.ResetPassword(ctx, "t", "a", "b") }},
		{"reset no token", func() error { return svc.ResetPassword(ctx, "", "a", "a") }},
		{"confirm no token", func() error { return svc.ConfirmSignUp(ctx, "") }},
		{"sign up no email", func() error { return svc.SignUp(ctx, &Profile{Firstname: "a", Lastname: "b"}, "pw", nil) }},
		{"sign up no password", func() error {
			return svc.SignUp(ctx, &Profile{Email: "a@b", Firstname: "a", Lastname: "b"}, "", nil)
		}},
		{"resend bad email", func() error { return svc.ResendConfirmation(ctx, "x", nil) }},
		{"update nil profile", func() error { return svc.UpdateProfile(ctx, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, cloud.ErrInvalidArgument) {
				t.Errorf("error = %v, want invalid argument", err)
			}
		})
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("invalid calls reached the cloud %d times", n)
	}
}

func TestChangePasswordEmailDelete(t *testing.T) {
	ctx := context.Background()
	srv := cloudtest.New(t)
	srv.Handle(http.MethodPut, "/users.json", http.StatusOK, `{}`)
	srv.Handle(http.MethodPut, "/users/update_email.json", http.StatusOK, `{}`)
	srv.Handle(http.MethodDelete, "/users.json", http.StatusOK, ``)
	svc := New(srv.Client)

	if err := svc.ChangePassword(ctx, "old", "new"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"user": map[string]any{"current_password": "old", "password": "new"}}, srv.Last().JSON(t)); diff != "" {
		t.Errorf("change password body mismatch (-want +got):\n%s", diff)
	}

	if err := svc.UpdateEmail(ctx, "b@example.com"); err != nil {
		t.Fatalf("UpdateEmail() error = %v", err)
	}
	if err := svc.DeleteAccount(ctx); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if srv.Count(http.MethodDelete, "/users.json") != 1 {
		t.Error("DeleteAccount() did not call DELETE users.json")
	}
}

func TestProfile_AuthError(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/users/get_user_profile.json", http.StatusUnauthorized, `{"error":"Your access token is invalid"}`)

	_, err := New(srv.Client).FetchProfile(context.Background())
	if !errors.Is(err, cloud.ErrAuth) {
		t.Errorf("FetchProfile() error = %v, want auth error", err)
	}
}
