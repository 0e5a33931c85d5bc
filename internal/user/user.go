package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/datum"
)

// Profile is the user account as the user service reports it.
type Profile struct {
	ID               int64  `json:"id,omitempty"`
	UUID             string `json:"uuid,omitempty"`
	Email            string `json:"email,omitempty"`
	Firstname        string `json:"firstname,omitempty"`
	Lastname         string `json:"lastname,omitempty"`
	Country          string `json:"country,omitempty"`
	Street           string `json:"street,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Zip              string `json:"zip,omitempty"`
	PhoneCountryCode string `json:"phone_country_code,omitempty"`
	Phone            string `json:"phone,omitempty"`
	AylaDevKitNum    string `json:"ayla_dev_kit_num,omitempty"`
	Company          string `json:"company,omitempty"`
	TermsAccepted    bool   `json:"terms_accepted,omitempty"`
	OriginOemID      string `json:"origin_oem_id,omitempty"`
}

// editable returns the fields a profile update may change.
func (p *Profile) editable() map[string]string {
	return map[string]string{
		"firstname":          p.Firstname,
		"lastname":           p.Lastname,
		"country":            p.Country,
		"zip":                p.Zip,
		"phone_country_code": p.PhoneCountryCode,
		"phone":              p.Phone,
		"ayla_dev_kit_num":   p.AylaDevKitNum,
		"street":             p.Street,
		"city":               p.City,
		"state":              p.State,
		"company":            p.Company,
	}
}

// EmailTemplate selects a custom email for confirmation, reset and share mails.
type EmailTemplate struct {
	ID       string
	Subject  string
	BodyHTML string
}

func (t *EmailTemplate) addTo(body map[string]any) {
	if t == nil {
		return
	}
	if t.ID != "" {
		body["email_template_id"] = t.ID
	}
	if t.Subject != "" {
		body["email_subject"] = t.Subject
	}
	if t.BodyHTML != "" {
		body["email_body_html"] = t.BodyHTML
	}
}

type application struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

// Service groups the user service calls.
type Service struct {
	client *cloud.Client
}

// New creates a user service bound to client.
func New(client *cloud.Client) *Service {
	return &Service{client: client}
}

// Data returns the user's datum collection.
func (s *Service) Data() *datum.Client {
	return datum.ForUser(s.client)
}

func (s *Service) url(path string) (string, error) {
	return s.client.URL(cloud.ServiceUser, path)
}

func (s *Service) application() (application, error) {
	settings := s.client.Settings()
	if settings.AppID == "" || settings.AppSecret == "" {
		return application{}, cloud.InvalidArgument("app id and app secret are required")
	}
	return application{AppID: settings.AppID, AppSecret: settings.AppSecret}, nil
}

func validEmail(email string) bool {
	return strings.Contains(email, "@")
}

// FetchProfile returns the signed-in user's profile.
func (s *Service) FetchProfile(ctx context.Context) (*Profile, error) {
	u, err := s.url("users/get_user_profile.json")
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := s.client.Get(ctx, u, nil, &p); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile writes the editable fields of p.
func (s *Service) UpdateProfile(ctx context.Context, p *Profile) error {
	if p == nil {
		return cloud.InvalidArgument("profile is required")
	}
	u, err := s.url("users.json")
	if err != nil {
		return err
	}
	if err := s.client.Put(ctx, u, map[string]any{"user": p.editable()}, nil); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// SignUp creates an account. The user then confirms it through the
// emailed link, see ConfirmSignUp.
func (s *Service) SignUp(ctx context.Context, p *Profile, password string, tmpl *EmailTemplate) error {
	if p == nil || !validEmail(p.Email) {
		return cloud.InvalidArgument("a valid email is required")
	}
	if password == "" {
		return cloud.InvalidArgument("password is required")
	}
	if p.Firstname == "" || p.Lastname == "" {
		return cloud.InvalidArgument("first and last name are required")
	}
	app, err := s.application()
	if err != nil {
		return err
	}
	u, err := s.url("users.json")
	if err != nil {
		return err
	}

	fields := map[string]any{
		"email":       p.Email,
		"password":    password,
		"application": app,
	}
	for k, v := range p.editable() {
		if v != "" {
			fields[k] = v
		}
	}
	body := map[string]any{"user": fields}
	tmpl.addTo(body)

	if err := s.client.Post(ctx, u, body, nil); err != nil {
		return fmt.Errorf("signing up: %w", err)
	}
	return nil
}

// ResendConfirmation mails the sign-up confirmation link again.
func (s *Service) ResendConfirmation(ctx context.Context, email string, tmpl *EmailTemplate) error {
	return s.mailFlow(ctx, "users/confirmation.json", email, tmpl, "resending confirmation")
}

// ConfirmSignUp activates an account with the token from the confirmation mail.
func (s *Service) ConfirmSignUp(ctx context.Context, token string) error {
	if token == "" {
		return cloud.InvalidArgument("confirmation token is required")
	}
	u, err := s.url("users/confirmation.json")
	if err != nil {
		return err
	}
	if err := s.client.Put(ctx, u, map[string]string{"confirmation_token": token}, nil); err != nil {
		return fmt.Errorf("confirming sign up: %w", err)
	}
	return nil
}

// RequestPasswordReset mails a password reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, tmpl *EmailTemplate) error {
	return s.mailFlow(ctx, "users/password.json", email, tmpl, "requesting password reset")
}

func (s *Service) mailFlow(ctx context.Context, path, email string, tmpl *EmailTemplate, what string) error {
	if !validEmail(email) {
		return cloud.InvalidArgument("a valid email is required")
	}
	app, err := s.application()
	if err != nil {
		return err
	}
	u, err := s.url(path)
	if err != nil {
		return err
	}

	body := map[string]any{
		"user": map[string]any{"email": email, "application": app},
	}
	tmpl.addTo(body)
	if err := s.client.Post(ctx, u, body, nil); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// ResetPassword sets a new password with the token from the reset mail.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirmation string) error {
	if token == "" {
		return cloud.InvalidArgument("reset token is required")
	}
	if password == "" || password != confirmation {
		return cloud.InvalidArgument("password and confirmation must match")
	}
	u, err := s.url("users/password.json")
	if err != nil {
		return err
	}
	body := map[string]any{"user": map[string]string{
		"reset_password_token":  token,
		"password":              password,
		"password_confirmation": confirmation,
	}}
	if err := s.client.Put(ctx, u, body, nil); err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}
	return nil
}

// ChangePassword replaces the password of the signed-in user.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return cloud.InvalidArgument("current and new password are required")
	}
	if current == next {
		return cloud.InvalidArgument("new password must differ from the current one")
	}
	u, err := s.url("users.json")
	if err != nil {
		return err
	}
	body := map[string]any{"user": map[string]string{"current_password": current, "password": next}}
	if err := s.client.Put(ctx, u, body, nil); err != nil {
		return fmt.Errorf("changing password: %w", err)
	}
	return nil
}

// UpdateEmail changes the sign-in email.
func (s *Service) UpdateEmail(ctx context.Context, email string) error {
	if !validEmail(email) {
		return cloud.InvalidArgument("a valid email is required")
	}
	u, err := s.url("users/update_email.json")
	if err != nil {
		return err
	}
	if err := s.client.Put(ctx, u, map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("updating email: %w", err)
	}
	return nil
}

// DeleteAccount removes the signed-in user. The session should be signed
// out afterwards.
func (s *Service) DeleteAccount(ctx context.Context) error {
	u, err := s.url("users.json")
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}
