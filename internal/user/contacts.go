package user

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Contact is an address book entry used as a notification target.
type Contact struct {
	ID                int64    `json:"id,omitempty"`
	DisplayName       string   `json:"display_name,omitempty"`
	Firstname         string   `json:"firstname,omitempty"`
	Lastname          string   `json:"lastname,omitempty"`
	Email             string   `json:"email,omitempty"`
	PhoneCountryCode  string   `json:"phone_country_code,omitempty"`
	PhoneNumber       string   `json:"phone_number,omitempty"`
	StreetAddress     string   `json:"street_address,omitempty"`
	ZipCode           string   `json:"zip_code,omitempty"`
	Country           string   `json:"country,omitempty"`
	EmailAccept       bool     `json:"email_accept"`
	SMSAccept         bool     `json:"sms_accept"`
	EmailNotification bool     `json:"email_notification"`
	SMSNotification   bool     `json:"sms_notification"`
	Metadata          string   `json:"metadata,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
	OemModels         []string `json:"oem_models,omitempty"`
}

type contactWrapper struct {
	Contact *Contact `json:"contact"`
}

func (s *Service) contactURL(id int64) (string, error) {
	return s.url("api/v1/users/contacts/" + strconv.FormatInt(id, 10) + ".json")
}

// CreateContact adds a contact. The returned copy carries the new id.
func (s *Service) CreateContact(ctx context.Context, c *Contact) (*Contact, error) {
	if c == nil {
		return nil, cloud.InvalidArgument("contact is required")
	}
	if c.Email == "" && c.PhoneNumber == "" {
		return nil, cloud.InvalidArgument("contact needs an email or a phone number")
	}
	u, err := s.url("api/v1/users/contacts.json")
	if err != nil {
		return nil, err
	}
	var out contactWrapper
	if err := s.client.Post(ctx, u, contactWrapper{Contact: c}, &out); err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	return out.Contact, nil
}

// FetchContacts lists every contact.
func (s *Service) FetchContacts(ctx context.Context) ([]Contact, error) {
	u, err := s.url("api/v1/users/contacts.json")
	if err != nil {
		return nil, err
	}
	var out []contactWrapper
	if err := s.client.Get(ctx, u, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching contacts: %w", err)
	}
	contacts := make([]Contact, 0, len(out))
	for _, w := range out {
		if w.Contact != nil {
			contacts = append(contacts, *w.Contact)
		}
	}
	return contacts, nil
}

// FetchContact returns one contact.
func (s *Service) FetchContact(ctx context.Context, id int64) (*Contact, error) {
	u, err := s.contactURL(id)
	if err != nil {
		return nil, err
	}
	var out contactWrapper
	if err := s.client.Get(ctx, u, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching contact %d: %w", id, err)
	}
	return out.Contact, nil
}

// UpdateContact writes c, which must have been fetched from the cloud.
func (s *Service) UpdateContact(ctx context.Context, c *Contact) (*Contact, error) {
	if c == nil || c.ID == 0 {
		return nil, cloud.InvalidArgument("only contacts fetched from the cloud can be updated")
	}
	u, err := s.contactURL(c.ID)
	if err != nil {
		return nil, err
	}
	var out contactWrapper
	if err := s.client.Put(ctx, u, contactWrapper{Contact: c}, &out); err != nil {
		return nil, fmt.Errorf("updating contact %d: %w", c.ID, err)
	}
	return out.Contact, nil
}

// DeleteContact removes a contact.
func (s *Service) DeleteContact(ctx context.Context, id int64) error {
	if id == 0 {
		return cloud.InvalidArgument("contact id is required")
	}
	u, err := s.contactURL(id)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting contact %d: %w", id, err)
	}
	return nil
}
