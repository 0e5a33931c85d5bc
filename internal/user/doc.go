// Package user manages the signed-in account on the Ayla user service:
// profile and sign-up flows, contacts, device shares and user data.
//
// Every call is synchronous and honours the context deadline.
//
//	svc := user.New(client)
//	profile, err := svc.FetchProfile(ctx)
package user
