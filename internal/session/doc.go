// Package session signs a user in to the Ayla cloud and keeps the access
// token valid.
//
// A Manager is identified by a session name. It signs in through an
// AuthProvider (username/password, refresh token, or the authorization
// cached from a previous run), persists the result in a TokenRepository,
// and refreshes the token 12 hours before it expires.
//
// Usage:
//
//	mgr := session.NewManager("default", client, session.NewSQLiteTokenRepository(db.DB))
//	_, err := mgr.SignIn(ctx, session.CachedAuthProvider{Repo: repo, SessionName: "default"})
//	if errors.Is(err, cloud.ErrPrecondition) {
//	    _, err = mgr.SignIn(ctx, session.UsernameAuthProvider{Email: email, Password: pw})
//	}
//	mgr.Start(ctx)
//	defer mgr.Close()
package session
