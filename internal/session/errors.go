package session

import "errors"

// ErrNoSession is returned by a TokenRepository when nothing is stored.
var ErrNoSession = errors.New("session: no stored authorization")
