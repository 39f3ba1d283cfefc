package session

import "errors"

// ErrNoKeyring is returned by InitEncrypt/InitDecrypt if no keyring has
// been configured via SetKeyring.
var ErrNoKeyring = errors.New("session: no keyring configured")
